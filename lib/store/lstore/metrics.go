package lstore

import "github.com/VictoriaMetrics/metrics"

// Counters are process wide and shared by every SystemProperties instance.
var (
	readsTotal        = metrics.NewCounter("sysprop_reads_total")
	readRetriesTotal  = metrics.NewCounter("sysprop_read_retries_total")
	addsTotal         = metrics.NewCounter("sysprop_adds_total")
	updatesTotal      = metrics.NewCounter("sysprop_updates_total")
	deletesTotal      = metrics.NewCounter("sysprop_deletes_total")
	areaFullTotal     = metrics.NewCounter("sysprop_area_full_total")
	accessDeniedTotal = metrics.NewCounter("sysprop_access_denied_total")
	waitsTotal        = metrics.NewCounter("sysprop_waits_total")
)
