// Package util provides small building blocks shared by the property store,
// the property service and the command line tools.
//
// The package contains:
//   - statistics: summary statistics over samples and a SizeHistogram for tracking value size distribution
//   - mpsc: a lock-free Multi-Producer Single-Consumer (MPSC) queue used to hand work to a single background writer
package util
