package lstore

import (
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/ValentinKolb/sysprop/lib/prop/area"
	"github.com/ValentinKolb/sysprop/lib/prop/contexts"
	"github.com/ValentinKolb/sysprop/lib/store"
	"github.com/ValentinKolb/sysprop/lib/store/persist"
	"github.com/ValentinKolb/sysprop/lib/util"
)

// NewLocalStore opens the areas at config.Path and returns them as a store.IStore.
func NewLocalStore(config Config) (store.IStore, error) {
	return Open(config)
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store/interface.go)
// --------------------------------------------------------------------------

func (sp *SystemProperties) Get(name string) (string, bool, error) {
	if err := area.ValidName(name); err != nil {
		return "", false, err
	}
	a, err := sp.areaFor(name)
	if errors.Is(err, store.ErrAccessDenied) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	pi := a.Find(name)
	if pi == nil {
		return "", false, nil
	}
	var value string
	sp.ReadCallback(pi, func(_, v string, _ uint32) { value = v })
	return value, true, nil
}

// Set adds the property if it does not exist and replaces its value
// otherwise. Long values can not be replaced in place, so a property whose
// old or new value is long is deleted and added again. So is a read-only
// property whose write counter is exhausted. If the area has no room for the
// new copy, Set fails with ErrAreaFull before deleting anything.
func (sp *SystemProperties) Set(name, value string) error {
	return sp.set(name, value, true)
}

func (sp *SystemProperties) set(name, value string, persistent bool) error {
	if strings.IndexByte(value, 0) >= 0 {
		return store.Errorf(store.RetCInvalidValue, "value of %s contains NUL", name)
	}
	if len(value) >= area.PropValueMax && !area.IsReadOnly(name) {
		return store.Errorf(store.RetCValueTooLong, "value of %d bytes for %s exceeds %d", len(value), name, area.PropValueMax-1)
	}

	err := sp.write(name, func(a *area.Area) (bool, error) {
		pi := a.Find(name)
		switch {
		case pi == nil:
			if _, err := a.Add(name, value); err != nil {
				return false, err
			}
			addsTotal.Inc()
		case len(value) < area.PropValueMax && !pi.IsLong() && !pi.CounterExhausted():
			if _, err := a.Update(pi, value); err != nil {
				return false, err
			}
			updatesTotal.Inc()
		default:
			if !a.Fits(name, value) {
				return false, store.Errorf(store.RetCAreaFull, "no room to add %s again, keeping the old value", name)
			}
			if _, err := a.Delete(name, false); err != nil {
				return false, err
			}
			deletesTotal.Inc()
			if _, err := a.Add(name, value); err != nil {
				return true, err
			}
			addsTotal.Inc()
		}
		// queued under the writer lock so the file sees writes in memory order
		if persistent && sp.persist != nil && persist.IsPersistent(name) {
			return true, sp.persist.Write(name, value)
		}
		return true, nil
	})
	return err
}

func (sp *SystemProperties) Delete(name string) (bool, error) {
	found := false
	err := sp.write(name, func(a *area.Area) (bool, error) {
		f, err := a.Delete(name, sp.config.PruneOnDelete)
		if f {
			found = true
			deletesTotal.Inc()
		}
		if f && err == nil && sp.persist != nil && persist.IsPersistent(name) {
			return true, sp.persist.Remove(name)
		}
		return f, err
	})
	return found, err
}

func (sp *SystemProperties) List() ([]store.Property, error) {
	var props []store.Property
	err := sp.Foreach(func(pi *area.PropInfo) bool {
		sp.ReadCallback(pi, func(name, value string, serial uint32) {
			props = append(props, store.Property{Name: name, Value: value, Serial: serial})
		})
		return true
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(props, func(i, j int) bool { return props[i].Name < props[j].Name })
	return props, nil
}

// Wait watches the global serial instead of a single info, so a property that
// does not exist yet or is deleted and added again is still noticed.
func (sp *SystemProperties) Wait(name string, oldSerial uint32, timeout time.Duration) (uint32, bool, error) {
	if err := area.ValidName(name); err != nil {
		return 0, false, err
	}
	sa := sp.serialArea()
	if sa == nil {
		return 0, false, store.ErrNotInitialized
	}
	waitsTotal.Inc()

	var deadline time.Time
	if timeout > 0 {
		deadline = time.Now().Add(timeout)
	}
	for {
		global := sa.Serial()
		if pi := sp.Find(name); pi != nil {
			if s := pi.Serial(); s != oldSerial && !area.SerialDirty(s) {
				return s, true, nil
			}
		}
		var left time.Duration
		if !deadline.IsZero() {
			if left = time.Until(deadline); left <= 0 {
				return 0, false, nil
			}
		}
		if _, ok := sa.WaitSerial(global, left); !ok {
			return 0, false, nil
		}
	}
}

func (sp *SystemProperties) Serial() (uint32, error) {
	if !sp.initialized.Load() {
		return 0, store.ErrNotInitialized
	}
	return sp.AreaSerial(), nil
}

func (sp *SystemProperties) GetAreaInfo() ([]store.AreaInfo, error) {
	if !sp.initialized.Load() {
		return nil, store.ErrNotInitialized
	}
	var infos []store.AreaInfo
	sp.contexts.ForEachArea(func(context string, a *area.Area) bool {
		infos = append(infos, describeArea(context, a))
		return true
	})
	if sp.contexts.Mode() != contexts.PreSplit {
		if sa := sp.contexts.GetSerialPropArea(); sa != nil {
			infos = append(infos, describeArea(contexts.SerialContext, sa))
		}
	}
	return infos, nil
}

func describeArea(context string, a *area.Area) store.AreaInfo {
	sizes := util.NewSizeHistogram()
	n := 0
	a.Foreach(func(pi *area.PropInfo) bool {
		v, _, _ := pi.Read()
		sizes.AddSample(len(v))
		n++
		return true
	})
	return store.AreaInfo{
		Context:    context,
		File:       a.Path(),
		BytesUsed:  a.BytesUsed(),
		Capacity:   a.Capacity(),
		Properties: n,
		Serial:     a.Serial(),
		ValueSizes: sizes.Summary(),
	}
}
