package server

import (
	"errors"
	"testing"
	"time"

	"github.com/ValentinKolb/sysprop/lib/store"
	"github.com/ValentinKolb/sysprop/rpc/common"
	"github.com/VictoriaMetrics/metrics"
)

// recordingStore answers every call with fixed values and records the wait timeout.
type recordingStore struct {
	waitTimeout time.Duration
	props       []store.Property
}

func (r *recordingStore) Get(name string) (string, bool, error) {
	if name == "" {
		return "", false, store.ErrInvalidName
	}
	return "value-of-" + name, true, nil
}

func (r *recordingStore) Set(name, value string) error {
	if len(value) > 10 {
		return store.ErrValueTooLong
	}
	return nil
}

func (r *recordingStore) Delete(name string) (bool, error) { return name == "present", nil }

func (r *recordingStore) List() ([]store.Property, error) { return r.props, nil }

func (r *recordingStore) Wait(name string, oldSerial uint32, timeout time.Duration) (uint32, bool, error) {
	r.waitTimeout = timeout
	return oldSerial + 2, true, nil
}

func (r *recordingStore) Serial() (uint32, error) { return 42, nil }

func (r *recordingStore) GetAreaInfo() ([]store.AreaInfo, error) {
	return []store.AreaInfo{{Context: "u:object_r:default_prop:s0", Capacity: 128 * 1024}}, nil
}

func TestIStoreAdapter(t *testing.T) {
	adapter := NewIStoreServerAdapter()
	s := &recordingStore{}

	t.Run("Get", func(t *testing.T) {
		resp := adapter.Handle(common.NewGetRequest("ro.x"), s)
		if resp.Value != "value-of-ro.x" || !resp.Ok || resp.Err != "" {
			t.Errorf("unexpected response %+v", resp)
		}
	})

	t.Run("SetError", func(t *testing.T) {
		resp := adapter.Handle(common.NewSetRequest("debug.x", "much too long"), s)
		if !errors.Is(resp.ToError(), store.ErrValueTooLong) {
			t.Errorf("expected ErrValueTooLong, got %v", resp.ToError())
		}
	})

	t.Run("Delete", func(t *testing.T) {
		if resp := adapter.Handle(common.NewDeleteRequest("present"), s); !resp.Ok {
			t.Error("expected ok for an existing property")
		}
		if resp := adapter.Handle(common.NewDeleteRequest("absent"), s); resp.Ok {
			t.Error("expected not ok for a missing property")
		}
	})

	t.Run("EmptyList", func(t *testing.T) {
		resp := adapter.Handle(common.NewListRequest(), s)
		if resp.Props == nil || len(resp.Props) != 0 {
			t.Errorf("expected an empty non-nil list, got %#v", resp.Props)
		}
	})

	t.Run("WaitTimeout", func(t *testing.T) {
		resp := adapter.Handle(common.NewWaitRequest("sys.x", 4, 1500), s)
		if s.waitTimeout != 1500*time.Millisecond {
			t.Errorf("expected a 1.5s timeout, got %v", s.waitTimeout)
		}
		if resp.Serial != 6 || !resp.Ok {
			t.Errorf("unexpected response %+v", resp)
		}

		adapter.Handle(common.NewWaitRequest("sys.x", 4, 0), s)
		if s.waitTimeout != 0 {
			t.Errorf("expected no timeout, got %v", s.waitTimeout)
		}
	})

	t.Run("SerialAndInfo", func(t *testing.T) {
		if resp := adapter.Handle(common.NewSerialRequest(), s); resp.Serial != 42 {
			t.Errorf("expected serial 42, got %d", resp.Serial)
		}
		resp := adapter.Handle(common.NewInfoRequest(), s)
		if len(resp.Areas) != 1 || resp.Areas[0].Capacity != 128*1024 {
			t.Errorf("unexpected areas %+v", resp.Areas)
		}
	})

	t.Run("Unsupported", func(t *testing.T) {
		resp := adapter.Handle(&common.Message{MsgType: common.MsgTSuccess}, s)
		if resp.MsgType != common.MsgTError || !errors.Is(resp.ToError(), store.ErrUnsupported) {
			t.Errorf("unexpected response %+v", resp)
		}
	})

	t.Run("NilStore", func(t *testing.T) {
		resp := adapter.Handle(common.NewGetRequest("ro.x"), nil)
		if !errors.Is(resp.ToError(), store.ErrNotInitialized) {
			t.Errorf("expected ErrNotInitialized, got %v", resp.ToError())
		}
	})

	t.Run("CountsRequests", func(t *testing.T) {
		counter := metrics.GetOrCreateCounter(`sysprop_rpc_requests_total{type="serial"}`)
		before := counter.Get()
		adapter.Handle(common.NewSerialRequest(), s)
		adapter.Handle(common.NewSerialRequest(), s)
		if got := counter.Get() - before; got != 2 {
			t.Errorf("expected 2 counted requests, got %d", got)
		}
	})
}
