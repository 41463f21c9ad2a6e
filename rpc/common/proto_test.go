package common

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/ValentinKolb/sysprop/lib/store"
)

func TestResponseErrors(t *testing.T) {
	t.Run("KeepsReturnCode", func(t *testing.T) {
		resp := NewSetResponse(store.Errorf(store.RetCValueTooLong, "value of %d bytes", 120))
		if resp.Code != uint64(store.RetCValueTooLong) {
			t.Fatalf("expected code %d, got %d", store.RetCValueTooLong, resp.Code)
		}
		err := resp.ToError()
		if !errors.Is(err, store.ErrValueTooLong) {
			t.Errorf("expected ErrValueTooLong, got %v", err)
		}
		if !strings.Contains(err.Error(), "value of 120 bytes") {
			t.Errorf("message lost: %v", err)
		}
	})

	t.Run("WrappedStoreError", func(t *testing.T) {
		resp := NewDeleteResponse(false, fmt.Errorf("delete: %w", store.ErrReadOnly))
		if !errors.Is(resp.ToError(), store.ErrReadOnly) {
			t.Errorf("expected ErrReadOnly, got %v", resp.ToError())
		}
	})

	t.Run("PlainErrorIsInternal", func(t *testing.T) {
		resp := NewGetResponse("", false, errors.New("boom"))
		if !errors.Is(resp.ToError(), store.ErrInternal) {
			t.Errorf("expected ErrInternal, got %v", resp.ToError())
		}
	})

	t.Run("ErrorResponseWithoutCode", func(t *testing.T) {
		resp := NewErrorResponse(store.RetCSuccess, "broken")
		if !errors.Is(resp.ToError(), store.ErrInternal) {
			t.Errorf("expected ErrInternal, got %v", resp.ToError())
		}
	})

	t.Run("NoError", func(t *testing.T) {
		if err := NewGetResponse("v", true, nil).ToError(); err != nil {
			t.Errorf("expected nil, got %v", err)
		}
	})
}

func TestMessageTypeJSON(t *testing.T) {
	types := []MessageType{MsgTSuccess, MsgTError, MsgTGet, MsgTSet, MsgTDelete, MsgTList, MsgTWait, MsgTSerial, MsgTInfo}
	for _, typ := range types {
		data, err := json.Marshal(typ)
		if err != nil {
			t.Fatalf("marshal %v: %v", typ, err)
		}
		if string(data) != fmt.Sprintf("%q", typ.String()) {
			t.Errorf("expected %q, got %s", typ.String(), data)
		}
		var back MessageType
		if err := json.Unmarshal(data, &back); err != nil {
			t.Fatalf("unmarshal %s: %v", data, err)
		}
		if back != typ {
			t.Errorf("expected %v, got %v", typ, back)
		}
	}

	var typ MessageType
	if err := json.Unmarshal([]byte(`"lock"`), &typ); err == nil {
		t.Error("expected an error for an unknown message type")
	}
	if MsgTUnknown.String() != "unknown" {
		t.Errorf("unexpected name %q", MsgTUnknown.String())
	}
}

func TestWaitRequestJSON(t *testing.T) {
	data, err := json.Marshal(NewWaitRequest("sys.boot_completed", 7, 1500))
	if err != nil {
		t.Fatal(err)
	}
	var msg Message
	if err := json.Unmarshal(data, &msg); err != nil {
		t.Fatal(err)
	}
	if msg.MsgType != MsgTWait || msg.Name != "sys.boot_completed" || msg.Serial != 7 || msg.TimeoutMs != 1500 {
		t.Errorf("unexpected message %+v", msg)
	}
}

func TestConfigString(t *testing.T) {
	server := ServerConfig{Endpoint: DefaultSocket, TimeoutSecond: 5, LogLevel: "info"}
	s := server.String()
	for _, want := range []string{"RPC SERVER", DefaultSocket, "5 sec", "PROPERTY SERVICE"} {
		if !strings.Contains(s, want) {
			t.Errorf("server config string misses %q:\n%s", want, s)
		}
	}

	client := ClientConfig{Endpoints: []string{"a", "b"}, TimeoutSecond: 3, RetryCount: 2}
	s = client.String()
	for _, want := range []string{"CLIENT CONFIGURATION", "3 sec", "  0                     : a", "  1                     : b"} {
		if !strings.Contains(s, want) {
			t.Errorf("client config string misses %q:\n%s", want, s)
		}
	}
}

func TestValidLogLevel(t *testing.T) {
	for _, level := range []string{"", "debug", "INFO", "warn", "warning", "error"} {
		if !ValidLogLevel(level) {
			t.Errorf("expected %q to be valid", level)
		}
	}
	if ValidLogLevel("verbose") {
		t.Error("expected verbose to be invalid")
	}
}
