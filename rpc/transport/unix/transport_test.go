package unix

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/ValentinKolb/sysprop/rpc/common"
	"github.com/ValentinKolb/sysprop/rpc/transport"
)

// --------------------------------------------------------------------------
// Helper functions
// --------------------------------------------------------------------------

// startServer serves handler on a fresh socket and returns the socket path
func startServer(t *testing.T, handler transport.ServerHandleFunc) (string, transport.IRPCServerTransport) {
	t.Helper()
	dir, err := os.MkdirTemp("", "sp")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	socket := filepath.Join(dir, "s")

	srv := NewUnixServerTransport(4096, 8)
	srv.RegisterHandler(handler)
	done := make(chan error, 1)
	go func() {
		done <- srv.Listen(common.ServerConfig{Endpoint: socket, TimeoutSecond: 5})
	}()

	t.Cleanup(func() {
		_ = srv.Close()
		select {
		case err := <-done:
			if err != nil {
				t.Errorf("Listen returned %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Error("Listen did not return after Close")
		}
		_ = os.RemoveAll(dir)
	})

	deadline := time.Now().Add(5 * time.Second)
	for {
		if _, err := os.Stat(socket); err == nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("socket did not appear")
		}
		time.Sleep(5 * time.Millisecond)
	}
	return socket, srv
}

func connect(t *testing.T, socket string, timeoutSecond int) transport.IRPCClientTransport {
	t.Helper()
	c := NewUnixClientTransport()
	if err := c.Connect(common.ClientConfig{
		Endpoints:              []string{socket},
		TimeoutSecond:          timeoutSecond,
		RetryCount:             1,
		ConnectionsPerEndpoint: 2,
	}); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func echo(req []byte) []byte {
	return append([]byte("echo:"), req...)
}

// --------------------------------------------------------------------------
// Tests
// --------------------------------------------------------------------------

func TestRoundTrip(t *testing.T) {
	socket, _ := startServer(t, echo)
	c := connect(t, socket, 5)

	for _, payload := range [][]byte{[]byte("hello"), {}, bytes.Repeat([]byte{0xab}, 100000)} {
		resp, err := c.Send(payload, 0)
		if err != nil {
			t.Fatalf("Send failed: %v", err)
		}
		if !bytes.Equal(resp, echo(payload)) {
			t.Errorf("unexpected response of %d bytes for %d byte request", len(resp), len(payload))
		}
	}
}

func TestConcurrentRequests(t *testing.T) {
	socket, _ := startServer(t, func(req []byte) []byte {
		// later requests finish first
		if bytes.HasSuffix(req, []byte("0")) {
			time.Sleep(20 * time.Millisecond)
		}
		return echo(req)
	})
	c := connect(t, socket, 5)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			req := []byte(fmt.Sprintf("req-%d", i))
			resp, err := c.Send(req, 0)
			if err != nil {
				t.Errorf("Send %d failed: %v", i, err)
				return
			}
			if !bytes.Equal(resp, echo(req)) {
				t.Errorf("request %d got response %q", i, resp)
			}
		}(i)
	}
	wg.Wait()
}

func TestTimeouts(t *testing.T) {
	socket, _ := startServer(t, func(req []byte) []byte {
		time.Sleep(1500 * time.Millisecond)
		return echo(req)
	})
	c := connect(t, socket, 1)

	t.Run("Expires", func(t *testing.T) {
		if _, err := c.Send([]byte("slow"), 0); err == nil {
			t.Error("expected a timeout")
		}
	})

	t.Run("Extended", func(t *testing.T) {
		resp, err := c.Send([]byte("slow"), 2*time.Second)
		if err != nil {
			t.Fatalf("Send failed: %v", err)
		}
		if string(resp) != "echo:slow" {
			t.Errorf("unexpected response %q", resp)
		}
	})

	t.Run("Disabled", func(t *testing.T) {
		if _, err := c.Send([]byte("slow"), -1); err != nil {
			t.Errorf("Send failed: %v", err)
		}
	})
}

func TestSocketMode(t *testing.T) {
	socket, _ := startServer(t, echo)
	fi, err := os.Stat(socket)
	if err != nil {
		t.Fatalf("stat failed: %v", err)
	}
	if fi.Mode().Perm() != socketMode {
		t.Errorf("expected mode %o, got %o", socketMode, fi.Mode().Perm())
	}
}

func TestConnectFails(t *testing.T) {
	c := NewUnixClientTransport()
	if err := c.Connect(common.ClientConfig{Endpoints: []string{filepath.Join(t.TempDir(), "missing")}}); err == nil {
		t.Error("expected Connect to fail without a server")
	}
	if err := c.Connect(common.ClientConfig{}); err == nil {
		t.Error("expected Connect to fail without endpoints")
	}
}
