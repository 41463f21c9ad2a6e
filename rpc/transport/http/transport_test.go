package http

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ValentinKolb/sysprop/rpc/common"
	"github.com/VictoriaMetrics/metrics"
)

func newTestServer(t *testing.T, handler func([]byte) []byte) *httptest.Server {
	t.Helper()
	srv := &httpServerTransport{}
	srv.RegisterHandler(handler)
	ts := httptest.NewServer(srv.routes())
	t.Cleanup(ts.Close)
	return ts
}

func TestRoundTrip(t *testing.T) {
	ts := newTestServer(t, func(req []byte) []byte {
		return append([]byte("echo:"), req...)
	})

	// endpoints given with and without scheme
	for _, endpoint := range []string{ts.URL, strings.TrimPrefix(ts.URL, "http://")} {
		c := NewHttpClientTransport()
		if err := c.Connect(common.ClientConfig{Endpoints: []string{endpoint}, TimeoutSecond: 5}); err != nil {
			t.Fatalf("Connect failed: %v", err)
		}
		resp, err := c.Send([]byte("ping"), 0)
		if err != nil {
			t.Fatalf("Send to %s failed: %v", endpoint, err)
		}
		if string(resp) != "echo:ping" {
			t.Errorf("unexpected response %q", resp)
		}
		_ = c.Close()
	}
}

func TestTimeout(t *testing.T) {
	ts := newTestServer(t, func(req []byte) []byte {
		time.Sleep(1500 * time.Millisecond)
		return req
	})
	c := NewHttpClientTransport()
	if err := c.Connect(common.ClientConfig{Endpoints: []string{ts.URL}, TimeoutSecond: 1}); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	defer c.Close()

	if _, err := c.Send([]byte("x"), 0); err == nil {
		t.Error("expected a timeout")
	}
	if resp, err := c.Send([]byte("x"), 2*time.Second); err != nil || !bytes.Equal(resp, []byte("x")) {
		t.Errorf("extended Send: %q, %v", resp, err)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	metrics.GetOrCreateCounter("sysprop_http_transport_test_total").Inc()
	ts := newTestServer(t, func(req []byte) []byte { return req })

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics failed: %v", err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %s", resp.Status)
	}
	if !strings.Contains(string(body), "sysprop_http_transport_test_total 1") {
		t.Errorf("counter missing from metrics output:\n%s", body)
	}
}

func TestWrongMethod(t *testing.T) {
	ts := newTestServer(t, func(req []byte) []byte { return req })
	resp, err := http.Get(ts.URL + "/prop")
	if err != nil {
		t.Fatalf("GET failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %s", resp.Status)
	}
}

func TestListenClose(t *testing.T) {
	srv := NewHttpServerTransport()
	srv.RegisterHandler(func(req []byte) []byte { return req })
	done := make(chan error, 1)
	go func() {
		done <- srv.Listen(common.ServerConfig{Endpoint: "127.0.0.1:0"})
	}()
	time.Sleep(50 * time.Millisecond)
	if err := srv.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Listen returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Listen did not return after Close")
	}
}
