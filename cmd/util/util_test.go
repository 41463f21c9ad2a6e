package util

import (
	"strings"
	"testing"

	"github.com/spf13/viper"
)

func TestWrapString(t *testing.T) {
	text := strings.Repeat("property ", 20)
	for _, line := range strings.Split(WrapString(text), "\n") {
		if len(line) > Wrap {
			t.Errorf("line longer than %d characters: %q", Wrap, line)
		}
	}
	if got := WrapString("  short   text "); got != "short text" {
		t.Errorf("expected %q, got %q", "short text", got)
	}
}

func TestFactories(t *testing.T) {
	t.Cleanup(viper.Reset)

	for _, name := range []string{"json", "gob", "binary"} {
		viper.Set("serializer", name)
		if _, err := GetSerializer(); err != nil {
			t.Errorf("serializer %s: %v", name, err)
		}
	}
	viper.Set("serializer", "xml")
	if _, err := GetSerializer(); err == nil {
		t.Error("expected an error for an unknown serializer")
	}

	for _, name := range []string{"unix", "http"} {
		viper.Set("transport", name)
		if _, err := GetTransport(); err != nil {
			t.Errorf("client transport %s: %v", name, err)
		}
		if _, err := GetServerTransport(); err != nil {
			t.Errorf("server transport %s: %v", name, err)
		}
	}
	viper.Set("transport", "tcp")
	if _, err := GetTransport(); err == nil {
		t.Error("expected an error for an unknown transport")
	}
}

func TestClientConfig(t *testing.T) {
	t.Cleanup(viper.Reset)

	viper.Set("transport-endpoints", " /tmp/a.sock, ,/tmp/b.sock")
	viper.Set("transport-timeout", 7)
	viper.Set("transport-retries", 2)

	config := GetClientConfig()
	if len(config.Endpoints) != 2 || config.Endpoints[0] != "/tmp/a.sock" || config.Endpoints[1] != "/tmp/b.sock" {
		t.Errorf("unexpected endpoints %q", config.Endpoints)
	}
	if config.TimeoutSecond != 7 || config.RetryCount != 2 {
		t.Errorf("unexpected config %+v", config)
	}

	viper.Set("properties-dir", "/tmp/props")
	viper.Set("writer-lock", true)
	local := GetLocalConfig(false)
	if local.Path != "/tmp/props" || local.Writable || local.WriterLock {
		t.Errorf("unexpected read-only config %+v", local)
	}
	local = GetLocalConfig(true)
	if !local.Writable || !local.WriterLock {
		t.Errorf("unexpected writable config %+v", local)
	}
}
