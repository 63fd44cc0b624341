package infra

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

func TestCacheSetGet(t *testing.T) {
	c := NewCache[float64](time.Minute)
	c.Set("a", 0.5)

	v, ok := c.Get("a")
	if !ok || v != 0.5 {
		t.Fatalf("expected 0.5, got %v (ok=%v)", v, ok)
	}
	if _, ok := c.Get("missing"); ok {
		t.Error("expected miss for unknown key")
	}
}

func TestCacheExpiry(t *testing.T) {
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	c := NewCache[string](time.Minute)
	c.now = func() time.Time { return now }

	c.Set("k", "v")
	now = now.Add(2 * time.Minute)
	if _, ok := c.Get("k"); ok {
		t.Error("expected entry to expire")
	}

	c.Cleanup()
	if c.Len() != 0 {
		t.Errorf("expected cleanup to remove expired entry, len=%d", c.Len())
	}
}

func TestCacheZeroTTLDisables(t *testing.T) {
	for _, ttl := range []time.Duration{0, -time.Second} {
		c := NewCache[int](ttl)
		c.Set("k", 1)
		if _, ok := c.Get("k"); ok {
			t.Errorf("ttl %v: expected no caching", ttl)
		}
		if c.Len() != 0 {
			t.Errorf("ttl %v: expected empty cache, len=%d", ttl, c.Len())
		}
	}

	c := NewCache[int](time.Minute)
	c.SetWithTTL("k", 1, 0)
	if c.Len() != 0 {
		t.Errorf("SetWithTTL(0) stored an entry, len=%d", c.Len())
	}
}

func TestCacheGetEvictsExpired(t *testing.T) {
	now := time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC)
	c := NewCache[int](time.Millisecond)
	c.now = func() time.Time { return now }

	for i := 0; i < 1000; i++ {
		c.Set(fmt.Sprint(i), i)
	}
	now = now.Add(time.Second)
	for i := 0; i < 1000; i++ {
		if _, ok := c.Get(fmt.Sprint(i)); ok {
			t.Fatalf("entry %d should have expired", i)
		}
	}
	if c.Len() != 0 {
		t.Errorf("expected expired entries to be evicted, len=%d", c.Len())
	}
}

type countingCleaner struct{ n atomic.Int32 }

func (c *countingCleaner) Cleanup() { c.n.Add(1) }

func TestRunCleanup(t *testing.T) {
	cl := &countingCleaner{}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		RunCleanup(ctx, 5*time.Millisecond, cl)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for cl.n.Load() < 2 {
		select {
		case <-deadline:
			t.Fatal("cleanup did not run")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("RunCleanup did not return after cancel")
	}
}

func TestCacheInvalidateFlush(t *testing.T) {
	c := NewCache[int](time.Minute)
	c.Set("a", 1)
	c.Set("b", 2)

	c.Invalidate("a")
	if _, ok := c.Get("a"); ok {
		t.Error("expected a to be invalidated")
	}
	c.Flush()
	if c.Len() != 0 {
		t.Errorf("expected empty cache after flush, len=%d", c.Len())
	}
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"error", slog.LevelError},
		{"bogus", slog.LevelInfo},
		{"", slog.LevelInfo},
	}
	for _, tt := range tests {
		if got := ParseLevel(tt.in); got != tt.want {
			t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestNewLoggerJSON(t *testing.T) {
	var buf bytes.Buffer
	log := NewLoggerTo(&buf, "info", "json")
	log.Debug("hidden")
	log.Info("run complete", "records", 3)

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d: %q", len(lines), buf.String())
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &m); err != nil {
		t.Fatalf("expected JSON output: %v", err)
	}
	if m["msg"] != "run complete" {
		t.Errorf("msg: got %v", m["msg"])
	}
}

func TestOrDefault(t *testing.T) {
	if OrDefault(nil) == nil {
		t.Error("expected default logger")
	}
}
