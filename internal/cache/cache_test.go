package cache

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestKey(t *testing.T) {
	k1 := Key("classify-openai", "great book")
	k2 := Key("classify-openai", "great book")
	k3 := Key("classify-ollama", "great book")

	if k1 != k2 {
		t.Errorf("Expected stable keys, got %q and %q", k1, k2)
	}
	if k1 == k3 {
		t.Error("Expected namespaces to produce different keys")
	}
	if !strings.HasPrefix(k1, "sentiscope:v1:classify-openai:") {
		t.Errorf("Unexpected key format: %q", k1)
	}
}

func TestMemoryCache(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)

	if _, ok := c.Get("missing"); ok {
		t.Fatal("Expected miss for unknown key")
	}

	buf := []byte("positive")
	if err := c.Set("k", buf, 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	buf[0] = 'X'

	got, ok := c.Get("k")
	if !ok || string(got) != "positive" {
		t.Errorf("Expected stored copy %q, got %q (ok=%v)", "positive", got, ok)
	}
	if c.Len() != 1 {
		t.Errorf("Expected 1 entry, got %d", c.Len())
	}

	_ = c.Delete("k")
	if _, ok := c.Get("k"); ok {
		t.Error("Expected miss after Delete")
	}

	_ = c.Set("a", []byte("1"), 0)
	_ = c.Set("b", []byte("2"), 0)
	_ = c.Clear()
	if c.Len() != 0 {
		t.Errorf("Expected empty cache after Clear, got %d", c.Len())
	}
}

func TestMemoryCache_Expiry(t *testing.T) {
	c := NewMemoryCache(time.Minute, time.Minute)
	_ = c.Set("k", []byte("v"), time.Millisecond)

	time.Sleep(10 * time.Millisecond)
	if _, ok := c.Get("k"); ok {
		t.Error("Expected entry to expire")
	}
}

func TestDiskCache(t *testing.T) {
	dir := t.TempDir()
	c := NewDiskCache(dir, time.Hour)
	key := Key("classify-openai", "loved it")

	if err := c.Set(key, []byte(`{"sentiment":"positive"}`), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	got, ok := c.Get(key)
	if !ok || string(got) != `{"sentiment":"positive"}` {
		t.Errorf("Unexpected entry %q (ok=%v)", got, ok)
	}

	// A fresh cache over the same directory sees the entry
	again := NewDiskCache(dir, time.Hour)
	if _, ok := again.Get(key); !ok {
		t.Error("Expected entry to persist across instances")
	}

	if err := c.Delete(key); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if err := c.Delete(key); err != nil {
		t.Errorf("Expected deleting a missing entry to succeed, got %v", err)
	}
}

func TestDiskCache_Expiry(t *testing.T) {
	c := NewDiskCache(t.TempDir(), time.Hour)
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	_ = c.Set("k", []byte("v"), time.Minute)

	now = now.Add(30 * time.Second)
	if _, ok := c.Get("k"); !ok {
		t.Fatal("Expected entry before expiry")
	}

	now = now.Add(time.Minute)
	if _, ok := c.Get("k"); ok {
		t.Error("Expected entry to expire")
	}
	if _, err := os.Stat(c.path("k")); !os.IsNotExist(err) {
		t.Error("Expected expired entry file to be removed")
	}
}

func TestDiskCache_CorruptEntry(t *testing.T) {
	c := NewDiskCache(t.TempDir(), time.Hour)
	path := c.path("k")
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte("not json"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, ok := c.Get("k"); ok {
		t.Error("Expected corrupt entry to be a miss")
	}
}

func TestLayeredCache_PromotesDiskHits(t *testing.T) {
	front := NewMemoryCache(time.Minute, time.Minute)
	back := NewDiskCache(t.TempDir(), time.Hour)
	c := NewLayers(front, back)

	_ = back.Set("k", []byte("v"), 0)

	got, ok := c.Get("k")
	if !ok || string(got) != "v" {
		t.Fatalf("Expected disk hit, got %q (ok=%v)", got, ok)
	}
	if _, ok := front.Get("k"); !ok {
		t.Error("Expected disk hit to be promoted to memory")
	}
}

func TestLayeredCache_WritesThrough(t *testing.T) {
	dir := t.TempDir()
	c := NewLayeredCache(time.Minute, dir, time.Hour)

	if err := c.Set("k", []byte("v"), 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}

	if _, ok := NewDiskCache(dir, time.Hour).Get("k"); !ok {
		t.Error("Expected write-through to disk")
	}

	if err := c.Delete("k"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok := c.Get("k"); ok {
		t.Error("Expected miss after Delete")
	}
}
