package cache

import (
	"testing"
	"time"
)

func TestLRUCache_EvictsOldest(t *testing.T) {
	c := NewLRUCache[string](2, time.Minute)
	c.Set("a", "1")
	c.Set("b", "2")
	if _, ok := c.Get("a"); !ok {
		t.Fatal("expected a to be cached")
	}
	c.Set("c", "3") // b is now least recently used

	if _, ok := c.Get("b"); ok {
		t.Fatal("expected b to be evicted")
	}
	if v, ok := c.Get("a"); !ok || v != "1" {
		t.Fatalf("expected a=1, got %q %v", v, ok)
	}
	if c.Size() != 2 {
		t.Fatalf("expected size 2, got %d", c.Size())
	}
}

func TestLRUCache_ExpiryAndStats(t *testing.T) {
	c := NewLRUCache[int](10, time.Millisecond)
	c.Set("x", 1)
	time.Sleep(5 * time.Millisecond)

	if _, ok := c.Get("x"); ok {
		t.Fatal("expected x to be expired")
	}
	c.Set("y", 2)
	time.Sleep(5 * time.Millisecond)
	if n := c.CleanExpired(); n != 1 {
		t.Fatalf("expected 1 expired entry, got %d", n)
	}

	st := c.Stats()
	if st.Misses != 1 || st.Hits != 0 || st.Size != 0 {
		t.Fatalf("unexpected stats %+v", st)
	}
}

func TestManager_CleanNowAndStop(t *testing.T) {
	c := NewLRUCache[int](10, time.Millisecond)
	c.Set("x", 1)
	m := NewManager()
	m.Register(c)
	time.Sleep(5 * time.Millisecond)

	if n := m.CleanNow(); n != 1 {
		t.Fatalf("expected 1 evicted entry, got %d", n)
	}

	m.StartCleanup(time.Hour)
	m.Stop()
	m.Stop()
}
