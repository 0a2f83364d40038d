package slm

import "testing"

func TestLRUBasic(t *testing.T) {
	c := newLRU[string, int](2)
	c.Put("a", 1)
	c.Put("b", 2)
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Fatalf("Get(a) = (%d,%v), want (1,true)", v, ok)
	}
	c.Put("c", 3) // evicts "b", the least recently used after the Get("a") above
	if _, ok := c.Get("b"); ok {
		t.Errorf("expected b to be evicted")
	}
	if v, ok := c.Get("a"); !ok || v != 1 {
		t.Errorf("Get(a) after eviction = (%d,%v), want (1,true)", v, ok)
	}
	if v, ok := c.Get("c"); !ok || v != 3 {
		t.Errorf("Get(c) = (%d,%v), want (3,true)", v, ok)
	}
}

func TestLRUUpdateExisting(t *testing.T) {
	c := newLRU[int, string](1)
	c.Put(1, "x")
	c.Put(1, "y")
	if v, ok := c.Get(1); !ok || v != "y" {
		t.Errorf("Get(1) = (%q,%v), want (y,true)", v, ok)
	}
	if c.Len() != 1 {
		t.Errorf("Len() = %d, want 1", c.Len())
	}
}

func TestLRUClear(t *testing.T) {
	c := newLRU[int, int](4)
	c.Put(1, 1)
	c.Put(2, 2)
	c.Clear()
	if c.Len() != 0 {
		t.Errorf("Len() after Clear() = %d, want 0", c.Len())
	}
	if _, ok := c.Get(1); ok {
		t.Errorf("Get(1) after Clear() unexpectedly found")
	}
}
