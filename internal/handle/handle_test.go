package handle

import (
	"sync"
	"testing"
)

func TestPutGet(t *testing.T) {
	a := NewArena[string]()

	id := a.Put("hello")
	if id == 0 {
		t.Fatal("Put returned zero ID")
	}

	v, ok := a.Get(id)
	if !ok {
		t.Fatal("Get failed for live ID")
	}
	if v != "hello" {
		t.Errorf("Get = %q, want %q", v, "hello")
	}
}

func TestZeroIDInvalid(t *testing.T) {
	a := NewArena[int]()
	a.Put(42)

	if _, ok := a.Get(0); ok {
		t.Error("zero ID should never resolve")
	}
}

func TestRemoveExactlyOnce(t *testing.T) {
	a := NewArena[int]()
	id := a.Put(7)

	v, ok := a.Remove(id)
	if !ok || v != 7 {
		t.Fatalf("Remove = (%d, %v), want (7, true)", v, ok)
	}

	if _, ok := a.Remove(id); ok {
		t.Error("second Remove should be a no-op")
	}
	if _, ok := a.Get(id); ok {
		t.Error("Get after Remove should fail")
	}
}

func TestStaleGeneration(t *testing.T) {
	a := NewArena[string]()

	old := a.Put("first")
	a.Remove(old)

	// Slot is recycled with a new generation.
	fresh := a.Put("second")
	if fresh == old {
		t.Fatal("recycled slot reused the old ID")
	}

	if _, ok := a.Get(old); ok {
		t.Error("stale ID resolved against recycled slot")
	}
	if v, ok := a.Get(fresh); !ok || v != "second" {
		t.Errorf("fresh ID = (%q, %v), want (second, true)", v, ok)
	}
}

func TestLen(t *testing.T) {
	a := NewArena[int]()

	ids := make([]ID, 0, 10)
	for i := 0; i < 10; i++ {
		ids = append(ids, a.Put(i))
	}
	if a.Len() != 10 {
		t.Errorf("Len = %d, want 10", a.Len())
	}

	for _, id := range ids[:4] {
		a.Remove(id)
	}
	if a.Len() != 6 {
		t.Errorf("Len = %d, want 6", a.Len())
	}
}

func TestConcurrent(t *testing.T) {
	a := NewArena[int]()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				id := a.Put(g*1000 + i)
				v, ok := a.Get(id)
				if !ok || v != g*1000+i {
					t.Errorf("Get(%v) = (%d, %v)", id, v, ok)
					return
				}
				a.Remove(id)
			}
		}(g)
	}
	wg.Wait()

	if a.Len() != 0 {
		t.Errorf("Len = %d after all removes, want 0", a.Len())
	}
}
