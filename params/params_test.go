package params

import "testing"

func TestSetAndGet(t *testing.T) {
	s := NewStore()
	s.Set("COMPASS_OFS_X", 1.25)
	v, ok := s.Get("COMPASS_OFS_X")
	if !ok || v != 1.25 {
		t.Fatalf("Get = %v, %v", v, ok)
	}
	if _, ok := s.Get("missing"); ok {
		t.Fatal("Get(missing) reported ok")
	}
}

func TestDefaultNeverOverridesExplicit(t *testing.T) {
	s := NewStore()
	s.Set("x", 5)
	if s.SetDefaultIfUnset("x", 1) {
		t.Fatal("default applied over explicit value")
	}
	if v, _ := s.Get("x"); v != 5 {
		t.Fatalf("x = %v, want 5", v)
	}
}

func TestDefaultAppliesWhenUnset(t *testing.T) {
	s := NewStore()
	if !s.SetDefaultIfUnset("y", 2) {
		t.Fatal("default not applied to fresh parameter")
	}
	if v, _ := s.Get("y"); v != 2 {
		t.Fatalf("y = %v, want 2", v)
	}
	// A later default may replace an earlier default.
	if !s.SetDefaultIfUnset("y", 3) {
		t.Fatal("second default rejected")
	}
	if v, _ := s.Get("y"); v != 3 {
		t.Fatalf("y = %v, want 3", v)
	}
}

func TestPersistableOrderAndFilter(t *testing.T) {
	s := NewStore()
	s.Set("a", 1)
	s.Set("b", 2)
	s.Set("c", 3)
	s.SetPersistent("c", true)
	s.SetPersistent("a", true)

	ps := s.Persistable()
	if len(ps) != 2 {
		t.Fatalf("len(Persistable) = %d, want 2", len(ps))
	}
	// Definition order, not marking order.
	if ps[0].Name != "a" || ps[0].Value != 1 {
		t.Fatalf("ps[0] = %+v", ps[0])
	}
	if ps[1].Name != "c" || ps[1].Value != 3 {
		t.Fatalf("ps[1] = %+v", ps[1])
	}

	s.SetPersistent("a", false)
	if got := s.Persistable(); len(got) != 1 || got[0].Name != "c" {
		t.Fatalf("after unmark: %+v", got)
	}
}
