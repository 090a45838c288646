package store

import "testing"

func TestIDSetAddHas(t *testing.T) {
	s := NewIDSet()
	if s.Has("1") {
		t.Fatal("empty set should not contain 1")
	}
	if !s.Add("1") {
		t.Error("first Add should report newly added")
	}
	if s.Add("1") {
		t.Error("second Add of the same id should report false")
	}
	if !s.Has("1") {
		t.Error("set should contain 1 after Add")
	}
	if s.Len() != 1 {
		t.Errorf("expected Len 1, got %d", s.Len())
	}
}

func TestIDSetSeeded(t *testing.T) {
	s := NewIDSet("a", "b", "a")
	if s.Len() != 2 {
		t.Errorf("expected 2 unique ids, got %d", s.Len())
	}
	if !s.Has("a") || !s.Has("b") {
		t.Error("seeded ids missing")
	}
}

func TestIDSetZeroAndNil(t *testing.T) {
	var zero IDSet
	if !zero.Add("x") || !zero.Has("x") {
		t.Error("zero value set should be usable")
	}

	var nilSet *IDSet
	if nilSet.Has("x") {
		t.Error("nil set should contain nothing")
	}
	if nilSet.Len() != 0 {
		t.Error("nil set should have length 0")
	}
}
