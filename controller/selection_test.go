package controller

import (
	"reflect"
	"testing"
)

func TestSelectionToggle(t *testing.T) {
	s := NewSelection()
	s.Toggle(1)
	if !s.Has(1) || s.Count() != 1 {
		t.Fatalf("expected 1 selected, got %d", s.Count())
	}
	s.Toggle(1)
	if s.Has(1) || !s.IsEmpty() {
		t.Fatal("second toggle should remove membership")
	}
}

func TestSelectAllThenClear(t *testing.T) {
	s := NewSelection()
	s.SelectAll([]int64{1, 2, 3})
	if s.Count() != 3 {
		t.Fatalf("expected 3 selected, got %d", s.Count())
	}
	s.Clear()
	if s.Count() != 0 {
		t.Fatalf("expected empty selection, got %d", s.Count())
	}
	if s.State(3) != Unchecked {
		t.Fatalf("expected unchecked tri-state, got %v", s.State(3))
	}
}

func TestTriStateDerivation(t *testing.T) {
	s := NewSelection()
	if s.State(3) != Unchecked {
		t.Fatal("empty selection must be unchecked")
	}
	s.Toggle(1)
	if s.State(3) != Indeterminate {
		t.Fatal("partial selection must be indeterminate")
	}
	s.SelectAll([]int64{1, 2, 3})
	if s.State(3) != Checked {
		t.Fatal("full selection must be checked")
	}
	if !s.IsAll(3) {
		t.Fatal("IsAll must hold for a full selection")
	}
	if s.IsAll(0) {
		t.Fatal("IsAll must not hold against an empty list")
	}
}

func TestPruneDropsUnknownIDs(t *testing.T) {
	s := NewSelection()
	s.SelectAll([]int64{1, 2, 3})
	s.Prune([]int64{2, 3, 4})
	if got := s.IDs(); !reflect.DeepEqual(got, []int64{2, 3}) {
		t.Fatalf("unexpected survivors: %v", got)
	}
}

func TestIDsSorted(t *testing.T) {
	s := NewSelection()
	s.SelectAll([]int64{5, 1, 3})
	if got := s.IDs(); !reflect.DeepEqual(got, []int64{1, 3, 5}) {
		t.Fatalf("expected sorted ids, got %v", got)
	}
}
