// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package array

import (
	"reflect"
	"testing"
)

func TestGetOutOfBounds(t *testing.T) {
	a := New[int]()
	a.Push(7)

	tests := []struct {
		name    string
		i       int
		wantNil bool
	}{
		{"first", 0, false},
		{"negative", -1, true},
		{"past end", 1, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := a.Get(tt.i)
			if (got == nil) != tt.wantNil {
				t.Errorf("Get(%d) = %v, want nil=%v", tt.i, got, tt.wantNil)
			}
		})
	}
	if *a.Get(0) != 7 {
		t.Errorf("Get(0) = %d, want 7", *a.Get(0))
	}
}

func TestInsertDelete(t *testing.T) {
	a := New[int]()
	for _, v := range []int{1, 2, 4} {
		a.Push(v)
	}
	a.Insert(2, 3)
	a.Insert(0, 0)
	a.Insert(a.Len(), 5)
	if want := []int{0, 1, 2, 3, 4, 5}; !reflect.DeepEqual(a.Slice(), want) {
		t.Fatalf("after inserts = %v, want %v", a.Slice(), want)
	}

	if v := a.Delete(3); v != 3 {
		t.Errorf("Delete(3) = %d, want 3", v)
	}
	a.Delete(0)
	if want := []int{1, 2, 4, 5}; !reflect.DeepEqual(a.Slice(), want) {
		t.Fatalf("after deletes = %v, want %v", a.Slice(), want)
	}
}

func TestInsertOutOfRangePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Insert(5) on empty array did not panic")
		}
	}()
	New[int]().Insert(5, 1)
}

func TestResizeHooks(t *testing.T) {
	var built, destroyed []int
	next := 10
	a := New(
		WithConstructor(func(v *int) {
			*v = next
			built = append(built, next)
			next++
		}),
		WithDestructor(func(v *int) {
			destroyed = append(destroyed, *v)
		}),
	)

	a.Resize(3)
	if want := []int{10, 11, 12}; !reflect.DeepEqual(a.Slice(), want) {
		t.Fatalf("Resize(3) = %v, want %v", a.Slice(), want)
	}
	capBefore := a.Cap()

	a.Resize(1)
	if want := []int{12, 11}; !reflect.DeepEqual(destroyed, want) {
		t.Errorf("destructed %v, want %v", destroyed, want)
	}
	if a.Cap() != capBefore {
		t.Errorf("Cap() after shrink = %d, want %d", a.Cap(), capBefore)
	}

	// Regrowing into retained capacity must not expose stale values.
	a.Resize(2)
	if got := *a.Get(1); got != 13 {
		t.Errorf("regrown element = %d, want 13", got)
	}
	if len(built) != 4 {
		t.Errorf("constructor ran %d times, want 4", len(built))
	}
}

func TestReserveAndShrink(t *testing.T) {
	a := New(WithCapacity[byte](64))
	if a.Cap() < 64 {
		t.Fatalf("Cap() = %d, want >= 64", a.Cap())
	}
	a.Push(1)
	a.Reserve(8)
	if a.Cap() < 64 {
		t.Errorf("Reserve(8) shrank capacity to %d", a.Cap())
	}
	a.ShrinkToFit()
	if a.Cap() != 1 || a.Len() != 1 {
		t.Errorf("after ShrinkToFit Len=%d Cap=%d, want 1/1", a.Len(), a.Cap())
	}
}

func TestClearKeepsCapacity(t *testing.T) {
	var a Array[int]
	for i := range 10 {
		a.Push(i)
	}
	c := a.Cap()
	a.Clear()
	if a.Len() != 0 || a.Cap() != c {
		t.Errorf("after Clear Len=%d Cap=%d, want 0/%d", a.Len(), a.Cap(), c)
	}
}

func TestElemSize(t *testing.T) {
	type pair struct{ a, b int32 }
	if got := New[pair]().ElemSize(); got != 8 {
		t.Errorf("ElemSize() = %d, want 8", got)
	}
}
