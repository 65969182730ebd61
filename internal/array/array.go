// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package array implements a growable typed array with optional
// per-element construct and destruct hooks.
//
// Array is the CPU-side container behind the slab range lists. Capacity
// only grows until ShrinkToFit is called. Allocation failure is not
// reported: the Go runtime aborts, which matches the convention that
// running out of host memory is fatal.
package array

import "unsafe"

// Hook is called on one element when Resize constructs or destructs it.
type Hook[T any] func(*T)

// Option configures an Array at creation.
type Option[T any] func(*Array[T])

// WithConstructor registers a hook run on every element added by Resize.
func WithConstructor[T any](h Hook[T]) Option[T] {
	return func(a *Array[T]) { a.ctor = h }
}

// WithDestructor registers a hook run on every element removed by Resize.
func WithDestructor[T any](h Hook[T]) Option[T] {
	return func(a *Array[T]) { a.dtor = h }
}

// WithCapacity preallocates room for n elements.
func WithCapacity[T any](n int) Option[T] {
	return func(a *Array[T]) { a.Reserve(n) }
}

// Array is a resizable contiguous buffer of T.
//
// The zero value is an empty array ready to use.
// Array is not safe for concurrent use.
type Array[T any] struct {
	data []T
	ctor Hook[T]
	dtor Hook[T]
}

// New creates an empty array.
func New[T any](opts ...Option[T]) *Array[T] {
	a := &Array[T]{}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ElemSize returns the size in bytes of one element.
func (a *Array[T]) ElemSize() uintptr {
	var zero T
	return unsafe.Sizeof(zero)
}

// Len returns the number of elements.
func (a *Array[T]) Len() int { return len(a.data) }

// Cap returns the number of elements the array can hold without growing.
func (a *Array[T]) Cap() int { return cap(a.data) }

// Get returns a pointer to element i, or nil if i is out of bounds.
// The pointer is invalidated by any operation that grows the array.
func (a *Array[T]) Get(i int) *T {
	if i < 0 || i >= len(a.data) {
		return nil
	}
	return &a.data[i]
}

// Slice returns the elements as a slice sharing the array's storage.
// Callers must not append to it.
func (a *Array[T]) Slice() []T { return a.data }

// Push appends v.
func (a *Array[T]) Push(v T) {
	a.data = append(a.data, v)
}

// Insert places v at index i, shifting later elements up by one.
// i may equal Len, in which case Insert behaves like Push.
func (a *Array[T]) Insert(i int, v T) {
	if i < 0 || i > len(a.data) {
		panic("array: insert index out of range")
	}
	var zero T
	a.data = append(a.data, zero)
	copy(a.data[i+1:], a.data[i:])
	a.data[i] = v
}

// Delete removes element i, shifting later elements down by one.
// It does not run the destructor hook; the element is handed back.
func (a *Array[T]) Delete(i int) T {
	if i < 0 || i >= len(a.data) {
		panic("array: delete index out of range")
	}
	v := a.data[i]
	copy(a.data[i:], a.data[i+1:])
	var zero T
	a.data[len(a.data)-1] = zero
	a.data = a.data[:len(a.data)-1]
	return v
}

// Resize sets the length to n.
// Shrinking runs the destructor on each removed element, last first.
// Growing zero-initialises new elements and runs the constructor on each.
func (a *Array[T]) Resize(n int) {
	if n < 0 {
		panic("array: negative size")
	}
	old := len(a.data)
	switch {
	case n < old:
		var zero T
		for i := old - 1; i >= n; i-- {
			if a.dtor != nil {
				a.dtor(&a.data[i])
			}
			a.data[i] = zero
		}
		a.data = a.data[:n]
	case n > old:
		a.Reserve(n)
		a.data = a.data[:n]
		var zero T
		for i := old; i < n; i++ {
			a.data[i] = zero
			if a.ctor != nil {
				a.ctor(&a.data[i])
			}
		}
	}
}

// Reserve grows the capacity to at least n elements.
func (a *Array[T]) Reserve(n int) {
	if n <= cap(a.data) {
		return
	}
	c := cap(a.data) * 2
	if c < n {
		c = n
	}
	data := make([]T, len(a.data), c)
	copy(data, a.data)
	a.data = data
}

// ShrinkToFit releases unused capacity.
func (a *Array[T]) ShrinkToFit() {
	if len(a.data) == cap(a.data) {
		return
	}
	data := make([]T, len(a.data))
	copy(data, a.data)
	a.data = data
}

// Clear empties the array without running hooks and keeps its capacity.
func (a *Array[T]) Clear() {
	var zero T
	for i := range a.data {
		a.data[i] = zero
	}
	a.data = a.data[:0]
}
