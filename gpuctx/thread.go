// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package gpuctx

import (
	"errors"
	"fmt"
)

// ErrNoFactory is returned by Ensure when no context is current and the
// thread has no way to create a background one.
var ErrNoFactory = errors.New("gpuctx: no current context and no background factory")

// Factory creates a background context for a Thread.
// backend.ContextFactory is the usual implementation.
type Factory func() (*Context, error)

// ThreadOption configures a Thread.
type ThreadOption func(*Thread)

// WithFactory sets the background-context factory used by Ensure.
func WithFactory(f Factory) ThreadOption {
	return func(t *Thread) { t.factory = f }
}

// WithHostCurrent sets a callback asking the windowing layer for its current
// context. It is consulted when the thread has no explicit current context.
func WithHostCurrent(fn func() *Context) ThreadOption {
	return func(t *Thread) { t.host = fn }
}

// Thread is the current-context slot of one goroutine.
//
// A Thread must only be used by the goroutine that owns it. Two goroutines
// that issue GPU calls each own a Thread; they may share contexts only when
// the host guarantees the contexts share resources.
type Thread struct {
	current    *Context
	background *Context
	factory    Factory
	host       func() *Context
}

// NewThread creates a thread with no current context.
func NewThread(opts ...ThreadOption) *Thread {
	t := &Thread{}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// Current returns the current context, or nil.
// A closed context is never reported as current.
func (t *Thread) Current() *Context {
	if t.current != nil && !t.current.Closed() {
		return t.current
	}
	if t.host != nil {
		if c := t.host(); c != nil && !c.Closed() {
			return c
		}
	}
	return nil
}

// MakeCurrent makes ctx the current context. Nil clears it.
func (t *Thread) MakeCurrent(ctx *Context) {
	t.current = ctx
}

// Ensure returns the current context, creating and making current a
// background context when none is current. It is meant for operations that
// need some context but do not care which.
func (t *Thread) Ensure() (*Context, error) {
	if c := t.Current(); c != nil {
		return c, nil
	}
	if t.background == nil || t.background.Closed() {
		if t.factory == nil {
			return nil, ErrNoFactory
		}
		c, err := t.factory()
		if err != nil {
			return nil, fmt.Errorf("gpuctx: create background context: %w", err)
		}
		t.background = c
	}
	t.current = t.background
	return t.current, nil
}

// Background returns the background context created by Ensure, if any.
func (t *Thread) Background() *Context { return t.background }
