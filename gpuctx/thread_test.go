package gpuctx

import (
	"errors"
	"testing"

	"github.com/gogpu/ggdraw/internal/gputest"
)

func TestThreadCurrent(t *testing.T) {
	th := NewThread()
	if th.Current() != nil {
		t.Fatal("new thread has a current context")
	}

	ctx := New(gputest.New())
	th.MakeCurrent(ctx)
	if th.Current() != ctx {
		t.Error("Current() did not return the context made current")
	}

	ctx.Close()
	if th.Current() != nil {
		t.Error("closed context still reported as current")
	}

	th.MakeCurrent(nil)
	if th.Current() != nil {
		t.Error("MakeCurrent(nil) did not clear the context")
	}
}

func TestThreadHostCurrent(t *testing.T) {
	host := New(gputest.New(), WithLabel("window"))
	th := NewThread(WithHostCurrent(func() *Context { return host }))
	if th.Current() != host {
		t.Fatal("Current() did not fall back to the host context")
	}

	own := New(gputest.New())
	th.MakeCurrent(own)
	if th.Current() != own {
		t.Error("explicit context does not take precedence over the host")
	}
}

func TestThreadEnsure(t *testing.T) {
	created := 0
	th := NewThread(WithFactory(func() (*Context, error) {
		created++
		return New(gputest.New(), WithBackground()), nil
	}))

	a, err := th.Ensure()
	if err != nil {
		t.Fatalf("Ensure() = %v", err)
	}
	b, err := th.Ensure()
	if err != nil {
		t.Fatalf("Ensure() = %v", err)
	}
	if a != b || created != 1 {
		t.Errorf("Ensure() created %d contexts, want 1 reused", created)
	}
	if !a.Background() || th.Background() != a {
		t.Error("Ensure() did not install a background context")
	}

	// A closed background context is replaced.
	a.Close()
	c, err := th.Ensure()
	if err != nil {
		t.Fatalf("Ensure() = %v", err)
	}
	if c == a || created != 2 {
		t.Errorf("closed background context was reused (created=%d)", created)
	}
}

func TestThreadEnsureKeepsCurrent(t *testing.T) {
	th := NewThread(WithFactory(func() (*Context, error) {
		t.Fatal("factory called while a context is current")
		return nil, nil
	}))
	ctx := New(gputest.New())
	th.MakeCurrent(ctx)
	got, err := th.Ensure()
	if err != nil || got != ctx {
		t.Errorf("Ensure() = %v, %v; want current context", got, err)
	}
}

func TestThreadEnsureErrors(t *testing.T) {
	if _, err := NewThread().Ensure(); !errors.Is(err, ErrNoFactory) {
		t.Errorf("Ensure() without factory = %v, want ErrNoFactory", err)
	}

	boom := errors.New("no adapter")
	th := NewThread(WithFactory(func() (*Context, error) { return nil, boom }))
	if _, err := th.Ensure(); !errors.Is(err, boom) {
		t.Errorf("Ensure() = %v, want wrapped %v", err, boom)
	}
	if th.Current() != nil {
		t.Error("failed Ensure() left a current context")
	}
}
