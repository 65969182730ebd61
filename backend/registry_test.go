package backend

import (
	"errors"
	"reflect"
	"testing"

	"github.com/gogpu/ggdraw/gpucore"
	"github.com/gogpu/ggdraw/gpuctx"
	"github.com/gogpu/ggdraw/internal/gputest"
	"github.com/gogpu/gpucontext"
)

func withRegistry(t *testing.T, entries map[string]Factory) {
	t.Helper()
	registryMu.Lock()
	saved := backends
	backends = make(map[string]Factory)
	for name, f := range entries {
		backends[name] = f
	}
	registryMu.Unlock()
	t.Cleanup(func() {
		registryMu.Lock()
		backends = saved
		registryMu.Unlock()
	})
}

func fixed(dev gpucore.Device, err error) Factory {
	return func(gpucontext.DeviceProvider) (gpucore.Device, error) { return dev, err }
}

func TestRegisterAndAvailable(t *testing.T) {
	withRegistry(t, nil)

	Register("zeta", fixed(gputest.New(), nil))
	Register("alpha", fixed(gputest.New(), nil))
	if got, want := Available(), []string{"alpha", "zeta"}; !reflect.DeepEqual(got, want) {
		t.Errorf("Available() = %v, want %v", got, want)
	}
	if !IsRegistered("alpha") {
		t.Error("IsRegistered(alpha) = false")
	}
	Unregister("alpha")
	if IsRegistered("alpha") {
		t.Error("alpha still registered after Unregister")
	}
}

func TestOpenUnknown(t *testing.T) {
	withRegistry(t, nil)

	_, err := Open("missing", gpuctx.NullDeviceHandle{})
	if !errors.Is(err, ErrBackendNotAvailable) {
		t.Errorf("Open(missing) error = %v, want ErrBackendNotAvailable", err)
	}
}

func TestDefaultPriority(t *testing.T) {
	hal := gputest.New()
	other := gputest.New()
	withRegistry(t, map[string]Factory{
		"aaa":      fixed(other, nil),
		BackendHAL: fixed(hal, nil),
	})

	dev, name, err := Default(gpuctx.NullDeviceHandle{})
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}
	if name != BackendHAL || dev != gpucore.Device(hal) {
		t.Errorf("Default() picked %q, want %q", name, BackendHAL)
	}
}

func TestDefaultSkipsNoDevice(t *testing.T) {
	fallback := gputest.New()
	withRegistry(t, map[string]Factory{
		BackendHAL: fixed(nil, ErrNoDevice),
		"recorder": fixed(fallback, nil),
	})

	dev, name, err := Default(gpuctx.NullDeviceHandle{})
	if err != nil {
		t.Fatalf("Default() error = %v", err)
	}
	if name != "recorder" || dev != gpucore.Device(fallback) {
		t.Errorf("Default() picked %q, want recorder", name)
	}
}

func TestDefaultStopsOnHardError(t *testing.T) {
	boom := errors.New("boom")
	withRegistry(t, map[string]Factory{
		BackendHAL: fixed(nil, boom),
		"recorder": fixed(gputest.New(), nil),
	})

	if _, _, err := Default(gpuctx.NullDeviceHandle{}); !errors.Is(err, boom) {
		t.Errorf("Default() error = %v, want boom", err)
	}
}

func TestDefaultEmpty(t *testing.T) {
	withRegistry(t, nil)
	if _, _, err := Default(gpuctx.NullDeviceHandle{}); !errors.Is(err, ErrBackendNotAvailable) {
		t.Errorf("Default() error = %v, want ErrBackendNotAvailable", err)
	}
}

func TestContextFactory(t *testing.T) {
	dev := gputest.New()
	withRegistry(t, map[string]Factory{BackendHAL: fixed(dev, nil)})

	ctx, err := ContextFactory(gpuctx.NullDeviceHandle{})()
	if err != nil {
		t.Fatalf("factory error = %v", err)
	}
	if !ctx.Background() {
		t.Error("factory context is not marked background")
	}
	if ctx.Device() != gpucore.Device(dev) {
		t.Error("factory context does not use the selected device")
	}
	if ctx.Label() != "background/hal" {
		t.Errorf("Label() = %q", ctx.Label())
	}
}
