package backend

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/gogpu/ggdraw/gpucore"
	"github.com/gogpu/ggdraw/gpuctx"
	"github.com/gogpu/ggdraw/internal/logging"
	"github.com/gogpu/gpucontext"
)

// registry holds registered backends.
var (
	registryMu sync.RWMutex
	backends   = make(map[string]Factory)
	// Priority order for backend selection (first available wins).
	backendPriority = []string{BackendHAL}
)

// Register registers a backend factory with the given name.
// This is typically called from init() functions in backend packages.
// If a backend with the same name is already registered, it will be replaced.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	backends[name] = factory
}

// Unregister removes a backend from the registry.
// This is useful for testing.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(backends, name)
}

// Available returns the registered backend names in sorted order.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered checks if a backend with the given name is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := backends[name]
	return ok
}

// Open opens the named backend on handle.
func Open(name string, handle gpucontext.DeviceProvider) (gpucore.Device, error) {
	registryMu.RLock()
	factory, ok := backends[name]
	registryMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrBackendNotAvailable, name)
	}
	return factory(handle)
}

// Default opens the best available backend on handle.
// Backends in the priority list are tried first, then the remaining ones in
// name order. A factory returning ErrNoDevice is skipped; any other error
// stops the search.
func Default(handle gpucontext.DeviceProvider) (gpucore.Device, string, error) {
	registryMu.RLock()
	order := make([]string, 0, len(backends))
	seen := make(map[string]bool, len(backends))
	for _, name := range backendPriority {
		if _, ok := backends[name]; ok {
			order = append(order, name)
			seen[name] = true
		}
	}
	rest := make([]string, 0, len(backends))
	for name := range backends {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	order = append(order, rest...)
	factories := make([]Factory, len(order))
	for i, name := range order {
		factories[i] = backends[name]
	}
	registryMu.RUnlock()

	for i, factory := range factories {
		dev, err := factory(handle)
		switch {
		case err == nil && dev != nil:
			logging.Logger().Info("backend: selected", slog.String("name", order[i]))
			return dev, order[i], nil
		case err != nil && !errors.Is(err, ErrNoDevice):
			return nil, order[i], fmt.Errorf("backend %q: %w", order[i], err)
		}
	}
	return nil, "", ErrBackendNotAvailable
}

// ContextFactory returns a gpuctx.Factory that opens the default backend on
// handle and wraps the device in a background context. It is the usual
// factory for gpuctx.Thread.Ensure.
func ContextFactory(handle gpucontext.DeviceProvider) gpuctx.Factory {
	return func() (*gpuctx.Context, error) {
		dev, name, err := Default(handle)
		if err != nil {
			return nil, err
		}
		return gpuctx.New(dev,
			gpuctx.WithBackground(),
			gpuctx.WithDeviceHandle(handle),
			gpuctx.WithLabel("background/"+name)), nil
	}
}
