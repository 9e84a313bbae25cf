// Package loader discovers and catalogs plugin-supplied manager
// implementations. A scan walks configured filesystem locations for native
// plugin modules, resolves each module's single well-known entry point, and
// registers the factory it yields under the implementation's identifier.
// Broken candidates are logged and skipped; they never fail the scan.
package loader

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/snowmerak/bridge.go/lib/dispatch"
	"github.com/snowmerak/bridge.go/lib/manager"
)

// EntrySymbol is the fixed name of the one symbol a plugin module exports.
// The version suffix is derived from dispatch.ABIVersion so that
// incompatible hosts and plugins never bind to each other.
var EntrySymbol = fmt.Sprintf("BridgePluginEntry_v%d", dispatch.ABIVersion)

// Factory produces a fresh manager implementation per invocation. Factories
// are cached by the loader and must be safely re-invocable; they must not
// panic, and they signal "no instance" by returning nil.
type Factory func() (manager.Interface, error)

// Entry is the type of a module's exported entry point. The entry itself
// returns the factory rather than an instance: a boundary-callable entry
// point may only yield a plain function address, so the real construction
// happens one call later, through ordinary calling convention.
type Entry func() Factory

// State describes where the loader is in its scan lifecycle.
type State int32

const (
	StateUnscanned State = iota
	StateScanning
	StateScanned
)

// String returns the state's name.
func (s State) String() string {
	switch s {
	case StateUnscanned:
		return "unscanned"
	case StateScanning:
		return "scanning"
	case StateScanned:
		return "scanned"
	default:
		return "unknown"
	}
}

// ErrNotFound is returned by Instantiate for an unregistered identifier.
var ErrNotFound = errors.New("loader: identifier not registered")

// Loader scans for plugins and catalogs their factories. The catalog is
// written only during Scan; Identifiers and Instantiate are safe to call
// concurrently once a scan has completed, but Scan must not run concurrently
// with them or with itself.
type Loader struct {
	state    atomic.Int32
	scanning atomic.Bool

	mu        sync.RWMutex
	factories map[string]Factory
}

// New creates a loader with an empty catalog.
func New() *Loader {
	return &Loader{
		factories: make(map[string]Factory),
	}
}

// State returns the loader's current lifecycle state.
func (l *Loader) State() State {
	return State(l.state.Load())
}

// Scan enumerates candidate plugin modules at the given locations, plus any
// factories registered in-process, and catalogs every implementation that
// loads cleanly. Scanning with zero locations is valid and yields whatever
// the in-process registry provides, possibly an empty catalog.
//
// A candidate that fails to load, exposes no entry point, yields no
// instance, or reports a malformed or duplicate identifier is logged and
// skipped; the scan continues and returns nil.
func (l *Loader) Scan(ctx context.Context, locations []string) error {
	if !l.scanning.CompareAndSwap(false, true) {
		return fmt.Errorf("scan already in progress")
	}
	defer l.scanning.Store(false)

	l.state.Store(int32(StateScanning))
	defer l.state.Store(int32(StateScanned))

	for _, path := range discover(locations) {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("scan interrupted: %w", err)
		}
		entry, err := openNative(path)
		if err != nil {
			Logger().Warn("skipping unloadable plugin module",
				zap.String("path", path), zap.Error(err))
			continue
		}
		l.adopt(path, entry)
	}

	for i, entry := range registered() {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("scan interrupted: %w", err)
		}
		l.adopt(fmt.Sprintf("<in-process #%d>", i), entry)
	}

	return nil
}

// adopt resolves one candidate's factory and identifier and registers it.
// Failures reject the candidate, never the scan.
func (l *Loader) adopt(origin string, entry Entry) {
	factory, err := callEntry(entry)
	if err != nil {
		Logger().Warn("plugin entry point failed",
			zap.String("path", origin), zap.Error(err))
		return
	}
	if factory == nil {
		Logger().Warn("plugin entry point yielded no factory",
			zap.String("path", origin))
		return
	}

	instance, err := callFactory(factory)
	if err != nil {
		Logger().Warn("plugin factory failed",
			zap.String("path", origin), zap.Error(err))
		return
	}
	if instance == nil {
		Logger().Warn("plugin factory yielded no instance",
			zap.String("path", origin))
		return
	}

	id, err := readIdentifier(instance)
	if err != nil {
		Logger().Warn("plugin identifier unreadable",
			zap.String("path", origin), zap.Error(err))
		return
	}
	if err := manager.ValidateIdentifier(id); err != nil {
		Logger().Warn("plugin identifier malformed",
			zap.String("path", origin), zap.Error(err))
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if _, exists := l.factories[id]; exists {
		Logger().Warn("duplicate plugin identifier rejected",
			zap.String("path", origin), zap.String("identifier", id))
		return
	}
	l.factories[id] = factory
	Logger().Info("plugin registered",
		zap.String("path", origin), zap.String("identifier", id))
}

// Identifiers returns the stable sorted list of registered identifiers.
func (l *Loader) Identifiers() []string {
	l.mu.RLock()
	defer l.mu.RUnlock()

	ids := make([]string, 0, len(l.factories))
	for id := range l.factories {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Instantiate re-invokes the stored factory for a fresh, independent
// implementation instance. The loader caches only factories, never
// instances; every call yields a new one.
func (l *Loader) Instantiate(id string) (manager.Interface, error) {
	l.mu.RLock()
	factory, exists := l.factories[id]
	l.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	instance, err := callFactory(factory)
	if err != nil {
		return nil, fmt.Errorf("factory for %s failed: %w", id, err)
	}
	if instance == nil {
		return nil, fmt.Errorf("factory for %s yielded no instance", id)
	}
	return instance, nil
}

// callEntry invokes a module entry point. Entry points are required not to
// panic; a panic here still must not kill the scan, so it is converted into
// an error for the candidate.
func callEntry(entry Entry) (factory Factory, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("entry point panicked: %v", r)
		}
	}()
	return entry(), nil
}

// callFactory invokes a factory under the same panic containment.
func callFactory(factory Factory) (instance manager.Interface, err error) {
	defer func() {
		if r := recover(); r != nil {
			instance = nil
			err = fmt.Errorf("factory panicked: %v", r)
		}
	}()
	return factory()
}

// readIdentifier queries an instance's identifier, containing panics.
func readIdentifier(instance manager.Interface) (id string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("identifier accessor panicked: %v", r)
		}
	}()
	return instance.Identifier(), nil
}
