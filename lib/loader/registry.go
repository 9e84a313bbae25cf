package loader

import "sync"

// The in-process registry covers modules that are already linked into the
// host rather than loaded from disk. Scans pick registered entries up after
// the filesystem candidates, in registration order.

var (
	registryMu sync.Mutex
	registry   []Entry
)

// Register adds an in-process module entry point. It is typically called
// from an init function of a statically linked plugin package.
func Register(entry Entry) {
	if entry == nil {
		return
	}
	registryMu.Lock()
	defer registryMu.Unlock()
	registry = append(registry, entry)
}

// registered snapshots the registry so a scan is unaffected by concurrent
// registration.
func registered() []Entry {
	registryMu.Lock()
	defer registryMu.Unlock()
	snapshot := make([]Entry, len(registry))
	copy(snapshot, registry)
	return snapshot
}
