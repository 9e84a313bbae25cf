//go:build !windows

package loader

import (
	"fmt"
	"plugin"
)

// openNative loads a module file and resolves its entry point. The symbol
// must be the fixed, version-suffixed EntrySymbol; anything else means the
// module was built against a different ABI version and must not bind.
func openNative(path string) (Entry, error) {
	p, err := plugin.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open plugin %s: %w", path, err)
	}

	sym, err := p.Lookup(EntrySymbol)
	if err != nil {
		return nil, fmt.Errorf("plugin %s missing entry point %s: %w", path, EntrySymbol, err)
	}

	switch v := sym.(type) {
	case Entry:
		return v, nil
	case *Entry:
		return *v, nil
	case func() Factory:
		return v, nil
	default:
		return nil, fmt.Errorf("plugin %s entry point %s has wrong type %T", path, EntrySymbol, sym)
	}
}
