// Package manager defines the contract a plugin-supplied manager
// implementation satisfies. The bridge core never interprets the business
// meaning of references or resolved payloads; it only moves them across the
// boundary intact.
package manager

import (
	"fmt"

	"github.com/snowmerak/bridge.go/lib/batch"
)

// Interface is the native contract the boundary machinery wraps. A plugin's
// factory yields one fresh Interface per invocation.
//
// Implementations are called synchronously and must tolerate being driven by
// whatever scheduling model the host chooses. Resolve reports per-item
// failures through the returned source's items, never by failing the call.
type Interface interface {
	// Identifier returns the plugin's stable, unique identifier.
	// Conventionally reverse-DNS, e.g. "io.example.manager.test".
	Identifier() string

	// DisplayName returns a human-presentable name.
	DisplayName() string

	// Info returns descriptive key/value pairs about the implementation.
	Info() map[string]string

	// Initialize prepares the instance with host-supplied settings.
	Initialize(settings map[string]string) error

	// Resolve starts a multi-item resolution of the given references,
	// delivering per-item outcomes in pages of at most pageSize items.
	Resolve(refs []string, pageSize int) (batch.Source, error)
}

// identifier charset: alphanumeric plus '.', '_', '-'.
func identifierRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z':
		return true
	case r >= 'A' && r <= 'Z':
		return true
	case r >= '0' && r <= '9':
		return true
	case r == '.' || r == '_' || r == '-':
		return true
	}
	return false
}

// ValidateIdentifier checks that id is non-empty and uses only the permitted
// identifier characters.
func ValidateIdentifier(id string) error {
	if id == "" {
		return fmt.Errorf("identifier is empty")
	}
	for _, r := range id {
		if !identifierRune(r) {
			return fmt.Errorf("identifier %q contains invalid character %q", id, r)
		}
	}
	return nil
}
