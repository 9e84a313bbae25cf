//go:build windows

package loader

import "fmt"

// Native plugin modules are not loadable on Windows; only in-process
// registered modules are available there.
func openNative(path string) (Entry, error) {
	return nil, fmt.Errorf("native plugin modules are not supported on windows: %s", path)
}
