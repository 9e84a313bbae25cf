// Package dispatch defines the fixed-shape table of call-signature entries
// that represents one manager implementation across the boundary, and the
// plugin-side shim that populates such a table from a native implementation.
//
// Every entry follows one convention: an error-text StringBuffer first, then
// out-parameters, then in-parameters, then the subject's handle, returning a
// result code. No entry ever lets a panic escape; internal failures become a
// non-zero code plus a message in the error buffer.
package dispatch

import (
	"fmt"

	"github.com/snowmerak/bridge.go/lib/result"
	"github.com/snowmerak/bridge.go/lib/wire"
)

// ABIVersion is the major version of the table shape. It is encoded in the
// plugin entry-point symbol name so that incompatible hosts and plugins never
// bind to each other's tables. The shape of Table and PagerTable must not
// change within a major version.
const ABIVersion = 1

// Table is the ordered, fixed-shape set of entries for one manager
// implementation. Every entry, including every PagerTable entry, must be
// populated before the table crosses the boundary.
type Table struct {
	// Identifier writes the implementation's identifier into out.
	// Identifiers are documented to fit in 256 bytes.
	Identifier func(errBuf, out *wire.StringBuffer, h wire.ConstHandle) result.Code

	// DisplayName writes the human-presentable name into out.
	DisplayName func(errBuf, out *wire.StringBuffer, h wire.ConstHandle) result.Code

	// Info emits the implementation's descriptive key/value pairs.
	Info func(errBuf *wire.StringBuffer, emit func(key, value string), h wire.ConstHandle) result.Code

	// Initialize prepares the instance with the given settings.
	Initialize func(errBuf *wire.StringBuffer, h wire.Handle, settings []wire.Pair) result.Code

	// Resolve starts a multi-item resolution and yields a pager handle to be
	// driven through the Pager entries.
	Resolve func(errBuf *wire.StringBuffer, outPager *wire.Handle, h wire.Handle, refs []string, pageSize int) result.Code

	// Destroy releases the instance behind h. It must be called exactly once
	// per handle, only by the side that received the handle from Expose, and
	// never reentered. Entries invoked after Destroy report bad-handle.
	Destroy func(errBuf *wire.StringBuffer, h wire.Handle) result.Code

	// Pager is the entry suite for handles yielded by Resolve.
	Pager *PagerTable
}

// PagerTable is the fixed entry suite for walking a page producer.
type PagerTable struct {
	// HasNext stores whether a further page exists into out.
	HasNext func(errBuf *wire.StringBuffer, out *bool, h wire.ConstHandle) result.Code

	// Get emits the current page's items without advancing. Successful items
	// arrive as (OK, data, ""); failed items as (batch code, nil, message).
	Get func(errBuf *wire.StringBuffer, emit func(code result.Code, data []byte, message string), h wire.ConstHandle) result.Code

	// Next advances to the next page.
	Next func(errBuf *wire.StringBuffer, h wire.Handle) result.Code

	// Destroy releases the producer. Called exactly once per pager handle.
	Destroy func(errBuf *wire.StringBuffer, h wire.Handle) result.Code
}

// Validate checks that every entry is populated. A table with any nil entry
// must never be handed across the boundary.
func (t *Table) Validate() error {
	if t == nil {
		return fmt.Errorf("dispatch: nil table")
	}
	entries := map[string]bool{
		"Identifier":  t.Identifier != nil,
		"DisplayName": t.DisplayName != nil,
		"Info":        t.Info != nil,
		"Initialize":  t.Initialize != nil,
		"Resolve":     t.Resolve != nil,
		"Destroy":     t.Destroy != nil,
	}
	for name, ok := range entries {
		if !ok {
			return fmt.Errorf("dispatch: table entry %s is nil", name)
		}
	}
	if t.Pager == nil {
		return fmt.Errorf("dispatch: pager table is nil")
	}
	pagerEntries := map[string]bool{
		"Pager.HasNext": t.Pager.HasNext != nil,
		"Pager.Get":     t.Pager.Get != nil,
		"Pager.Next":    t.Pager.Next != nil,
		"Pager.Destroy": t.Pager.Destroy != nil,
	}
	for name, ok := range pagerEntries {
		if !ok {
			return fmt.Errorf("dispatch: table entry %s is nil", name)
		}
	}
	return nil
}
