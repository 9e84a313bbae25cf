// Package bridge is the host-side boundary adapter: it wraps a received
// dispatch table plus instance handle and re-exposes the manager through
// ordinary Go calls and errors. Non-zero result codes become typed errors
// carrying the message from the error buffer; nothing below this package
// leaks result codes to host code.
package bridge

import (
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/snowmerak/bridge.go/lib/batch"
	"github.com/snowmerak/bridge.go/lib/dispatch"
	"github.com/snowmerak/bridge.go/lib/result"
	"github.com/snowmerak/bridge.go/lib/wire"
)

const (
	// errBufCapacity sizes the error-text buffer. Error messages longer than
	// this arrive truncated.
	errBufCapacity = 512

	// stringCapacity is the documented worst case for identifiers and display
	// names. A callee needing more triggers one retry at the reported size.
	stringCapacity = 256
)

// Manager is the host-native view over one boxed implementation. It owns the
// handle it was created with: Close destroys it exactly once, and also closes
// any pagers the consumer abandoned.
type Manager struct {
	table  *dispatch.Table
	handle wire.Handle
	closed atomic.Bool

	mu     sync.Mutex
	pagers map[*batch.Pager]struct{}
}

// Wrap validates the table and adopts the handle. The table must have every
// entry populated and the handle must be live; a failed Wrap leaves ownership
// of the handle with the caller.
func Wrap(table *dispatch.Table, h wire.Handle) (*Manager, error) {
	if err := table.Validate(); err != nil {
		return nil, fmt.Errorf("bridge: refusing invalid table: %w", err)
	}
	if !h.IsValid() {
		return nil, fmt.Errorf("bridge: invalid instance handle")
	}
	return &Manager{
		table:  table,
		handle: h,
		pagers: make(map[*batch.Pager]struct{}),
	}, nil
}

// callString drives a string-out entry through the caller-allocated buffer
// protocol, retrying once with the callee-reported length on
// buffer-too-small.
func (m *Manager) callString(entry func(errBuf, out *wire.StringBuffer, h wire.ConstHandle) result.Code) (string, error) {
	if m.closed.Load() {
		return "", fmt.Errorf("manager is closed")
	}

	errBuf := wire.NewStringBuffer(errBufCapacity)
	out := wire.NewStringBuffer(stringCapacity)

	code := entry(errBuf, out, m.handle.Const())
	if code == result.ErrBufferTooSmall && out.Needed() > out.Capacity() {
		out = wire.NewStringBuffer(out.Needed())
		errBuf.Reset()
		code = entry(errBuf, out, m.handle.Const())
	}
	if err := result.Decode(code, errBuf.String(), -1); err != nil {
		return "", err
	}
	return out.String(), nil
}

// Identifier returns the implementation's identifier.
func (m *Manager) Identifier() (string, error) {
	return m.callString(m.table.Identifier)
}

// DisplayName returns the implementation's human-presentable name.
func (m *Manager) DisplayName() (string, error) {
	return m.callString(m.table.DisplayName)
}

// Info returns the implementation's descriptive key/value pairs.
func (m *Manager) Info() (map[string]string, error) {
	if m.closed.Load() {
		return nil, fmt.Errorf("manager is closed")
	}

	errBuf := wire.NewStringBuffer(errBufCapacity)
	info := make(map[string]string)
	code := m.table.Info(errBuf, func(key, value string) {
		info[key] = value
	}, m.handle.Const())
	if err := result.Decode(code, errBuf.String(), -1); err != nil {
		return nil, err
	}
	return info, nil
}

// Initialize prepares the implementation with the given settings.
func (m *Manager) Initialize(settings map[string]string) error {
	if m.closed.Load() {
		return fmt.Errorf("manager is closed")
	}

	errBuf := wire.NewStringBuffer(errBufCapacity)
	code := m.table.Initialize(errBuf, m.handle, wire.PairsFromMap(settings))
	return result.Decode(code, errBuf.String(), -1)
}

// Resolve starts a multi-item resolution and returns the pager that walks
// its per-item outcomes. The caller must Close the pager exactly once; a
// pager still open when the manager closes is closed on the caller's behalf.
func (m *Manager) Resolve(refs []string, pageSize int) (*batch.Pager, error) {
	if m.closed.Load() {
		return nil, fmt.Errorf("manager is closed")
	}

	errBuf := wire.NewStringBuffer(errBufCapacity)
	var pagerHandle wire.Handle
	code := m.table.Resolve(errBuf, &pagerHandle, m.handle, refs, pageSize)
	if err := result.Decode(code, errBuf.String(), -1); err != nil {
		return nil, err
	}

	pager := m.newPager(pagerHandle)

	m.mu.Lock()
	m.pagers[pager] = struct{}{}
	m.mu.Unlock()

	return pager, nil
}

// newPager builds the pull-side view over a producer handle. Item indexes in
// per-item errors are positions within the current page.
func (m *Manager) newPager(h wire.Handle) *batch.Pager {
	pt := m.table.Pager

	var pager *batch.Pager
	pager = batch.NewPager(batch.Ops{
		HasNext: func() (bool, error) {
			errBuf := wire.NewStringBuffer(errBufCapacity)
			var hasNext bool
			code := pt.HasNext(errBuf, &hasNext, h.Const())
			if err := result.Decode(code, errBuf.String(), -1); err != nil {
				return false, err
			}
			return hasNext, nil
		},
		Get: func() ([]batch.Item, error) {
			errBuf := wire.NewStringBuffer(errBufCapacity)
			var items []batch.Item
			code := pt.Get(errBuf, func(itemCode result.Code, data []byte, message string) {
				if itemCode == result.OK {
					items = append(items, batch.Item{Data: data})
					return
				}
				items = append(items, batch.Item{
					Err: result.Decode(itemCode, message, len(items)),
				})
			}, h.Const())
			if err := result.Decode(code, errBuf.String(), -1); err != nil {
				return nil, err
			}
			return items, nil
		},
		Next: func() error {
			errBuf := wire.NewStringBuffer(errBufCapacity)
			code := pt.Next(errBuf, h)
			return result.Decode(code, errBuf.String(), -1)
		},
		Close: func() error {
			errBuf := wire.NewStringBuffer(errBufCapacity)
			code := pt.Destroy(errBuf, h)
			return result.Decode(code, errBuf.String(), -1)
		},
	}, func() {
		m.mu.Lock()
		delete(m.pagers, pager)
		m.mu.Unlock()
	})
	return pager
}

// Close destroys the boxed instance. The first call wins; later calls are
// no-ops. Pagers the consumer abandoned are closed first, and teardown
// failures are swallowed and logged rather than propagated.
func (m *Manager) Close() error {
	if !m.closed.CompareAndSwap(false, true) {
		return nil
	}

	m.mu.Lock()
	open := make([]*batch.Pager, 0, len(m.pagers))
	for p := range m.pagers {
		open = append(open, p)
	}
	m.mu.Unlock()

	for _, p := range open {
		p.CloseDiscarded()
	}

	errBuf := wire.NewStringBuffer(errBufCapacity)
	code := m.table.Destroy(errBuf, m.handle)
	if code != result.OK {
		Logger().Warn("destroying manager instance failed",
			zap.String("code", code.String()),
			zap.String("message", errBuf.String()))
	}
	return nil
}
