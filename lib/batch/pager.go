package batch

import (
	"fmt"
	"sync/atomic"

	"go.uber.org/zap"
)

// Ops holds the boundary-crossing operations a Pager is built over. The
// host-side adapter supplies closures that forward each call through the
// producer's dispatch entries; tests can supply plain functions.
type Ops struct {
	HasNext func() (bool, error)
	Get     func() ([]Item, error)
	Next    func() error
	Close   func() error
}

// Pager is the consuming side of the channel: the host-native view over a
// remote page producer.
//
// A Pager is walked by a single logical consumer in strict sequence; it does
// no internal locking for interleaved use. Close must be called exactly once
// by the consumer, including on early abandonment. A second Close is a logged
// no-op, and a consumer that never closes is covered by its owner's teardown,
// which closes on the consumer's behalf and swallows any failure.
type Pager struct {
	ops     Ops
	closed  atomic.Bool
	release func()
}

// NewPager creates a pager over the given operations. release, if non-nil,
// runs exactly once when the pager is closed by any path, letting the owner
// forget the pager.
func NewPager(ops Ops, release func()) *Pager {
	return &Pager{ops: ops, release: release}
}

// HasNext reports whether a further page exists.
func (p *Pager) HasNext() (bool, error) {
	if p.closed.Load() {
		return false, fmt.Errorf("pager is closed")
	}
	return p.ops.HasNext()
}

// Get returns the current page's items without advancing.
func (p *Pager) Get() ([]Item, error) {
	if p.closed.Load() {
		return nil, fmt.Errorf("pager is closed")
	}
	return p.ops.Get()
}

// Next advances to the next page. It crosses the boundary and may fail; a
// failed Next leaves the pager on its current page.
func (p *Pager) Next() error {
	if p.closed.Load() {
		return fmt.Errorf("pager is closed")
	}
	return p.ops.Next()
}

// Close releases the producer's resources. The first call wins; later calls
// are logged and return nil.
func (p *Pager) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		Logger().Debug("pager closed more than once")
		return nil
	}
	if p.release != nil {
		p.release()
	}
	return p.ops.Close()
}

// CloseDiscarded closes an abandoned pager on behalf of its owner's teardown.
// Teardown paths must not propagate failures, so any error from the
// producer's close is swallowed and logged.
func (p *Pager) CloseDiscarded() {
	if err := p.Close(); err != nil {
		Logger().Warn("closing discarded pager failed", zap.Error(err))
	}
}
