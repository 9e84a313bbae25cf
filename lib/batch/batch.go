// Package batch delivers the per-item outcomes of a multi-item call as a
// pull-based, paginated stream. One item's failure never fails its siblings;
// each item independently carries either a payload or a per-item error.
package batch

// Item is the outcome of one element of a multi-item call. Exactly one of
// Data and Err is meaningful: a nil Err means the item succeeded and Data
// holds its payload.
type Item struct {
	Data []byte
	Err  error
}

// Source is the producing side of the channel, implemented natively by a
// manager. The consumer walks it in strict sequence from a single goroutine:
// HasNext and Get are local inspections of the current page, Next performs
// whatever work fetching the following page requires, and Close releases the
// producer's resources.
type Source interface {
	// HasNext reports whether a page exists beyond the current one.
	HasNext() bool

	// Get returns the current page's items without advancing.
	Get() []Item

	// Next advances to the next page. It may fail.
	Next() error

	// Close releases the producer's resources.
	Close() error
}

// SliceSource pages over a precomputed item list. It is the convenient way
// for a manager to satisfy Source when the full result set is already in
// memory.
type SliceSource struct {
	items    []Item
	pageSize int
	offset   int
}

// NewSliceSource creates a source over items with the given page size.
// A non-positive page size is treated as one item per page.
func NewSliceSource(items []Item, pageSize int) *SliceSource {
	if pageSize <= 0 {
		pageSize = 1
	}
	return &SliceSource{items: items, pageSize: pageSize}
}

// HasNext implements Source.
func (s *SliceSource) HasNext() bool {
	return s.offset+s.pageSize < len(s.items)
}

// Get implements Source.
func (s *SliceSource) Get() []Item {
	if s.offset >= len(s.items) {
		return nil
	}
	end := s.offset + s.pageSize
	if end > len(s.items) {
		end = len(s.items)
	}
	return s.items[s.offset:end]
}

// Next implements Source.
func (s *SliceSource) Next() error {
	if s.offset < len(s.items) {
		s.offset += s.pageSize
	}
	return nil
}

// Close implements Source.
func (s *SliceSource) Close() error {
	s.items = nil
	return nil
}
