package batch

import (
	"fmt"
	"testing"

	"github.com/snowmerak/bridge.go/lib/result"
)

func sourceOps(s Source) Ops {
	return Ops{
		HasNext: func() (bool, error) { return s.HasNext(), nil },
		Get:     func() ([]Item, error) { return s.Get(), nil },
		Next:    s.Next,
		Close:   s.Close,
	}
}

func TestSliceSource_Paging(t *testing.T) {
	items := []Item{
		{Data: []byte("a")},
		{Data: []byte("b")},
		{Data: []byte("c")},
	}
	s := NewSliceSource(items, 2)

	page := s.Get()
	if len(page) != 2 {
		t.Fatalf("Expected first page of 2, got %d", len(page))
	}
	if !s.HasNext() {
		t.Fatal("Expected a further page")
	}

	// Get must not advance.
	if again := s.Get(); len(again) != 2 || string(again[0].Data) != "a" {
		t.Error("Get advanced the source")
	}

	if err := s.Next(); err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	page = s.Get()
	if len(page) != 1 || string(page[0].Data) != "c" {
		t.Errorf("Expected final page [c], got %v", page)
	}
	if s.HasNext() {
		t.Error("No page should remain after the last")
	}
}

func TestSliceSource_PartialFailurePerItem(t *testing.T) {
	items := []Item{
		{Data: []byte("ok")},
		{Err: &result.BatchError{Code: result.BatchResolutionError, Index: 1, Message: "no such entity"}},
		{Data: []byte("also ok")},
	}
	s := NewSliceSource(items, 3)

	page := s.Get()
	if len(page) != 3 {
		t.Fatalf("Expected 3 items, got %d", len(page))
	}
	if page[0].Err != nil || page[2].Err != nil {
		t.Error("Failure of item 1 must not affect its siblings")
	}
	if page[1].Err == nil {
		t.Error("Item 1 should carry its error")
	}
}

func TestPager_CloseExactlyOnce(t *testing.T) {
	closeCount := 0
	s := NewSliceSource([]Item{{Data: []byte("x")}}, 1)
	ops := sourceOps(s)
	ops.Close = func() error {
		closeCount++
		return nil
	}

	p := NewPager(ops, nil)
	if err := p.Close(); err != nil {
		t.Fatalf("First close failed: %v", err)
	}
	if err := p.Close(); err != nil {
		t.Fatalf("Second close should be a no-op, got: %v", err)
	}
	if closeCount != 1 {
		t.Errorf("Producer close ran %d times, want 1", closeCount)
	}
}

func TestPager_CallsAfterCloseFail(t *testing.T) {
	p := NewPager(sourceOps(NewSliceSource(nil, 1)), nil)
	p.Close()

	if _, err := p.HasNext(); err == nil {
		t.Error("HasNext after close should fail")
	}
	if _, err := p.Get(); err == nil {
		t.Error("Get after close should fail")
	}
	if err := p.Next(); err == nil {
		t.Error("Next after close should fail")
	}
}

func TestPager_ReleaseRunsOnce(t *testing.T) {
	released := 0
	p := NewPager(sourceOps(NewSliceSource(nil, 1)), func() { released++ })

	p.Close()
	p.Close()
	if released != 1 {
		t.Errorf("Release ran %d times, want 1", released)
	}
}

func TestPager_CloseDiscardedSwallowsFailure(t *testing.T) {
	ops := sourceOps(NewSliceSource(nil, 1))
	ops.Close = func() error { return fmt.Errorf("producer teardown exploded") }

	p := NewPager(ops, nil)
	// Must not panic or surface the error.
	p.CloseDiscarded()

	if !p.closed.Load() {
		t.Error("Discarded pager should end up closed")
	}
}

func TestPager_NextFailureLeavesPagerUsable(t *testing.T) {
	calls := 0
	ops := Ops{
		HasNext: func() (bool, error) { return true, nil },
		Get:     func() ([]Item, error) { return []Item{{Data: []byte("p")}}, nil },
		Next: func() error {
			calls++
			if calls == 1 {
				return fmt.Errorf("transient boundary failure")
			}
			return nil
		},
		Close: func() error { return nil },
	}
	p := NewPager(ops, nil)

	if err := p.Next(); err == nil {
		t.Fatal("Expected first Next to fail")
	}
	if _, err := p.Get(); err != nil {
		t.Errorf("Pager should remain usable after a failed Next: %v", err)
	}
	if err := p.Next(); err != nil {
		t.Errorf("Second Next should succeed: %v", err)
	}
	p.Close()
}
