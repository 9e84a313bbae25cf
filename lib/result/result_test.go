package result

import (
	"errors"
	"fmt"
	"testing"
)

func TestCode_RangesNeverOverlap(t *testing.T) {
	for c := Code(1); c < 256; c++ {
		if c.IsCallError() && c.IsBatchError() {
			t.Errorf("Code %d belongs to both ranges", c)
		}
		if c.IsOK() {
			t.Errorf("Non-zero code %d reported as success", c)
		}
	}
	if !OK.IsOK() {
		t.Error("OK should report success")
	}
}

func TestCode_NormalizeUnrecognized(t *testing.T) {
	if got := Code(99).Normalize(); got != ErrUnknown {
		t.Errorf("Unrecognized call-level code should normalize to ErrUnknown, got %s", got)
	}
	if got := Code(200).Normalize(); got != BatchUnknown {
		t.Errorf("Unrecognized batch code should normalize to BatchUnknown, got %s", got)
	}
	if got := Code(-7).Normalize(); got != ErrUnknown {
		t.Errorf("Negative code should normalize to ErrUnknown, got %s", got)
	}
	if got := OK.Normalize(); got != OK {
		t.Errorf("OK should normalize to OK, got %s", got)
	}
}

func TestDecode_RoundTripCallError(t *testing.T) {
	for _, code := range []Code{ErrUnknown, ErrException, ErrBadHandle, ErrBufferTooSmall, ErrNotImplemented} {
		err := Decode(code, "boom", -1)
		var callErr *CallError
		if !errors.As(err, &callErr) {
			t.Fatalf("Code %s should decode to CallError, got %T", code, err)
		}
		if callErr.Code != code {
			t.Errorf("Expected code %s, got %s", code, callErr.Code)
		}

		back, msg := Encode(err)
		if back != code || msg != "boom" {
			t.Errorf("Round trip of %s lost information: got %s %q", code, back, msg)
		}
	}
}

func TestDecode_RoundTripBatchError(t *testing.T) {
	codes := []Code{
		BatchUnknown, BatchInvalidReference, BatchMalformedReference,
		BatchAccessError, BatchResolutionError, BatchInvalidPreflight,
		BatchInvalidTraitSet, BatchAuthError,
	}
	for _, code := range codes {
		err := Decode(code, "item broke", 3)
		var batchErr *BatchError
		if !errors.As(err, &batchErr) {
			t.Fatalf("Code %s should decode to BatchError, got %T", code, err)
		}
		if batchErr.Code != code || batchErr.Index != 3 {
			t.Errorf("Expected code %s index 3, got %s index %d", code, batchErr.Code, batchErr.Index)
		}

		back, _ := Encode(err)
		if back != code {
			t.Errorf("Round trip of %s produced %s", code, back)
		}
	}
}

func TestDecode_RangesNeverCross(t *testing.T) {
	if err := Decode(ErrException, "", -1); err != nil {
		var batchErr *BatchError
		if errors.As(err, &batchErr) {
			t.Error("Call-level code decoded as BatchError")
		}
	}
	if err := Decode(BatchAccessError, "", 0); err != nil {
		var callErr *CallError
		if errors.As(err, &callErr) {
			t.Error("Batch code decoded as CallError")
		}
	}
}

func TestDecode_OKIsNil(t *testing.T) {
	if err := Decode(OK, "", -1); err != nil {
		t.Errorf("OK should decode to nil, got %v", err)
	}
}

func TestEncode_ArbitraryError(t *testing.T) {
	code, msg := Encode(fmt.Errorf("disk on fire"))
	if code != ErrUnknown {
		t.Errorf("Arbitrary errors should encode as ErrUnknown, got %s", code)
	}
	if msg != "disk on fire" {
		t.Errorf("Message lost: %q", msg)
	}
}

func TestErrors_IsMatchesByKind(t *testing.T) {
	err := Decode(BatchResolutionError, "nope", 1)
	if !errors.Is(err, &BatchError{Code: BatchResolutionError}) {
		t.Error("errors.Is should match BatchError by kind")
	}
	if errors.Is(err, &BatchError{Code: BatchAuthError}) {
		t.Error("errors.Is must not match a different kind")
	}
}
