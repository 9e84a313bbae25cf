package remote

import (
	"context"
	"errors"
	"io"
	"strings"
	"sync/atomic"
	"testing"

	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/snowmerak/bridge.go/lib/batch"
	"github.com/snowmerak/bridge.go/lib/manager"
	"github.com/snowmerak/bridge.go/lib/result"
)

// pipeManager is the native implementation served by test modules.
type pipeManager struct {
	initErr     error
	panicOnInit bool
	settings    map[string]string
	items       []batch.Item
	srcCloses   atomic.Int32
}

func (p *pipeManager) Identifier() string  { return "io.test.remote" }
func (p *pipeManager) DisplayName() string { return "Remote Test Manager" }
func (p *pipeManager) Info() map[string]string {
	return map[string]string{"transport": "pipe"}
}

func (p *pipeManager) Initialize(settings map[string]string) error {
	if p.panicOnInit {
		panic("initialize exploded")
	}
	p.settings = settings
	return p.initErr
}

func (p *pipeManager) Resolve(refs []string, pageSize int) (batch.Source, error) {
	return &countingSource{
		SliceSource: batch.NewSliceSource(p.items, pageSize),
		closes:      &p.srcCloses,
	}, nil
}

type countingSource struct {
	*batch.SliceSource
	closes *atomic.Int32
}

func (c *countingSource) Close() error {
	c.closes.Add(1)
	return c.SliceSource.Close()
}

// startModule serves impl over an in-memory pipe pair and returns the
// connected client.
func startModule(t *testing.T, impl manager.Interface, setup func(*Module)) *Client {
	t.Helper()

	hostR, moduleW := io.Pipe()
	moduleR, hostW := io.Pipe()

	module := NewModule(impl)
	if setup != nil {
		setup(module)
	}
	go func() {
		if err := module.Serve(context.Background(), moduleR, moduleW); err != nil {
			t.Logf("module serve ended: %v", err)
		}
		moduleW.Close()
	}()

	client, err := Connect(context.Background(), hostR, hostW)
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	t.Cleanup(func() {
		client.Close()
		hostW.Close()
	})
	return client
}

func TestClient_IdentityFromReadyFrame(t *testing.T) {
	client := startModule(t, &pipeManager{}, nil)
	m := client.Manager()

	if m.Identifier() != "io.test.remote" {
		t.Errorf("Identifier: got %q", m.Identifier())
	}
	if m.DisplayName() != "Remote Test Manager" {
		t.Errorf("DisplayName: got %q", m.DisplayName())
	}
	if m.Info()["transport"] != "pipe" {
		t.Errorf("Info lost entries: %v", m.Info())
	}
}

func TestClient_InitializeRoundTrip(t *testing.T) {
	impl := &pipeManager{}
	client := startModule(t, impl, nil)

	err := client.Manager().Initialize(map[string]string{"root": "/assets"})
	if err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if impl.settings["root"] != "/assets" {
		t.Errorf("Settings did not reach the module: %v", impl.settings)
	}
}

func TestClient_InitializeErrorCrossesIntact(t *testing.T) {
	impl := &pipeManager{initErr: errors.New("backend refused settings")}
	client := startModule(t, impl, nil)

	err := client.Manager().Initialize(nil)
	var callErr *result.CallError
	if !errors.As(err, &callErr) {
		t.Fatalf("Expected CallError, got %T: %v", err, err)
	}
	if !strings.Contains(callErr.Message, "backend refused settings") {
		t.Errorf("Message lost: %q", callErr.Message)
	}
}

func TestClient_PanicBecomesException(t *testing.T) {
	impl := &pipeManager{panicOnInit: true}
	client := startModule(t, impl, nil)

	err := client.Manager().Initialize(nil)
	var callErr *result.CallError
	if !errors.As(err, &callErr) {
		t.Fatalf("Expected CallError, got %T: %v", err, err)
	}
	if callErr.Code != result.ErrException {
		t.Errorf("Expected exception code, got %s", callErr.Code)
	}
	if !strings.Contains(callErr.Message, "initialize exploded") {
		t.Errorf("Panic message lost: %q", callErr.Message)
	}
}

func TestClient_ResolveWalksPages(t *testing.T) {
	impl := &pipeManager{
		items: []batch.Item{
			{Data: []byte("a")},
			{Err: &result.BatchError{Code: result.BatchMalformedReference, Message: "bad ref"}},
			{Data: []byte("c")},
		},
	}
	client := startModule(t, impl, nil)

	src, err := client.Manager().Resolve([]string{"1", "2", "3"}, 2)
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	first := src.Get()
	if len(first) != 2 {
		t.Fatalf("Expected 2 items on first page, got %d", len(first))
	}
	if string(first[0].Data) != "a" {
		t.Errorf("Item 0 payload corrupted: %q", first[0].Data)
	}
	var batchErr *result.BatchError
	if !errors.As(first[1].Err, &batchErr) {
		t.Fatalf("Expected BatchError for item 1, got %T", first[1].Err)
	}
	if batchErr.Code != result.BatchMalformedReference {
		t.Errorf("Per-item kind lost: %s", batchErr.Code)
	}

	if !src.HasNext() {
		t.Fatal("Expected a further page")
	}
	if err := src.Next(); err != nil {
		t.Fatalf("Next failed: %v", err)
	}
	second := src.Get()
	if len(second) != 1 || string(second[0].Data) != "c" {
		t.Fatalf("Unexpected second page: %v", second)
	}
	if src.HasNext() {
		t.Error("No page should remain")
	}

	if err := src.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if impl.srcCloses.Load() != 1 {
		t.Errorf("Module source closed %d times, want 1", impl.srcCloses.Load())
	}

	// A closed pager handle is gone on the module side.
	err = src.Next()
	var closedErr *result.CallError
	if !errors.As(err, &closedErr) || closedErr.Code != result.ErrBadHandle {
		t.Errorf("Expected bad_handle after close, got %v", err)
	}
}

func TestClient_UnknownOperation(t *testing.T) {
	client := startModule(t, &pipeManager{}, nil)

	_, err := client.Call(context.Background(), "no.such.op", nil)
	var callErr *result.CallError
	if !errors.As(err, &callErr) {
		t.Fatalf("Expected CallError, got %T: %v", err, err)
	}
	if callErr.Code != result.ErrNotImplemented {
		t.Errorf("Expected not_implemented, got %s", callErr.Code)
	}
}

func TestCallAdapter_JSON(t *testing.T) {
	type sumRequest struct {
		A int `json:"a"`
		B int `json:"b"`
	}
	type sumResponse struct {
		Total int `json:"total"`
	}

	client := startModule(t, &pipeManager{}, func(m *Module) {
		adapter := NewJSONHandlerAdapter("math.sum", func(req sumRequest) (sumResponse, error) {
			return sumResponse{Total: req.A + req.B}, nil
		})
		m.HandleFunc("math.sum", adapter.ToHandler())
	})

	caller := NewJSONCallAdapter[sumRequest, sumResponse](client)
	resp, err := caller.Call(context.Background(), "math.sum", sumRequest{A: 40, B: 2})
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if resp.Total != 42 {
		t.Errorf("Expected 42, got %d", resp.Total)
	}
}

func TestCallAdapter_Protobuf(t *testing.T) {
	client := startModule(t, &pipeManager{}, func(m *Module) {
		adapter := NewProtobufHandlerAdapter("string.upper",
			func() *wrapperspb.StringValue { return &wrapperspb.StringValue{} },
			func(req *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
				return wrapperspb.String(strings.ToUpper(req.GetValue())), nil
			})
		m.HandleFunc("string.upper", adapter.ToHandler())
	})

	caller := NewProtobufCallAdapter[*wrapperspb.StringValue, *wrapperspb.StringValue](
		client,
		func() *wrapperspb.StringValue { return &wrapperspb.StringValue{} },
	)
	resp, err := caller.Call(context.Background(), "string.upper", wrapperspb.String("quiet"))
	if err != nil {
		t.Fatalf("Call failed: %v", err)
	}
	if resp.GetValue() != "QUIET" {
		t.Errorf("Expected QUIET, got %q", resp.GetValue())
	}
}

func TestClient_CloseStillRunsAfterModuleDeath(t *testing.T) {
	client := startModule(t, &pipeManager{}, nil)

	// A dying child only cancels the run context; it must not consume the
	// closed flag, or the explicit Close below would skip its teardown.
	client.cancelRun()

	if _, err := client.Call(context.Background(), "no.such.op", nil); err == nil {
		t.Error("Call should fail once the module is gone")
	}
	if client.closed.Load() {
		t.Fatal("Connection death must not mark the client closed")
	}
	if err := client.Close(); err != nil {
		t.Errorf("Close after module death should still tear down cleanly: %v", err)
	}
}

func TestClient_CallAfterClose(t *testing.T) {
	client := startModule(t, &pipeManager{}, nil)
	if err := client.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	if _, err := client.Call(context.Background(), "initialize", nil); err == nil {
		t.Error("Call after close should fail")
	}
	if err := client.Close(); err == nil {
		t.Error("Second close should report already closed")
	}
}
