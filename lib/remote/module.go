package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/snowmerak/bridge.go/lib/batch"
	"github.com/snowmerak/bridge.go/lib/manager"
	"github.com/snowmerak/bridge.go/lib/result"
)

// Handler serves one custom operation inside a module. Returned errors cross
// back to the host as their encoded result code and message.
type Handler func(payload []byte) ([]byte, error)

// Module is the child-process side: it serves a native manager
// implementation over the frame protocol. Run it from the module
// executable's main function, typically via ServeStdio.
type Module struct {
	impl manager.Interface
	conn *frameConn

	handlers  map[string]Handler
	handlerMu sync.RWMutex

	sources   map[string]batch.Source
	sourcesMu sync.Mutex
}

// NewModule creates a module serving the given implementation.
func NewModule(impl manager.Interface) *Module {
	return &Module{
		impl:     impl,
		handlers: make(map[string]Handler),
		sources:  make(map[string]batch.Source),
	}
}

// HandleFunc registers a handler for a custom operation name. Built-in
// operation names cannot be overridden.
func (m *Module) HandleFunc(op string, handler Handler) {
	m.handlerMu.Lock()
	defer m.handlerMu.Unlock()
	m.handlers[op] = handler
}

// ServeStdio serves over the process's standard pipes. This is the loop a
// module executable runs until the host shuts it down.
func (m *Module) ServeStdio(ctx context.Context) error {
	return m.Serve(ctx, os.Stdin, os.Stdout)
}

// Serve announces the implementation's identity, then answers requests until
// the host sends shutdown or the connection closes.
func (m *Module) Serve(ctx context.Context, r io.Reader, w io.Writer) error {
	m.conn = newFrameConn(r, w)

	identity, err := json.Marshal(identityPayload{
		Identifier:  m.impl.Identifier(),
		DisplayName: m.impl.DisplayName(),
		Info:        m.impl.Info(),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal identity: %w", err)
	}
	if err := m.conn.writeFrame(&Frame{Kind: FrameReady, Payload: identity}); err != nil {
		return fmt.Errorf("failed to announce ready: %w", err)
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		frame, err := m.conn.readFrame()
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("failed to read frame: %w", err)
		}

		switch frame.Kind {
		case FrameShutdown:
			m.closeSources()
			return nil
		case FrameRequest:
			m.respond(frame)
		default:
			Logger().Debug("unexpected frame from host",
				zap.String("kind", frame.Kind.String()))
		}
	}
}

// respond runs one request through the seam guard and writes the response.
func (m *Module) respond(request *Frame) {
	payload, err := m.dispatch(request.Op, request.Payload)

	response := &Frame{ID: request.ID, Kind: FrameResponse, Op: request.Op}
	if err != nil {
		code, msg := result.Encode(err)
		response.Code = code
		response.Payload = []byte(msg)
	} else {
		response.Payload = payload
	}

	if err := m.conn.writeFrame(response); err != nil {
		Logger().Warn("failed to write response",
			zap.String("op", request.Op), zap.Error(err))
	}
}

// dispatch routes an operation, containing panics so nothing unwinds across
// the process seam.
func (m *Module) dispatch(op string, payload []byte) (response []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			response = nil
			err = &result.CallError{Code: result.ErrException, Message: fmt.Sprint(r)}
		}
	}()

	switch op {
	case opInitialize:
		return m.handleInitialize(payload)
	case opResolve:
		return m.handleResolve(payload)
	case opPagerNext:
		return m.handlePagerNext(payload)
	case opPagerClose:
		return m.handlePagerClose(payload)
	}

	m.handlerMu.RLock()
	handler, exists := m.handlers[op]
	m.handlerMu.RUnlock()
	if !exists {
		return nil, &result.CallError{Code: result.ErrNotImplemented, Message: "unknown operation " + op}
	}
	return handler(payload)
}

func (m *Module) handleInitialize(payload []byte) ([]byte, error) {
	var req initializeRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("malformed initialize request: %w", err)
	}
	if err := m.impl.Initialize(req.Settings); err != nil {
		return nil, err
	}
	return nil, nil
}

func (m *Module) handleResolve(payload []byte) ([]byte, error) {
	var req resolveRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return nil, fmt.Errorf("malformed resolve request: %w", err)
	}

	src, err := m.impl.Resolve(req.Refs, req.PageSize)
	if err != nil {
		return nil, err
	}
	if src == nil {
		return nil, fmt.Errorf("implementation returned no page source")
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate pager id: %w", err)
	}
	pagerID := id.String()

	m.sourcesMu.Lock()
	m.sources[pagerID] = src
	m.sourcesMu.Unlock()

	return encodePage(pagerID, src)
}

func (m *Module) handlePagerNext(payload []byte) ([]byte, error) {
	pagerID, src, err := m.lookupSource(payload)
	if err != nil {
		return nil, err
	}
	if err := src.Next(); err != nil {
		return nil, err
	}
	return encodePage(pagerID, src)
}

func (m *Module) handlePagerClose(payload []byte) ([]byte, error) {
	pagerID, src, err := m.lookupSource(payload)
	if err != nil {
		return nil, err
	}

	m.sourcesMu.Lock()
	delete(m.sources, pagerID)
	m.sourcesMu.Unlock()

	if err := src.Close(); err != nil {
		return nil, err
	}
	return nil, nil
}

func (m *Module) lookupSource(payload []byte) (string, batch.Source, error) {
	var req pagerRequest
	if err := json.Unmarshal(payload, &req); err != nil {
		return "", nil, fmt.Errorf("malformed pager request: %w", err)
	}

	m.sourcesMu.Lock()
	src, exists := m.sources[req.Pager]
	m.sourcesMu.Unlock()
	if !exists {
		return "", nil, &result.CallError{Code: result.ErrBadHandle, Message: "unknown pager " + req.Pager}
	}
	return req.Pager, src, nil
}

// closeSources releases any pagers the host abandoned. Shutdown is a
// teardown path, so failures are logged, never propagated.
func (m *Module) closeSources() {
	m.sourcesMu.Lock()
	defer m.sourcesMu.Unlock()
	for id, src := range m.sources {
		if err := src.Close(); err != nil {
			Logger().Warn("closing abandoned pager failed",
				zap.String("pager", id), zap.Error(err))
		}
		delete(m.sources, id)
	}
}

// encodePage snapshots a source's current page and continuation flag.
func encodePage(pagerID string, src batch.Source) ([]byte, error) {
	items := src.Get()
	page := pagePayload{
		Pager:   pagerID,
		Items:   make([]itemPayload, 0, len(items)),
		HasNext: src.HasNext(),
	}
	for _, item := range items {
		if item.Err != nil {
			code, msg := result.Encode(item.Err)
			if !code.IsBatchError() {
				code = result.BatchUnknown
			}
			page.Items = append(page.Items, itemPayload{Code: int32(code), Message: msg})
			continue
		}
		page.Items = append(page.Items, itemPayload{Data: item.Data})
	}

	payload, err := json.Marshal(page)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal page: %w", err)
	}
	return payload, nil
}
