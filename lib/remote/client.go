package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/snowmerak/bridge.go/lib/batch"
	"github.com/snowmerak/bridge.go/lib/manager"
	"github.com/snowmerak/bridge.go/lib/process"
	"github.com/snowmerak/bridge.go/lib/result"
)

// readyTimeout bounds how long a module may take to announce itself.
const readyTimeout = 5 * time.Second

// Client is the host side of one out-of-process module. It owns the frame
// connection, correlates responses to requests, and hands out the
// manager-shaped view over the module's implementation.
type Client struct {
	proc *process.Process
	conn *frameConn

	pending   map[string]chan *Frame
	pendingMu sync.RWMutex

	identity    identityPayload
	readySignal chan struct{}

	runCtx    context.Context
	cancelRun context.CancelFunc
	closed    atomic.Bool
	wg        sync.WaitGroup
}

// Spawn forks the module executable at path and waits for its ready
// announcement.
func Spawn(ctx context.Context, path string, args ...string) (*Client, error) {
	proc, err := process.Fork(ctx, path, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fork module: %w", err)
	}

	c, err := connect(ctx, proc.Stdout(), proc.Stdin())
	if err != nil {
		proc.Close()
		return nil, err
	}
	c.proc = proc

	c.wg.Add(1)
	go c.monitorProcess()

	return c, nil
}

// Connect attaches to an already-running module over the given pipe pair and
// waits for its ready announcement. Tests and embedders that manage the
// process themselves use this directly.
func Connect(ctx context.Context, r io.Reader, w io.Writer) (*Client, error) {
	return connect(ctx, r, w)
}

func connect(ctx context.Context, r io.Reader, w io.Writer) (*Client, error) {
	c := &Client{
		conn:        newFrameConn(r, w),
		pending:     make(map[string]chan *Frame),
		readySignal: make(chan struct{}),
	}
	c.runCtx, c.cancelRun = context.WithCancel(context.Background())

	c.wg.Add(1)
	go c.readLoop()

	select {
	case <-c.readySignal:
		return c, nil
	case <-ctx.Done():
		c.cancelRun()
		return nil, fmt.Errorf("cancelled while waiting for module ready: %w", ctx.Err())
	case <-time.After(readyTimeout):
		c.cancelRun()
		return nil, fmt.Errorf("timeout waiting for ready signal from module")
	}
}

// readLoop routes incoming frames until the connection dies.
func (c *Client) readLoop() {
	defer c.wg.Done()

	ready := false
	for {
		frame, err := c.conn.readFrame()
		if err != nil {
			if c.runCtx.Err() == nil && err != io.EOF {
				Logger().Warn("module connection lost", zap.Error(err))
			}
			c.failPending()
			return
		}

		switch frame.Kind {
		case FrameReady:
			if ready {
				continue
			}
			if err := json.Unmarshal(frame.Payload, &c.identity); err != nil {
				Logger().Warn("malformed ready frame", zap.Error(err))
				continue
			}
			ready = true
			close(c.readySignal)
		case FrameResponse:
			c.pendingMu.RLock()
			ch, exists := c.pending[frame.ID]
			c.pendingMu.RUnlock()
			if !exists {
				Logger().Debug("response for unknown request",
					zap.String("id", frame.ID), zap.String("op", frame.Op))
				continue
			}
			ch <- frame
		default:
			Logger().Debug("unexpected frame from module",
				zap.String("kind", frame.Kind.String()))
		}
	}
}

// failPending wakes every caller blocked on a response after the connection
// is gone.
func (c *Client) failPending() {
	c.pendingMu.Lock()
	defer c.pendingMu.Unlock()
	for id, ch := range c.pending {
		close(ch)
		delete(c.pending, id)
	}
}

// Call sends one request and waits for its response. A non-zero response
// code surfaces as the corresponding typed error with the message the module
// sent.
func (c *Client) Call(ctx context.Context, op string, payload []byte) ([]byte, error) {
	if c.closed.Load() {
		return nil, fmt.Errorf("client is closed")
	}

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("failed to generate request id: %w", err)
	}
	requestID := id.String()

	responseChan := make(chan *Frame, 1)
	c.pendingMu.Lock()
	c.pending[requestID] = responseChan
	c.pendingMu.Unlock()

	defer func() {
		c.pendingMu.Lock()
		delete(c.pending, requestID)
		c.pendingMu.Unlock()
	}()

	request := &Frame{ID: requestID, Kind: FrameRequest, Op: op, Payload: payload}
	if err := c.conn.writeFrame(request); err != nil {
		return nil, fmt.Errorf("failed to write request frame: %w", err)
	}

	select {
	case response, ok := <-responseChan:
		if !ok {
			return nil, fmt.Errorf("module connection closed before response")
		}
		if response.Code != result.OK {
			return nil, result.Decode(response.Code, string(response.Payload), -1)
		}
		return response.Payload, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-c.runCtx.Done():
		return nil, fmt.Errorf("client is shutting down")
	}
}

// Close sends the module a shutdown frame, tears the process down, and waits
// briefly for the read loop to drain.
func (c *Client) Close() error {
	if !c.closed.CompareAndSwap(false, true) {
		return fmt.Errorf("client already closed")
	}

	shutdown := &Frame{Kind: FrameShutdown, Op: "shutdown"}
	if err := c.conn.writeFrame(shutdown); err != nil {
		Logger().Debug("failed to send shutdown frame", zap.Error(err))
	}

	c.cancelRun()

	var closeErr error
	if c.proc != nil {
		closeErr = c.proc.Close()
	}

	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		Logger().Warn("timed out waiting for client goroutines")
	}

	return closeErr
}

// monitorProcess cancels the run context once the child exits, so in-flight
// callers fail fast instead of blocking on a dead pipe. It never marks the
// client closed: Close owns that flag, and must still run its teardown after
// an unexpected child exit.
func (c *Client) monitorProcess() {
	defer c.wg.Done()

	if err := c.proc.Wait(); err != nil {
		if !c.closed.Load() {
			Logger().Warn("module process exited with error", zap.Error(err))
		}
	}
	c.cancelRun()
}

// Manager returns the manager-shaped view over the module's implementation.
func (c *Client) Manager() manager.Interface {
	return &remoteManager{client: c}
}

// remoteManager satisfies manager.Interface by forwarding over the frame
// protocol. Identity fields come from the module's ready announcement, so
// reading them never crosses the boundary again.
type remoteManager struct {
	client *Client
}

func (m *remoteManager) Identifier() string {
	return m.client.identity.Identifier
}

func (m *remoteManager) DisplayName() string {
	return m.client.identity.DisplayName
}

func (m *remoteManager) Info() map[string]string {
	return m.client.identity.Info
}

func (m *remoteManager) Initialize(settings map[string]string) error {
	payload, err := json.Marshal(initializeRequest{Settings: settings})
	if err != nil {
		return fmt.Errorf("failed to marshal settings: %w", err)
	}
	_, err = m.client.Call(context.Background(), opInitialize, payload)
	return err
}

func (m *remoteManager) Resolve(refs []string, pageSize int) (batch.Source, error) {
	payload, err := json.Marshal(resolveRequest{Refs: refs, PageSize: pageSize})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resolve request: %w", err)
	}
	response, err := m.client.Call(context.Background(), opResolve, payload)
	if err != nil {
		return nil, err
	}

	var page pagePayload
	if err := json.Unmarshal(response, &page); err != nil {
		return nil, fmt.Errorf("failed to unmarshal resolve response: %w", err)
	}

	src := &remoteSource{client: m.client, pagerID: page.Pager}
	src.load(&page)
	return src, nil
}

// remoteSource is the host-side page producer view. HasNext and Get inspect
// the locally cached page; only Next and Close cross to the module.
type remoteSource struct {
	client  *Client
	pagerID string
	items   []batch.Item
	hasNext bool
}

func (s *remoteSource) load(page *pagePayload) {
	items := make([]batch.Item, 0, len(page.Items))
	for i, it := range page.Items {
		code := result.Code(it.Code)
		if code == result.OK {
			items = append(items, batch.Item{Data: it.Data})
			continue
		}
		items = append(items, batch.Item{Err: result.Decode(code, it.Message, i)})
	}
	s.items = items
	s.hasNext = page.HasNext
}

func (s *remoteSource) HasNext() bool {
	return s.hasNext
}

func (s *remoteSource) Get() []batch.Item {
	return s.items
}

func (s *remoteSource) Next() error {
	payload, err := json.Marshal(pagerRequest{Pager: s.pagerID})
	if err != nil {
		return fmt.Errorf("failed to marshal pager request: %w", err)
	}
	response, err := s.client.Call(context.Background(), opPagerNext, payload)
	if err != nil {
		return err
	}

	var page pagePayload
	if err := json.Unmarshal(response, &page); err != nil {
		return fmt.Errorf("failed to unmarshal page: %w", err)
	}
	s.load(&page)
	return nil
}

func (s *remoteSource) Close() error {
	payload, err := json.Marshal(pagerRequest{Pager: s.pagerID})
	if err != nil {
		return fmt.Errorf("failed to marshal pager request: %w", err)
	}
	_, err = s.client.Call(context.Background(), opPagerClose, payload)
	return err
}
