// Package remote presents an out-of-process manager implementation through
// the same contract in-process plugins satisfy. The host side forks a module
// executable and forwards every operation over a framed pipe protocol; the
// module side serves a native implementation inside the child process.
//
// This is the transport the core offers to backends that cannot be loaded
// natively, such as implementations hosted by a separate language runtime.
// The runtime itself is not this package's concern; only the process
// boundary is.
package remote

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sync"

	"github.com/snowmerak/bridge.go/lib/result"
)

// FrameKind tags the direction and role of a frame.
type FrameKind uint8

const (
	FrameRequest  FrameKind = 0x01 // host → module, expects a response
	FrameResponse FrameKind = 0x02 // module → host, response to a request
	FrameReady    FrameKind = 0x03 // module → host, identity announcement
	FrameShutdown FrameKind = 0x04 // host → module, stop serving
)

// String returns the kind's name.
func (k FrameKind) String() string {
	switch k {
	case FrameRequest:
		return "Request"
	case FrameResponse:
		return "Response"
	case FrameReady:
		return "Ready"
	case FrameShutdown:
		return "Shutdown"
	default:
		return "Unknown"
	}
}

// Frame is one message on the pipe. ID correlates a response to its request;
// Code carries the boundary result for responses, with the payload holding
// the error message when Code is non-zero.
type Frame struct {
	ID      string
	Kind    FrameKind
	Op      string
	Code    result.Code
	Payload []byte
}

// maxFrameSize bounds a single frame body. A module writing more than this
// is treated as broken.
const maxFrameSize = 16 << 20

// MarshalBinary encodes the frame into binary format.
func (f *Frame) MarshalBinary() ([]byte, error) {
	var buffer bytes.Buffer

	idBytes := []byte(f.ID)
	if err := binary.Write(&buffer, binary.BigEndian, uint32(len(idBytes))); err != nil {
		return nil, fmt.Errorf("failed to write id length: %w", err)
	}
	if _, err := buffer.Write(idBytes); err != nil {
		return nil, fmt.Errorf("failed to write id: %w", err)
	}

	if err := binary.Write(&buffer, binary.BigEndian, uint8(f.Kind)); err != nil {
		return nil, fmt.Errorf("failed to write kind: %w", err)
	}

	opBytes := []byte(f.Op)
	if err := binary.Write(&buffer, binary.BigEndian, uint32(len(opBytes))); err != nil {
		return nil, fmt.Errorf("failed to write op length: %w", err)
	}
	if _, err := buffer.Write(opBytes); err != nil {
		return nil, fmt.Errorf("failed to write op: %w", err)
	}

	if err := binary.Write(&buffer, binary.BigEndian, int32(f.Code)); err != nil {
		return nil, fmt.Errorf("failed to write code: %w", err)
	}

	if err := binary.Write(&buffer, binary.BigEndian, uint32(len(f.Payload))); err != nil {
		return nil, fmt.Errorf("failed to write payload length: %w", err)
	}
	if _, err := buffer.Write(f.Payload); err != nil {
		return nil, fmt.Errorf("failed to write payload: %w", err)
	}

	return buffer.Bytes(), nil
}

// UnmarshalBinary decodes a frame from binary format.
func (f *Frame) UnmarshalBinary(data []byte) error {
	reader := bytes.NewReader(data)

	var idLen uint32
	if err := binary.Read(reader, binary.BigEndian, &idLen); err != nil {
		return fmt.Errorf("failed to read id length: %w", err)
	}
	if int64(idLen) > int64(reader.Len()) {
		return fmt.Errorf("id length %d exceeds %d remaining bytes", idLen, reader.Len())
	}
	idBytes := make([]byte, idLen)
	if _, err := io.ReadFull(reader, idBytes); err != nil {
		return fmt.Errorf("failed to read id: %w", err)
	}
	f.ID = string(idBytes)

	var kind uint8
	if err := binary.Read(reader, binary.BigEndian, &kind); err != nil {
		return fmt.Errorf("failed to read kind: %w", err)
	}
	f.Kind = FrameKind(kind)

	var opLen uint32
	if err := binary.Read(reader, binary.BigEndian, &opLen); err != nil {
		return fmt.Errorf("failed to read op length: %w", err)
	}
	if int64(opLen) > int64(reader.Len()) {
		return fmt.Errorf("op length %d exceeds %d remaining bytes", opLen, reader.Len())
	}
	opBytes := make([]byte, opLen)
	if _, err := io.ReadFull(reader, opBytes); err != nil {
		return fmt.Errorf("failed to read op: %w", err)
	}
	f.Op = string(opBytes)

	var code int32
	if err := binary.Read(reader, binary.BigEndian, &code); err != nil {
		return fmt.Errorf("failed to read code: %w", err)
	}
	f.Code = result.Code(code)

	var payloadLen uint32
	if err := binary.Read(reader, binary.BigEndian, &payloadLen); err != nil {
		return fmt.Errorf("failed to read payload length: %w", err)
	}
	if int64(payloadLen) > int64(reader.Len()) {
		return fmt.Errorf("payload length %d exceeds %d remaining bytes", payloadLen, reader.Len())
	}
	f.Payload = make([]byte, payloadLen)
	if _, err := io.ReadFull(reader, f.Payload); err != nil {
		return fmt.Errorf("failed to read payload: %w", err)
	}

	return nil
}

// frameConn moves length-prefixed frames over a pipe pair. Writes are
// serialized; reads are expected from a single reader goroutine.
type frameConn struct {
	r       io.Reader
	w       io.Writer
	writeMu sync.Mutex
}

func newFrameConn(r io.Reader, w io.Writer) *frameConn {
	return &frameConn{r: r, w: w}
}

func (c *frameConn) writeFrame(f *Frame) error {
	body, err := f.MarshalBinary()
	if err != nil {
		return fmt.Errorf("failed to marshal frame: %w", err)
	}
	if len(body) > maxFrameSize {
		return fmt.Errorf("frame of %d bytes exceeds limit", len(body))
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	var prefix [4]byte
	binary.BigEndian.PutUint32(prefix[:], uint32(len(body)))
	if _, err := c.w.Write(prefix[:]); err != nil {
		return fmt.Errorf("failed to write frame length: %w", err)
	}
	if _, err := c.w.Write(body); err != nil {
		return fmt.Errorf("failed to write frame body: %w", err)
	}
	return nil
}

func (c *frameConn) readFrame() (*Frame, error) {
	var prefix [4]byte
	if _, err := io.ReadFull(c.r, prefix[:]); err != nil {
		return nil, err
	}
	size := binary.BigEndian.Uint32(prefix[:])
	if size > maxFrameSize {
		return nil, fmt.Errorf("frame of %d bytes exceeds limit", size)
	}

	body := make([]byte, size)
	if _, err := io.ReadFull(c.r, body); err != nil {
		return nil, fmt.Errorf("failed to read frame body: %w", err)
	}

	frame := &Frame{}
	if err := frame.UnmarshalBinary(body); err != nil {
		return nil, err
	}
	return frame, nil
}
