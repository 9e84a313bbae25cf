// Package process starts and supervises the child processes that back
// out-of-process manager implementations.
package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
)

// Process is a running child wired for framed pipe communication. Its stdout
// carries frames exclusively; stderr passes through to the host's stderr so
// diagnostics never corrupt the frame stream.
type Process struct {
	cmd          *exec.Cmd
	stdinWriter  io.WriteCloser
	stdoutReader io.ReadCloser
}

// Fork starts the module executable at path with optional arguments. The
// context only bounds startup; a started process outlives it.
func Fork(ctx context.Context, path string, args ...string) (*Process, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("fork cancelled: %w", err)
	}

	cmd := exec.Command(path, args...)
	cmd.Stderr = os.Stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("failed to open stdout pipe: %w", err)
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start process: %w", err)
	}

	return &Process{
		cmd:          cmd,
		stdinWriter:  stdin,
		stdoutReader: stdout,
	}, nil
}

// Stdin returns the write side of the child's stdin.
func (p *Process) Stdin() io.WriteCloser {
	return p.stdinWriter
}

// Stdout returns the read side of the child's stdout.
func (p *Process) Stdout() io.ReadCloser {
	return p.stdoutReader
}

// Wait blocks until the child exits.
func (p *Process) Wait() error {
	if err := p.cmd.Wait(); err != nil {
		return fmt.Errorf("process exited with error: %w", err)
	}
	return nil
}

// Close tears the child down: pipes first, then the process itself. A child
// that already exited is not an error; Close still reaps whatever is left.
func (p *Process) Close() error {
	var firstErr error
	if err := p.stdinWriter.Close(); err != nil && !errors.Is(err, os.ErrClosed) {
		firstErr = fmt.Errorf("failed to close stdin writer: %w", err)
	}
	if err := p.stdoutReader.Close(); err != nil && !errors.Is(err, os.ErrClosed) && firstErr == nil {
		firstErr = fmt.Errorf("failed to close stdout reader: %w", err)
	}
	if p.cmd.Process != nil {
		if err := p.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) && firstErr == nil {
			firstErr = fmt.Errorf("failed to kill process: %w", err)
		}
	}
	return firstErr
}
