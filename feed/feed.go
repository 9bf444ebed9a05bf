// Package feed provides frame sources: JSON lines from a file or stdin, and
// a WebSocket client. Each source decodes on its own goroutine and hands
// complete frames to the consumer over a channel.
package feed

import (
	"context"
	"io"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/ftahirops/xwake/model"
)

// Stream is a channel-backed frame source. It satisfies engine.Source.
type Stream struct {
	ch      chan model.Frame
	errMu   sync.Mutex
	err     error
	done    chan struct{}
	once    sync.Once
	closer  func() error
	skipped atomic.Uint64
}

func newStream(buffer int, closer func() error) *Stream {
	return &Stream{
		ch:     make(chan model.Frame, buffer),
		done:   make(chan struct{}),
		closer: closer,
	}
}

// Next blocks until a frame is available, the stream ends (io.EOF or the
// producer's error), or ctx is done.
func (s *Stream) Next(ctx context.Context) (model.Frame, error) {
	select {
	case <-ctx.Done():
		return model.Frame{}, ctx.Err()
	case f, ok := <-s.ch:
		if !ok {
			s.errMu.Lock()
			defer s.errMu.Unlock()
			if s.err != nil {
				return model.Frame{}, s.err
			}
			return model.Frame{}, io.EOF
		}
		return f, nil
	}
}

// Skipped returns the number of undecodable messages dropped so far.
func (s *Stream) Skipped() uint64 {
	return s.skipped.Load()
}

// Close stops the producer and releases the underlying reader or connection.
func (s *Stream) Close() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		if s.closer != nil {
			err = s.closer()
		}
	})
	return err
}

// send hands a frame to the consumer; false means the stream was closed.
func (s *Stream) send(f model.Frame) bool {
	select {
	case s.ch <- f:
		return true
	case <-s.done:
		return false
	}
}

// finish ends the stream with err (nil for a clean end).
func (s *Stream) finish(err error) {
	s.errMu.Lock()
	s.err = err
	s.errMu.Unlock()
	close(s.ch)
}

// Open returns a source for spec: "-" reads stdin, ws:// and wss:// URLs
// dial a WebSocket, anything else is a file path.
func Open(ctx context.Context, spec string) (*Stream, error) {
	switch {
	case spec == "" || spec == "-":
		return NewReader(os.Stdin, nil), nil
	case strings.HasPrefix(spec, "ws://") || strings.HasPrefix(spec, "wss://"):
		return DialWebSocket(ctx, spec)
	default:
		f, err := os.Open(spec)
		if err != nil {
			return nil, err
		}
		return NewReader(f, f.Close), nil
	}
}
