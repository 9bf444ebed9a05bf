package engine

import (
	"context"
	"errors"
	"io"

	"github.com/ftahirops/xwake/model"
)

// Ticker abstracts anything that turns frames into readings.
type Ticker interface {
	Tick(f model.Frame) model.Reading
	Base() *Session
}

// Base returns itself for the default session ticker.
func (s *Session) Base() *Session {
	return s
}

// Source produces frames. Next returns io.EOF when the stream is done.
type Source interface {
	Next(ctx context.Context) (model.Frame, error)
}

// Pump drives t with frames from src until the source ends or ctx is
// cancelled, calling fn with every reading. A clean end of stream returns nil.
func Pump(ctx context.Context, src Source, t Ticker, fn func(model.Reading)) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		f, err := src.Next(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		r := t.Tick(f)
		if fn != nil {
			fn(r)
		}
	}
}
