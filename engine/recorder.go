package engine

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/ftahirops/xwake/internal/log"
	"github.com/ftahirops/xwake/model"
)

// recordFrame is one tick written to disk.
type recordFrame struct {
	Frame   model.Frame    `json:"frame"`
	Reading *model.Reading `json:"reading,omitempty"`
}

// Recorder wraps a ticker and records every tick to a writer as JSON lines.
type Recorder struct {
	inner  Ticker
	writer *json.Encoder
	mu     sync.Mutex
	errs   int
}

// NewRecorder creates a recorder that writes JSON lines to w.
func NewRecorder(t Ticker, w io.Writer) *Recorder {
	return &Recorder{
		inner:  t,
		writer: json.NewEncoder(w),
	}
}

// Base returns the underlying session.
func (r *Recorder) Base() *Session {
	return r.inner.Base()
}

// Tick runs the inner ticker and records the frame with its reading.
// Write failures are logged and never fail the tick.
func (r *Recorder) Tick(f model.Frame) model.Reading {
	reading := r.inner.Tick(f)
	if f.Timestamp.IsZero() {
		f.Timestamp = reading.Timestamp
	}
	r.mu.Lock()
	if err := r.writer.Encode(recordFrame{Frame: f, Reading: &reading}); err != nil {
		r.errs++
		if r.errs == 1 {
			log.Warn("recorder write failed", "err", err)
		}
	}
	r.mu.Unlock()
	return reading
}

// Player replays a recording as a frame Source. It accepts both recorder
// lines ({"frame":...,"reading":...}) and raw frame lines.
type Player struct {
	frames []model.Frame
	idx    int
	mu     sync.Mutex
}

// NewPlayer loads a recording. Malformed lines are skipped and counted.
func NewPlayer(r io.Reader) (*Player, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)

	var frames []model.Frame
	skipped := 0
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		f, err := decodeRecordLine(line)
		if err != nil {
			skipped++
			continue
		}
		frames = append(frames, f)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read recording: %w", err)
	}
	if skipped > 0 {
		log.Warn("recording has malformed lines", "skipped", skipped)
	}
	return &Player{frames: frames}, nil
}

func decodeRecordLine(line []byte) (model.Frame, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(line, &probe); err != nil {
		return model.Frame{}, err
	}
	if _, ok := probe["frame"]; ok {
		var rf recordFrame
		if err := json.Unmarshal(line, &rf); err != nil {
			return model.Frame{}, err
		}
		return rf.Frame, nil
	}
	var f model.Frame
	err := json.Unmarshal(line, &f)
	return f, err
}

// Next returns the next recorded frame, or io.EOF at the end.
func (p *Player) Next(ctx context.Context) (model.Frame, error) {
	if err := ctx.Err(); err != nil {
		return model.Frame{}, err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.idx >= len(p.frames) {
		return model.Frame{}, io.EOF
	}
	f := p.frames[p.idx]
	p.idx++
	return f, nil
}

// Len returns the number of frames available.
func (p *Player) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.frames)
}

// Index returns the next frame index.
func (p *Player) Index() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.idx
}

// Seek moves the read position to frame i, clamped to the recording.
func (p *Player) Seek(i int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if i < 0 {
		i = 0
	}
	if i > len(p.frames) {
		i = len(p.frames)
	}
	p.idx = i
}
