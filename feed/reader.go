package feed

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/ftahirops/xwake/internal/log"
	"github.com/ftahirops/xwake/model"
)

// DecodeFrame parses one frame message. It accepts a bare frame object and
// the recorder's {"frame": ...} envelope.
func DecodeFrame(data []byte) (model.Frame, error) {
	var env struct {
		Frame *model.Frame `json:"frame"`
	}
	if err := json.Unmarshal(data, &env); err != nil {
		return model.Frame{}, fmt.Errorf("decode frame: %w", err)
	}
	if env.Frame != nil {
		return *env.Frame, nil
	}
	var f model.Frame
	if err := json.Unmarshal(data, &f); err != nil {
		return model.Frame{}, fmt.Errorf("decode frame: %w", err)
	}
	return f, nil
}

// NewReader streams JSON-lines frames from r. Blank lines are ignored and
// malformed lines are skipped. closer, if set, is called on Close.
func NewReader(r io.Reader, closer func() error) *Stream {
	s := newStream(64, closer)
	go func() {
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 64*1024), 1024*1024)
		line := 0
		for sc.Scan() {
			line++
			data := bytes.TrimSpace(sc.Bytes())
			if len(data) == 0 {
				continue
			}
			f, err := DecodeFrame(data)
			if err != nil {
				if s.skipped.Add(1) == 1 {
					log.Warn("skipping malformed frame", "line", line, "err", err)
				}
				continue
			}
			if !s.send(f) {
				s.finish(nil)
				return
			}
		}
		s.finish(sc.Err())
	}()
	return s
}
