package feed

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/ftahirops/xwake/model"
)

const (
	faceLine  = `{"ts":"2026-03-01T08:00:00Z","face":{"left":[[0,0],[10,3],[20,3],[30,0],[20,-3],[10,-3]],"right":[[0,0],[10,3],[20,3],[30,0],[20,-3],[10,-3]],"bbox":[10,20,100,120]}}`
	emptyLine = `{"ts":"2026-03-01T08:00:01Z"}`
)

func drain(t *testing.T, s *Stream) ([]model.Frame, error) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	var out []model.Frame
	for {
		f, err := s.Next(ctx)
		if err != nil {
			return out, err
		}
		out = append(out, f)
	}
}

func TestDecodeFrame(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		face    bool
		wantErr bool
	}{
		{"raw_face", faceLine, true, false},
		{"raw_no_face", emptyLine, false, false},
		{"envelope", `{"frame":` + faceLine + `,"reading":{"seq":1}}`, true, false},
		{"not_json", `hello`, false, true},
		{"bad_eye", `{"face":{"left":"x"}}`, false, true},
		{"short_eye", `{"face":{"left":[[0,5],[3,3]],"right":[[0,0],[10,3],[20,3],[30,0],[20,-3],[10,-3]]}}`, false, true},
		{"long_eye", `{"face":{"left":[[0,0],[10,3],[20,3],[30,0],[20,-3],[10,-3],[5,5]]}}`, false, true},
		{"one_coord_point", `{"face":{"left":[[0],[10,3],[20,3],[30,0],[20,-3],[10,-3]]}}`, false, true},
		{"three_coord_point", `{"face":{"left":[[0,0,1],[10,3],[20,3],[30,0],[20,-3],[10,-3]]}}`, false, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			f, err := DecodeFrame([]byte(c.in))
			if (err != nil) != c.wantErr {
				t.Fatalf("err = %v, wantErr %v", err, c.wantErr)
			}
			if err == nil && f.HasFace() != c.face {
				t.Fatalf("HasFace = %v, want %v", f.HasFace(), c.face)
			}
		})
	}

	f, err := DecodeFrame([]byte(faceLine))
	if err != nil {
		t.Fatal(err)
	}
	if f.Face.Face != (model.Rect{X: 10, Y: 20, W: 100, H: 120}) || f.Face.Left[1] != (model.Point{X: 10, Y: 3}) {
		t.Fatalf("decoded geometry = %+v", f.Face)
	}
}

func TestReaderSkipsMalformedLines(t *testing.T) {
	input := strings.Join([]string{faceLine, "", "garbage", emptyLine, `{"face":`}, "\n")
	s := NewReader(strings.NewReader(input), nil)
	frames, err := drain(t, s)
	if !errors.Is(err, io.EOF) {
		t.Fatalf("err = %v, want io.EOF", err)
	}
	if len(frames) != 2 {
		t.Fatalf("got %d frames, want 2", len(frames))
	}
	if s.Skipped() != 2 {
		t.Fatalf("Skipped = %d, want 2", s.Skipped())
	}
}

func TestOpenFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "frames.jsonl")
	if err := os.WriteFile(path, []byte(faceLine+"\n"+emptyLine+"\n"), 0600); err != nil {
		t.Fatal(err)
	}
	s, err := Open(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()
	frames, err := drain(t, s)
	if !errors.Is(err, io.EOF) || len(frames) != 2 {
		t.Fatalf("frames=%d err=%v", len(frames), err)
	}

	if _, err := Open(context.Background(), filepath.Join(t.TempDir(), "missing")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestStreamNextHonoursContext(t *testing.T) {
	pr, pw := io.Pipe()
	defer pw.Close()
	s := NewReader(pr, pr.Close)
	defer s.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := s.Next(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("err = %v, want DeadlineExceeded", err)
	}
}

func TestWebSocketSource(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, msg := range []string{faceLine, "garbage", emptyLine} {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(msg)); err != nil {
				return
			}
		}
		_ = conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "done"))
		// Wait for the client to answer the close.
		_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	s, err := Open(context.Background(), url)
	if err != nil {
		t.Fatal(err)
	}
	defer s.Close()

	frames, err := drain(t, s)
	if !errors.Is(err, io.EOF) {
		t.Fatalf("err = %v, want io.EOF on normal close", err)
	}
	if len(frames) != 2 || !frames[0].HasFace() || frames[1].HasFace() {
		t.Fatalf("frames = %+v", frames)
	}
	if s.Skipped() != 1 {
		t.Fatalf("Skipped = %d, want 1", s.Skipped())
	}
}

func TestWebSocketDialFailure(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if _, err := DialWebSocket(ctx, "ws://127.0.0.1:1/nothing"); err == nil {
		t.Fatal("expected dial error")
	}
}
