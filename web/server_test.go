package web

import (
	"encoding/json"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ftahirops/xwake/engine"
	"github.com/ftahirops/xwake/model"
)

func TestStatusBeforeFirstReading(t *testing.T) {
	s := NewServer(":0", 10, nil)

	resp, err := s.App().Test(httptest.NewRequest("GET", "/api/status", nil))
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}
	if resp.StatusCode != 503 {
		t.Errorf("Status = %d, want 503", resp.StatusCode)
	}
}

func TestPublishFeedsEndpoints(t *testing.T) {
	s := NewServer(":0", 3, nil)
	base := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)
	for i := 1; i <= 5; i++ {
		s.Publish(model.Reading{
			SessionID: "s1",
			Seq:       uint64(i),
			Timestamp: base.Add(time.Duration(i) * time.Second),
			EAR:       0.3,
			EARValid:  true,
			Level:     model.LevelIdle,
		})
	}

	t.Run("status", func(t *testing.T) {
		resp, err := s.App().Test(httptest.NewRequest("GET", "/api/status", nil))
		if err != nil {
			t.Fatalf("Request error: %v", err)
		}
		if resp.StatusCode != 200 {
			t.Fatalf("Status = %d, want 200", resp.StatusCode)
		}
		var body struct {
			Reading model.Reading `json:"reading"`
			Level   string        `json:"level"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if body.Reading.Seq != 5 || body.Level != "IDLE" {
			t.Errorf("got seq=%d level=%s, want 5 IDLE", body.Reading.Seq, body.Level)
		}
	})

	t.Run("history", func(t *testing.T) {
		resp, err := s.App().Test(httptest.NewRequest("GET", "/api/history?n=2", nil))
		if err != nil {
			t.Fatalf("Request error: %v", err)
		}
		var readings []model.Reading
		if err := json.NewDecoder(resp.Body).Decode(&readings); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(readings) != 2 || readings[0].Seq != 4 || readings[1].Seq != 5 {
			t.Errorf("unexpected history: %+v", readings)
		}
	})
}

func TestEpisodesEndpoint(t *testing.T) {
	s := NewServer(":0", 10, nil)
	base := time.Date(2026, 10, 19, 10, 0, 0, 0, time.UTC)
	s.Publish(model.Reading{SessionID: "abc", Seq: 1, Timestamp: base, AlarmActive: true, AlertCount: 1,
		EAR: 0.1, EARValid: true, Alarm: &model.AlarmRaised{SessionID: "abc", Seq: 1}})
	s.Publish(model.Reading{SessionID: "abc", Seq: 2, Timestamp: base.Add(2 * time.Second)})

	resp, err := s.App().Test(httptest.NewRequest("GET", "/api/episodes", nil))
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}
	var body struct {
		Active    *model.Episode  `json:"active"`
		Completed []model.Episode `json:"completed"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if body.Active != nil {
		t.Errorf("expected no active episode, got %+v", body.Active)
	}
	if len(body.Completed) != 1 || body.Completed[0].Duration != 2 {
		t.Errorf("unexpected episodes: %+v", body.Completed)
	}
}

func TestMetricsEndpoint(t *testing.T) {
	m := engine.NewMetrics()
	s := NewServer(":0", 10, m)
	m.Observe(model.Reading{SessionID: "s", HasFace: true, EAR: 0.31, EARValid: true})

	resp, err := s.App().Test(httptest.NewRequest("GET", "/metrics", nil))
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}
	data, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(data), "xwake_ear 0.31") {
		t.Errorf("metrics output missing xwake_ear:\n%s", data)
	}
}

func TestWebSocketRouteRequiresUpgrade(t *testing.T) {
	s := NewServer(":0", 10, nil)
	resp, err := s.App().Test(httptest.NewRequest("GET", "/ws/readings", nil))
	if err != nil {
		t.Fatalf("Request error: %v", err)
	}
	if resp.StatusCode != 426 {
		t.Errorf("Status = %d, want 426", resp.StatusCode)
	}
}
