package engine

import (
	"errors"
	"io"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetricsObserveSession(t *testing.T) {
	m := NewMetrics()
	store := NewMetricsStore()
	s, err := Begin(testCfg, WithClock(fixedClock), WithID("m1"))
	if err != nil {
		t.Fatal(err)
	}
	tk := NewInstrumentedTicker(s, store, m)
	if tk.Base() != s {
		t.Fatal("Base() should unwrap to the session")
	}

	n := 0
	// One blink, then a full alarm.
	for ; n < 5; n++ {
		tk.Tick(frameAt(t0, n, 0.1))
	}
	tk.Tick(frameAt(t0, n, 0.3))
	n++
	for i := 0; i < 20; i++ {
		tk.Tick(frameAt(t0, n, 0.1))
		n++
	}
	tk.Tick(noFaceAt(t0, n))

	if got := testutil.ToFloat64(m.blinks); got != 1 {
		t.Errorf("blinks_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.alarms); got != 1 {
		t.Errorf("alarms_total = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.frames.WithLabelValues("below")); got != 25 {
		t.Errorf("below frames = %v, want 25", got)
	}
	if got := testutil.ToFloat64(m.frames.WithLabelValues("no_face")); got != 1 {
		t.Errorf("no_face frames = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.facePresent); got != 0 {
		t.Errorf("face_present = %v, want 0", got)
	}

	latest, _ := store.Latest()
	if latest == nil || latest.Seq != uint64(n+1) {
		t.Fatalf("store latest = %+v", latest)
	}
}

func TestMetricsNewSessionResetsDeltas(t *testing.T) {
	m := NewMetrics()
	for _, id := range []string{"a", "b"} {
		s, err := Begin(testCfg, WithClock(fixedClock), WithID(id))
		if err != nil {
			t.Fatal(err)
		}
		tk := NewInstrumentedTicker(s, nil, m)
		tk.Tick(frameAt(t0, 0, 0.1))
		tk.Tick(frameAt(t0, 1, 0.3))
	}
	if got := testutil.ToFloat64(m.blinks); got != 2 {
		t.Fatalf("blinks_total = %v, want 2 across sessions", got)
	}
}

func TestMetricsDispatchFailed(t *testing.T) {
	m := NewMetrics()
	m.DispatchFailed(&DispatchError{Sink: "webhook", Err: errors.New("500")})
	m.DispatchFailed(errors.New("other"))
	if got := testutil.ToFloat64(m.dispatchErrs.WithLabelValues("webhook")); got != 1 {
		t.Errorf("webhook errors = %v", got)
	}
	if got := testutil.ToFloat64(m.dispatchErrs.WithLabelValues("unknown")); got != 1 {
		t.Errorf("unknown errors = %v", got)
	}
}

func TestMetricsHandler(t *testing.T) {
	m := NewMetrics()
	s, _ := Begin(testCfg, WithClock(fixedClock))
	NewInstrumentedTicker(s, nil, m).Tick(frameAt(t0, 0, 0.3))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	for _, name := range []string{"xwake_ear 0.3", "xwake_frames_total{outcome=\"open\"} 1", "xwake_ear_distribution_bucket"} {
		if !strings.Contains(string(body), name) {
			t.Errorf("metrics output missing %q", name)
		}
	}
}
