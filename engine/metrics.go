package engine

import (
	"net/http"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ftahirops/xwake/model"
)

// Metrics exports readings as Prometheus metrics on a private registry.
type Metrics struct {
	reg *prometheus.Registry

	ear           prometheus.Gauge
	counter       prometheus.Gauge
	progress      prometheus.Gauge
	level         prometheus.Gauge
	fps           prometheus.Gauge
	drowsinessPct prometheus.Gauge
	facePresent   prometheus.Gauge

	frames       *prometheus.CounterVec
	blinks       prometheus.Counter
	alarms       prometheus.Counter
	dispatchErrs *prometheus.CounterVec
	earHist      prometheus.Histogram

	mu         sync.Mutex
	lastBlinks uint64
	lastAlerts uint64
	lastID     string
}

// NewMetrics creates and registers the xwake metric set.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Metrics{
		reg: reg,
		ear: f.NewGauge(prometheus.GaugeOpts{
			Name: "xwake_ear",
			Help: "Mean eye aspect ratio of the latest valid tick",
		}),
		counter: f.NewGauge(prometheus.GaugeOpts{
			Name: "xwake_closure_counter",
			Help: "Consecutive below-threshold ticks",
		}),
		progress: f.NewGauge(prometheus.GaugeOpts{
			Name: "xwake_closure_progress_pct",
			Help: "Debounce progress towards alarm (0-100)",
		}),
		level: f.NewGauge(prometheus.GaugeOpts{
			Name: "xwake_alert_level",
			Help: "Alert state (0=idle, 1=rising, 2=alarm)",
		}),
		fps: f.NewGauge(prometheus.GaugeOpts{
			Name: "xwake_fps",
			Help: "Ticks processed in the last one-second window",
		}),
		drowsinessPct: f.NewGauge(prometheus.GaugeOpts{
			Name: "xwake_drowsiness_pct",
			Help: "Share of session frames below threshold",
		}),
		facePresent: f.NewGauge(prometheus.GaugeOpts{
			Name: "xwake_face_present",
			Help: "1 when the latest tick carried a face",
		}),
		frames: f.NewCounterVec(prometheus.CounterOpts{
			Name: "xwake_frames_total",
			Help: "Frames processed by outcome",
		}, []string{"outcome"}),
		blinks: f.NewCounter(prometheus.CounterOpts{
			Name: "xwake_blinks_total",
			Help: "Completed sub-threshold closures",
		}),
		alarms: f.NewCounter(prometheus.CounterOpts{
			Name: "xwake_alarms_total",
			Help: "Alarm state entries",
		}),
		dispatchErrs: f.NewCounterVec(prometheus.CounterOpts{
			Name: "xwake_dispatch_errors_total",
			Help: "Alarm deliveries that failed, by sink",
		}, []string{"sink"}),
		earHist: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "xwake_ear_distribution",
			Help:    "Distribution of valid EAR samples",
			Buckets: prometheus.LinearBuckets(0.05, 0.05, 8),
		}),
	}
}

// Observe updates all metrics from a reading.
func (m *Metrics) Observe(r model.Reading) {
	switch {
	case !r.HasFace:
		m.frames.WithLabelValues("no_face").Inc()
		m.facePresent.Set(0)
	case r.Degenerate:
		m.frames.WithLabelValues("degenerate").Inc()
		m.facePresent.Set(1)
	case r.Below:
		m.frames.WithLabelValues("below").Inc()
		m.facePresent.Set(1)
	default:
		m.frames.WithLabelValues("open").Inc()
		m.facePresent.Set(1)
	}
	if r.EARValid {
		m.ear.Set(r.EAR)
		m.earHist.Observe(r.EAR)
	}
	m.counter.Set(float64(r.Counter))
	m.progress.Set(r.ProgressPct)
	m.level.Set(float64(r.Level))
	m.fps.Set(r.FPS)
	m.drowsinessPct.Set(r.DrowsinessPct)

	m.mu.Lock()
	if r.SessionID != m.lastID {
		m.lastID = r.SessionID
		m.lastBlinks, m.lastAlerts = 0, 0
	}
	if r.BlinkCount > m.lastBlinks {
		m.blinks.Add(float64(r.BlinkCount - m.lastBlinks))
		m.lastBlinks = r.BlinkCount
	}
	if r.AlertCount > m.lastAlerts {
		m.alarms.Add(float64(r.AlertCount - m.lastAlerts))
		m.lastAlerts = r.AlertCount
	}
	m.mu.Unlock()
}

// DispatchFailed counts a failed alarm delivery. It matches the notifier
// error handler signature.
func (m *Metrics) DispatchFailed(err error) {
	sink := "unknown"
	if de, ok := err.(*DispatchError); ok {
		sink = de.Sink
	}
	m.dispatchErrs.WithLabelValues(sink).Inc()
}

// Registry returns the private registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.reg
}

// Handler exposes the registry in Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

// MetricsStore holds the latest reading for exporters.
type MetricsStore struct {
	mu      sync.RWMutex
	reading *model.Reading
	ts      time.Time
}

// NewMetricsStore creates a new store.
func NewMetricsStore() *MetricsStore {
	return &MetricsStore{}
}

// Update stores the latest reading.
func (s *MetricsStore) Update(r model.Reading) {
	s.mu.Lock()
	s.reading = &r
	s.ts = time.Now()
	s.mu.Unlock()
}

// Latest returns the latest stored reading and when it was stored.
func (s *MetricsStore) Latest() (*model.Reading, time.Time) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.reading == nil {
		return nil, s.ts
	}
	cpy := *s.reading
	return &cpy, s.ts
}

// instrumentedTicker updates the store and metrics on each tick.
type instrumentedTicker struct {
	inner   Ticker
	store   *MetricsStore
	metrics *Metrics
}

// NewInstrumentedTicker wraps a ticker and updates the metrics store.
// Either store or metrics may be nil.
func NewInstrumentedTicker(inner Ticker, store *MetricsStore, metrics *Metrics) Ticker {
	return &instrumentedTicker{inner: inner, store: store, metrics: metrics}
}

func (t *instrumentedTicker) Tick(f model.Frame) model.Reading {
	r := t.inner.Tick(f)
	if t.store != nil {
		t.store.Update(r)
	}
	if t.metrics != nil {
		t.metrics.Observe(r)
	}
	return r
}

func (t *instrumentedTicker) Base() *Session {
	return t.inner.Base()
}
