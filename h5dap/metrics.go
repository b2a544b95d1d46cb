package h5dap

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/robert-malhotra/go-h5dap/h5err"
)

// Metrics holds the Prometheus metrics of a Reader.
type Metrics struct {
	Reads          *prometheus.CounterVec
	Errors         *prometheus.CounterVec
	BytesRead      prometheus.Counter
	VlenReclaims   prometheus.Counter
	DecodeDuration prometheus.Histogram
}

// NewMetrics creates and registers all metrics with the provided registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	reads := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "h5dap_reads_total",
		Help: "Total variable reads by result",
	}, []string{"result"})

	errs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "h5dap_errors_total",
		Help: "Total read errors by kind",
	}, []string{"kind"})

	bytesRead := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "h5dap_read_bytes_total",
		Help: "Total raw bytes read from storage",
	})

	reclaims := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "h5dap_vlen_reclaims_total",
		Help: "Total variable-length buffer reclaims",
	})

	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "h5dap_decode_duration_seconds",
		Help:    "Time to read and decode one variable",
		Buckets: prometheus.ExponentialBuckets(0.0005, 4, 8),
	})

	reg.MustRegister(reads, errs, bytesRead, reclaims, duration)

	return &Metrics{
		Reads:          reads,
		Errors:         errs,
		BytesRead:      bytesRead,
		VlenReclaims:   reclaims,
		DecodeDuration: duration,
	}
}

func (m *Metrics) observe(start time.Time, err error) {
	if m == nil {
		return
	}
	m.DecodeDuration.Observe(time.Since(start).Seconds())
	switch {
	case err == nil:
		m.Reads.WithLabelValues("ok").Inc()
	case h5err.IsRelease(err):
		m.Reads.WithLabelValues("partial").Inc()
	default:
		m.Reads.WithLabelValues("error").Inc()
	}
	if err != nil {
		kind, ok := h5err.KindOf(err)
		if !ok {
			kind = "unknown"
		}
		m.Errors.WithLabelValues(string(kind)).Inc()
	}
}

func (m *Metrics) read(n int) {
	if m != nil {
		m.BytesRead.Add(float64(n))
	}
}

func (m *Metrics) reclaimed() {
	if m != nil {
		m.VlenReclaims.Inc()
	}
}
