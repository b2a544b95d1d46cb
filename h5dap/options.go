package h5dap

import (
	"go.uber.org/zap"

	"github.com/robert-malhotra/go-h5dap/dtype"
	"github.com/robert-malhotra/go-h5dap/h5err"
)

// Option configures a Reader.
type Option func(*options)

type options struct {
	logger   *zap.Logger
	metrics  *Metrics
	lenient  bool
	target   dtype.Target
	maxDepth int
}

func defaultOptions() *options {
	return &options{
		logger:   zap.NewNop(),
		target:   dtype.TargetDAP2,
		maxDepth: h5err.MaxDepth,
	}
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithMetrics records read metrics into m.
func WithMetrics(m *Metrics) Option {
	return func(o *options) {
		o.metrics = m
	}
}

// WithLenient drops record members of unsupported type, marking them with
// value.Ignored, instead of failing the read.
func WithLenient(lenient bool) Option {
	return func(o *options) {
		o.lenient = lenient
	}
}

// WithTarget selects the value model values are produced for.
func WithTarget(t dtype.Target) Option {
	return func(o *options) {
		o.target = t
	}
}

// WithMaxDepth lowers the nesting limit for type descriptors. Values
// outside 1..h5err.MaxDepth are ignored.
func WithMaxDepth(depth int) Option {
	return func(o *options) {
		if depth > 0 && depth <= h5err.MaxDepth {
			o.maxDepth = depth
		}
	}
}
