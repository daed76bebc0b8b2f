package metrics

import "github.com/prometheus/client_golang/prometheus"

const Namespace = "dynip"

// Registry holds every metric created through this package. It is separate
// from the prometheus default registry so it can be served on its own.
var Registry = prometheus.NewRegistry()

func register[C prometheus.Collector](metric C) C {
	Registry.MustRegister(metric)
	return metric
}

func NewCounterVec(opts prometheus.CounterOpts, labelNames []string) *prometheus.CounterVec {
	if opts.Namespace == "" {
		opts.Namespace = Namespace
	}
	return register(prometheus.NewCounterVec(opts, labelNames))
}

func NewCounter(opts prometheus.CounterOpts) prometheus.Counter {
	if opts.Namespace == "" {
		opts.Namespace = Namespace
	}
	return register(prometheus.NewCounter(opts))
}

func NewGauge(opts prometheus.GaugeOpts) prometheus.Gauge {
	if opts.Namespace == "" {
		opts.Namespace = Namespace
	}
	return register(prometheus.NewGauge(opts))
}

func NewGaugeVec(opts prometheus.GaugeOpts, labelNames []string) *prometheus.GaugeVec {
	if opts.Namespace == "" {
		opts.Namespace = Namespace
	}
	return register(prometheus.NewGaugeVec(opts, labelNames))
}

func NewHistogram(opts prometheus.HistogramOpts) prometheus.Histogram {
	if opts.Namespace == "" {
		opts.Namespace = Namespace
	}
	return register(prometheus.NewHistogram(opts))
}
