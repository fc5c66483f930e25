package vecbench

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// PrometheusCollector exports benchmark metrics to Prometheus.
type PrometheusCollector struct {
	queryLatency *prometheus.SummaryVec
	queryErrors  *prometheus.CounterVec
	recall       *prometheus.GaugeVec
	qps          *prometheus.GaugeVec
	rounds       prometheus.Counter
	readSeconds  *prometheus.GaugeVec
	readPoints   *prometheus.GaugeVec
	indexSeconds *prometheus.GaugeVec
}

var _ MetricsCollector = (*PrometheusCollector)(nil)

// NewPrometheusCollector creates the collector and registers its metrics
// with reg. A nil reg means prometheus.DefaultRegisterer.
func NewPrometheusCollector(reg prometheus.Registerer) (*PrometheusCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	p := &PrometheusCollector{
		queryLatency: prometheus.NewSummaryVec(prometheus.SummaryOpts{
			Namespace:  "vecbench",
			Subsystem:  "sweep",
			Name:       "query_latency_seconds",
			Help:       "Latency of single searches per ef",
			Objectives: map[float64]float64{0.5: 0.05, 0.95: 0.01, 0.99: 0.001},
			MaxAge:     3 * time.Minute,
			AgeBuckets: 3,
		}, []string{"ef"}),
		queryErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "vecbench",
			Subsystem: "sweep",
			Name:      "query_errors_total",
			Help:      "Searches that returned an error",
		}, []string{"ef"}),
		recall: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "vecbench",
			Subsystem: "sweep",
			Name:      "recall_percent",
			Help:      "Aggregate recall of the last round per ef",
		}, []string{"ef"}),
		qps: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "vecbench",
			Subsystem: "sweep",
			Name:      "queries_per_second",
			Help:      "Throughput of the last round per ef",
		}, []string{"ef"}),
		rounds: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "vecbench",
			Subsystem: "sweep",
			Name:      "rounds_total",
			Help:      "Completed sweep rounds",
		}),
		readSeconds: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "vecbench",
			Subsystem: "dataset",
			Name:      "read_seconds",
			Help:      "Time spent reading an input file",
		}, []string{"path"}),
		readPoints: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "vecbench",
			Subsystem: "dataset",
			Name:      "points",
			Help:      "Rows read from an input file",
		}, []string{"path"}),
		indexSeconds: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "vecbench",
			Subsystem: "index",
			Name:      "prepare_seconds",
			Help:      "Time spent building and saving, or loading, the index",
		}, []string{"kind", "mode"}),
	}

	for _, c := range []prometheus.Collector{
		p.queryLatency, p.queryErrors, p.recall, p.qps, p.rounds,
		p.readSeconds, p.readPoints, p.indexSeconds,
	} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}

	return p, nil
}

// RecordRead implements MetricsCollector.
func (p *PrometheusCollector) RecordRead(path string, points int, duration time.Duration, err error) {
	if err != nil {
		return
	}
	p.readSeconds.WithLabelValues(path).Set(duration.Seconds())
	p.readPoints.WithLabelValues(path).Set(float64(points))
}

// RecordIndex implements MetricsCollector.
func (p *PrometheusCollector) RecordIndex(kind string, mode Mode, duration time.Duration, err error) {
	if err != nil {
		return
	}
	p.indexSeconds.WithLabelValues(kind, mode.String()).Set(duration.Seconds())
}

// RecordQuery implements MetricsCollector.
func (p *PrometheusCollector) RecordQuery(ef int, duration time.Duration, err error) {
	label := strconv.Itoa(ef)
	if err != nil {
		p.queryErrors.WithLabelValues(label).Inc()
		return
	}
	p.queryLatency.WithLabelValues(label).Observe(duration.Seconds())
}

// RecordRound implements MetricsCollector.
func (p *PrometheusCollector) RecordRound(ef int, recall, qps float64, _ time.Duration) {
	label := strconv.Itoa(ef)
	p.recall.WithLabelValues(label).Set(recall)
	p.qps.WithLabelValues(label).Set(qps)
	p.rounds.Inc()
}
