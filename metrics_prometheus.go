package p2term

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ironsheep/pnutterm-ingest/internal/message"
)

// PrometheusCollector adapts *Metrics to prometheus.Collector so the
// process-wide counters can be scraped by promhttp.Handler().
type PrometheusCollector struct {
	metrics *Metrics

	bytesIn             *prometheus.Desc
	bytesSkippedZero    *prometheus.Desc
	messagesEmitted     *prometheus.Desc
	overflowCount       *prometheus.Desc
	poolExhaustionCount *prometheus.Desc
	responsesSent       *prometheus.Desc
	resetsCoalesced     *prometheus.Desc
	velocityEWMA        *prometheus.Desc
	currentPacerMs      *prometheus.Desc
}

// NewPrometheusCollector builds a collector over the given metrics
// instance. constLabels is applied to every exported series (e.g. a
// device/port identifier for multi-port deployments).
func NewPrometheusCollector(m *Metrics, constLabels prometheus.Labels) *PrometheusCollector {
	return &PrometheusCollector{
		metrics: m,
		bytesIn: prometheus.NewDesc(
			"p2term_bytes_in_total", "Total bytes accepted into the ring buffer.", nil, constLabels),
		bytesSkippedZero: prometheus.NewDesc(
			"p2term_bytes_skipped_zero_total", "Bytes consumed by the post-binary zero filter.", nil, constLabels),
		messagesEmitted: prometheus.NewDesc(
			"p2term_messages_emitted_total", "Extracted messages emitted, by kind.", []string{"kind"}, constLabels),
		overflowCount: prometheus.NewDesc(
			"p2term_overflow_total", "Ring-full pushes dropped.", nil, constLabels),
		poolExhaustionCount: prometheus.NewDesc(
			"p2term_pool_exhaustion_total", "Acquires that exhausted the retry budget.", nil, constLabels),
		responsesSent: prometheus.NewDesc(
			"p2term_responses_sent_total", "52-byte ack stubs handed to the transmit callback.", nil, constLabels),
		resetsCoalesced: prometheus.NewDesc(
			"p2term_resets_coalesced_total", "DTR-high transitions folded into an active reset sequence.", nil, constLabels),
		velocityEWMA: prometheus.NewDesc(
			"p2term_velocity_ewma", "Router's current velocity estimate, messages/second.", nil, constLabels),
		currentPacerMs: prometheus.NewDesc(
			"p2term_current_pacer_ms", "Adaptive pacer's active period, milliseconds.", nil, constLabels),
	}
}

// Describe implements prometheus.Collector.
func (c *PrometheusCollector) Describe(descs chan<- *prometheus.Desc) {
	descs <- c.bytesIn
	descs <- c.bytesSkippedZero
	descs <- c.messagesEmitted
	descs <- c.overflowCount
	descs <- c.poolExhaustionCount
	descs <- c.responsesSent
	descs <- c.resetsCoalesced
	descs <- c.velocityEWMA
	descs <- c.currentPacerMs
}

// Collect implements prometheus.Collector.
func (c *PrometheusCollector) Collect(metrics chan<- prometheus.Metric) {
	snap := c.metrics.Snapshot()

	metrics <- prometheus.MustNewConstMetric(c.bytesIn, prometheus.CounterValue, float64(snap.BytesIn))
	metrics <- prometheus.MustNewConstMetric(c.bytesSkippedZero, prometheus.CounterValue, float64(snap.BytesSkippedZero))

	for _, kind := range message.Kinds() {
		metrics <- prometheus.MustNewConstMetric(
			c.messagesEmitted, prometheus.CounterValue, float64(snap.MessagesEmitted[kind.String()]), kind.String())
	}

	metrics <- prometheus.MustNewConstMetric(c.overflowCount, prometheus.CounterValue, float64(snap.OverflowCount))
	metrics <- prometheus.MustNewConstMetric(c.poolExhaustionCount, prometheus.CounterValue, float64(snap.PoolExhaustionCount))
	metrics <- prometheus.MustNewConstMetric(c.responsesSent, prometheus.CounterValue, float64(snap.ResponsesSent))
	metrics <- prometheus.MustNewConstMetric(c.resetsCoalesced, prometheus.CounterValue, float64(snap.ResetsCoalesced))
	metrics <- prometheus.MustNewConstMetric(c.velocityEWMA, prometheus.GaugeValue, snap.VelocityEWMA)
	metrics <- prometheus.MustNewConstMetric(c.currentPacerMs, prometheus.GaugeValue, float64(snap.CurrentPacerMs))
}

var _ prometheus.Collector = (*PrometheusCollector)(nil)
