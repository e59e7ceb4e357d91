package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	renovationPlanner = "renovation_planner"

	renderingsGeneratedTotal = "renderings_generated_total"
	sseSubscriberCount       = "sse_subscriber_count"

	renderingOutcomeLabel = "outcome"
)

var renderingsGeneratedTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: renovationPlanner,
		Name:      renderingsGeneratedTotal,
		Help:      "number of rendering generations partitioned by outcome",
	},
	[]string{renderingOutcomeLabel},
)

var sseSubscriberCountMetric = prometheus.NewGauge(
	prometheus.GaugeOpts{
		Subsystem: renovationPlanner,
		Name:      sseSubscriberCount,
		Help:      "number of currently connected event stream subscribers",
	},
)

func IncreaseRenderingsGeneratedMetric(outcome string) {
	renderingsGeneratedTotalMetric.With(prometheus.Labels{renderingOutcomeLabel: outcome}).Inc()
}

func UpdateSSESubscriberCountMetric(count int) {
	sseSubscriberCountMetric.Set(float64(count))
}

func init() {
	registerMetrics()
}

func registerMetrics() {
	prometheus.MustRegister(renderingsGeneratedTotalMetric)
	prometheus.MustRegister(sseSubscriberCountMetric)
}

type PrometheusMetricsHandler struct{}

func NewPrometheusMetricsHandler() *PrometheusMetricsHandler {
	return &PrometheusMetricsHandler{}
}

func (p *PrometheusMetricsHandler) Handler() http.Handler {
	return promhttp.Handler()
}
