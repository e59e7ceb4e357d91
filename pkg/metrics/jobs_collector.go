package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/refurbd/renovation-planner/internal/store"
	"go.uber.org/zap"
)

type jobStatsCollector struct {
	store       store.Store
	totalJobs   *prometheus.Desc
	jobsByState *prometheus.Desc
	jobsByType  *prometheus.Desc
}

func newJobStatsCollector(s store.Store) prometheus.Collector {
	fqName := func(name string) string {
		return fmt.Sprintf("%s_jobs_%s", renovationPlanner, name)
	}

	return &jobStatsCollector{
		store: s,
		totalJobs: prometheus.NewDesc(
			fqName("total"),
			"Total number of jobs.",
			nil,
			prometheus.Labels{},
		),
		jobsByState: prometheus.NewDesc(
			fqName("by_status_total"),
			"Total jobs by status.",
			[]string{"status"},
			prometheus.Labels{},
		),
		jobsByType: prometheus.NewDesc(
			fqName("by_type_total"),
			"Total jobs by type.",
			[]string{"type"},
			prometheus.Labels{},
		),
	}
}

func (c *jobStatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.totalJobs
	ch <- c.jobsByState
	ch <- c.jobsByType
}

func (c *jobStatsCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	stats, err := c.store.Statistics(ctx)
	if err != nil {
		zap.S().Named("metrics").Errorf("failed to collect job statistics: %v", err)
		return
	}

	ch <- prometheus.MustNewConstMetric(c.totalJobs, prometheus.GaugeValue, float64(stats.Total))
	for status, count := range stats.ByStatus {
		ch <- prometheus.MustNewConstMetric(c.jobsByState, prometheus.GaugeValue, float64(count), status)
	}
	for jobType, count := range stats.ByType {
		ch <- prometheus.MustNewConstMetric(c.jobsByType, prometheus.GaugeValue, float64(count), jobType)
	}
}

// RegisterJobStatsCollector wires the store-backed collector into the
// default registry. Call once at startup.
func RegisterJobStatsCollector(s store.Store) {
	prometheus.MustRegister(newJobStatsCollector(s))
}
