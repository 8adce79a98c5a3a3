package observability

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/justjake/querybench/pkg/report"
	"github.com/justjake/querybench/pkg/scenario"
)

// Metrics holds the Prometheus gauges describing one benchmark run.
type Metrics struct {
	Registry *prometheus.Registry

	// Gauges
	ExecutionTime          *prometheus.GaugeVec
	ReferenceExecutionTime *prometheus.GaugeVec
	Throughput             *prometheus.GaugeVec
	Speedup                *prometheus.GaugeVec
	RunInfo                *prometheus.GaugeVec

	// Histograms
	PhaseDuration *prometheus.HistogramVec
}

// NewMetrics creates a Metrics instance registered on its own registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		// Gauges
		ExecutionTime: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "querybench_execution_time_ms",
				Help: "Mean execution time of a query at a table length, in milliseconds",
			},
			[]string{"query", "table_length"},
		),
		ReferenceExecutionTime: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "querybench_reference_execution_time_ms",
				Help: "Reference execution time of a query at a table length, in milliseconds",
			},
			[]string{"query", "table_length"},
		),
		Throughput: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "querybench_throughput_rows_per_minute",
				Help: "Table rows processed per minute",
			},
			[]string{"query", "table_length"},
		),
		Speedup: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "querybench_speedup",
				Help: "Reference execution time divided by current execution time",
			},
			[]string{"query", "table_length"},
		),
		RunInfo: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "querybench_run_info",
				Help: "Always 1; labels describe the run",
			},
			[]string{"session_id", "architecture", "platform"},
		),

		// Histograms
		PhaseDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "querybench_phase_duration_seconds",
				Help:    "Wall time of a run phase in seconds",
				Buckets: prometheus.ExponentialBuckets(0.01, 4, 10), // 10ms to ~43min
			},
			[]string{"phase"},
		),
	}
}

// RecordRun sets the run info gauge.
func (m *Metrics) RecordRun(sessionID, architecture, platform string) {
	if m == nil {
		return
	}
	m.RunInfo.WithLabelValues(sessionID, architecture, platform).Set(1)
}

// RecordScenario sets the timing gauges of every table length that has a
// measured or reference timing.
func (m *Metrics) RecordScenario(s *scenario.Setting) {
	if m == nil {
		return
	}
	query := strconv.Itoa(s.Index)
	for i, length := range s.TableLengths {
		tl := strconv.Itoa(length)
		if i < len(s.ExecutionTimes) {
			cur := s.ExecutionTimes[i]
			m.ExecutionTime.WithLabelValues(query, tl).Set(cur)
			if cur > 0 {
				m.Throughput.WithLabelValues(query, tl).Set(report.Throughput(length, cur))
			}
			if i < len(s.ReferenceExecutionTimes) {
				if cmp := report.Compare(s.ReferenceExecutionTimes[i], cur); cmp.Status != report.StatusUnknown {
					m.Speedup.WithLabelValues(query, tl).Set(cmp.Speedup)
				}
			}
		}
		if i < len(s.ReferenceExecutionTimes) {
			m.ReferenceExecutionTime.WithLabelValues(query, tl).Set(s.ReferenceExecutionTimes[i])
		}
	}
}

// RecordPhase observes how long a run phase took.
func (m *Metrics) RecordPhase(phase string, d time.Duration) {
	if m == nil {
		return
	}
	m.PhaseDuration.WithLabelValues(phase).Observe(d.Seconds())
}

// WriteTextfile writes the registry in the text exposition format, for the
// node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.Registry)
}
