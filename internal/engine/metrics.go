package engine

import "github.com/prometheus/client_golang/prometheus"

// Metrics are the engine's Prometheus collectors. The web layer exposes
// them on /metrics; tests use the unregistered NopMetrics variant.
type Metrics struct {
	CyclesTotal      prometheus.Counter
	CycleErrors      prometheus.Counter
	DetectionsTotal  prometheus.Counter
	DetectionErrors  prometheus.Counter
	StoreErrors      prometheus.Counter
	AttendanceEvents *prometheus.CounterVec
}

// NewMetrics builds the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := newMetrics()
	reg.MustRegister(
		m.CyclesTotal,
		m.CycleErrors,
		m.DetectionsTotal,
		m.DetectionErrors,
		m.StoreErrors,
		m.AttendanceEvents,
	)
	return m
}

// NopMetrics builds unregistered collectors. Incrementing them is valid; the
// values are simply never scraped.
func NopMetrics() *Metrics {
	return newMetrics()
}

func newMetrics() *Metrics {
	return &Metrics{
		CyclesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "presence_engine_cycles_total",
			Help: "Recognition cycles executed.",
		}),
		CycleErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "presence_engine_cycle_errors_total",
			Help: "Recognition cycles aborted by a contained panic.",
		}),
		DetectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "presence_detection_cycles_total",
			Help: "Detection cycles executed (the expensive path).",
		}),
		DetectionErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "presence_detection_errors_total",
			Help: "Detection or encoding calls that failed.",
		}),
		StoreErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "presence_store_errors_total",
			Help: "Attendance or schedule store operations that failed.",
		}),
		AttendanceEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "presence_attendance_events_total",
			Help: "Attendance events written, by status.",
		}, []string{"status"}),
	}
}
