package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks use case outcomes and registrations.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	MarksCreated    prometheus.Counter
	PeopleCreated   prometheus.Counter
	UseCaseErrors   *prometheus.CounterVec
	UseCaseDuration *prometheus.HistogramVec
}

// New registers all metrics on reg. Tests pass a fresh prometheus.NewRegistry().
func New(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		MarksCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "signa_marks_created_total",
			Help: "Total number of marks created",
		}),
		PeopleCreated: factory.NewCounter(prometheus.CounterOpts{
			Name: "signa_people_created_total",
			Help: "Total number of people provisioned with credentials",
		}),
		UseCaseErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "signa_usecase_errors_total",
			Help: "Use case failures by error kind",
		}, []string{"usecase", "kind"}),
		UseCaseDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "signa_usecase_duration_seconds",
			Help:    "Duration of use case executions",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}, []string{"usecase"}),
	}
}

func (m *Metrics) IncrementMarksCreated() {
	if m == nil {
		return
	}
	m.MarksCreated.Inc()
}

func (m *Metrics) IncrementPeopleCreated() {
	if m == nil {
		return
	}
	m.PeopleCreated.Inc()
}

// ObserveUseCase records the duration since start and, when kind is not
// empty, one failure of that kind.
func (m *Metrics) ObserveUseCase(usecase string, start time.Time, kind string) {
	if m == nil {
		return
	}
	m.UseCaseDuration.WithLabelValues(usecase).Observe(time.Since(start).Seconds())
	if kind != "" {
		m.UseCaseErrors.WithLabelValues(usecase, kind).Inc()
	}
}
