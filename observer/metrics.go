package observer

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/poll"
)

// Metrics holds Prometheus collectors for polling sessions.
type Metrics struct {
	polls    *prometheus.CounterVec
	outcomes *prometheus.CounterVec
	wait     *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		polls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cogsamples",
			Name:      "job_polls_total",
			Help:      "Number of successful job status queries by observed status.",
		}, []string{"service", "status"}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "cogsamples",
			Name:      "job_outcomes_total",
			Help:      "Number of finished polling sessions by outcome.",
		}, []string{"service", "outcome"}),
		wait: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "cogsamples",
			Name:      "job_wait_seconds",
			Help:      "Time from job submission to the terminal status.",
			Buckets:   prometheus.ExponentialBuckets(1, 2, 12),
		}, []string{"service", "outcome"}),
	}
	for _, c := range []prometheus.Collector{m.polls, m.outcomes, m.wait} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

// Observer returns an Observer counting status queries for service.
func (m *Metrics) Observer(service string) poll.Observer {
	return func(status poll.Status, _ int) {
		m.polls.WithLabelValues(service, status.String()).Inc()
	}
}

// Outcome records the result of a finished polling session for a job
// submitted at submittedAt.
func (m *Metrics) Outcome(service string, submittedAt time.Time, status poll.Status, err error) {
	outcome := OutcomeOf(status, err)
	m.outcomes.WithLabelValues(service, outcome).Inc()
	m.wait.WithLabelValues(service, outcome).Observe(time.Since(submittedAt).Seconds())
}
