package observer

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/internal/assert"
	"github.com/Azure-Samples/cognitive-services-go-sdk-samples/poll"
)

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := NewMetrics(reg)
	assert.IsNil(t, err)

	obs := m.Observer("luis")
	obs(poll.Running, 1)
	obs(poll.Running, 2)
	obs(poll.Succeeded, 3)
	m.Outcome("luis", time.Now().Add(-3*time.Second), poll.Succeeded, nil)

	assert.Equal(t, testutil.ToFloat64(m.polls.WithLabelValues("luis", "Running")), 2.0)
	assert.Equal(t, testutil.ToFloat64(m.polls.WithLabelValues("luis", "Succeeded")), 1.0)
	assert.Equal(t, testutil.ToFloat64(m.outcomes.WithLabelValues("luis", OutcomeSucceeded)), 1.0)
	assert.Equal(t, testutil.CollectAndCount(m.wait), 1)

	_, err = NewMetrics(reg)
	assert.NotEqual(t, err, nil)
}
