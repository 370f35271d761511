package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollector(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	c := NewCollector()
	require.NoError(t, c.Register(reg))

	c.Step("up", 1, StatusSuccess, 10*time.Millisecond)
	c.Step("up", 2, StatusSuccess, 10*time.Millisecond)
	c.Step("up", 3, StatusFailure, 10*time.Millisecond)
	c.Current(2)

	assert.Equal(t, float64(1), testutil.ToFloat64(c.Steps.WithLabelValues("up", "1", StatusSuccess)))
	assert.Equal(t, float64(1), testutil.ToFloat64(c.Steps.WithLabelValues("up", "3", StatusFailure)))
	assert.Equal(t, float64(2), testutil.ToFloat64(c.CurrentVersion))
	assert.Equal(t, 1, testutil.CollectAndCount(c.StepDuration))

	t.Run("registering twice fails", func(t *testing.T) {
		assert.Error(t, c.Register(reg))
	})
}
