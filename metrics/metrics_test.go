package metrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordOperation(t *testing.T) {
	t.Parallel()

	m, err := New(prometheus.NewRegistry())
	require.NoError(t, err)

	m.RecordOperation("register", nil)
	m.RecordOperation("register", nil)
	m.RecordOperation("register", errors.New("duplicate"))

	assert.Equal(t, float64(2), testutil.ToFloat64(m.operationsTotal.WithLabelValues("register", StatusSuccess)))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.operationsTotal.WithLabelValues("register", StatusError)))
}

func TestGauges(t *testing.T) {
	t.Parallel()

	m, err := New(prometheus.NewRegistry())
	require.NoError(t, err)

	m.SetCatalogSize(4)
	m.SetMeal(2, 250, 420.5)

	assert.Equal(t, float64(4), testutil.ToFloat64(m.catalogFoods))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.mealItems))
	assert.Equal(t, 250.0, testutil.ToFloat64(m.mealWeight))
	assert.Equal(t, 420.5, testutil.ToFloat64(m.mealEnergy))
}

func TestNewRejectsDoubleRegistration(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	_, err := New(reg)
	require.NoError(t, err)
	_, err = New(reg)
	require.Error(t, err)
}
