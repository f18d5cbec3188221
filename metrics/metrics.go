// Package metrics exposes Prometheus metrics for catalog and meal operations.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Metrics holds the collectors for one registry.
type Metrics struct {
	operationsTotal *prometheus.CounterVec
	catalogFoods    prometheus.Gauge
	mealItems       prometheus.Gauge
	mealEnergy      prometheus.Gauge
	mealWeight      prometheus.Gauge

	collectors []prometheus.Collector
}

// New creates the metrics and registers them with registry.
func New(registry prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		operationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "nutricalc_operations_total",
				Help: "Catalog and meal operations by outcome",
			},
			[]string{"operation", "status"},
		),
		catalogFoods: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "nutricalc_catalog_foods",
			Help: "Number of foods in the catalog",
		}),
		mealItems: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "nutricalc_meal_items",
			Help: "Number of line items in the current meal",
		}),
		mealEnergy: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "nutricalc_meal_energy_kcal",
			Help: "Total energy of the current meal",
		}),
		mealWeight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "nutricalc_meal_weight_grams",
			Help: "Total weight of the current meal",
		}),
	}
	m.collectors = []prometheus.Collector{
		m.operationsTotal, m.catalogFoods, m.mealItems, m.mealEnergy, m.mealWeight,
	}

	if err := registry.Register(m); err != nil {
		return nil, err
	}
	return m, nil
}

// Describe implements prometheus.Collector.
func (m *Metrics) Describe(ch chan<- *prometheus.Desc) {
	for _, c := range m.collectors {
		c.Describe(ch)
	}
}

// Collect implements prometheus.Collector.
func (m *Metrics) Collect(ch chan<- prometheus.Metric) {
	for _, c := range m.collectors {
		c.Collect(ch)
	}
}

// RecordOperation counts one operation; err decides the status label.
func (m *Metrics) RecordOperation(operation string, err error) {
	status := StatusSuccess
	if err != nil {
		status = StatusError
	}
	m.operationsTotal.WithLabelValues(operation, status).Inc()
}

func (m *Metrics) SetCatalogSize(n int) {
	m.catalogFoods.Set(float64(n))
}

// SetMeal records the item count and the totals of the current meal.
func (m *Metrics) SetMeal(items int, weightG, energyKcal float64) {
	m.mealItems.Set(float64(items))
	m.mealWeight.Set(weightG)
	m.mealEnergy.Set(energyKcal)
}
