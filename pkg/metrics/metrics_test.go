package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetricsRegisters(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics("clinic", reg)

	m.WorkflowOperations.WithLabelValues("triage", "success").Inc()
	m.CareBoardPatients.WithLabelValues("urgent").Set(2)

	families, err := reg.Gather()
	require.NoError(t, err)
	values := map[string]float64{}
	for _, f := range families {
		for _, metric := range f.GetMetric() {
			switch {
			case metric.GetCounter() != nil:
				values[f.GetName()] = metric.GetCounter().GetValue()
			case metric.GetGauge() != nil:
				values[f.GetName()] = metric.GetGauge().GetValue()
			}
		}
	}
	assert.Equal(t, float64(1), values["clinic_workflow_operations_total"])
	assert.Equal(t, float64(2), values["clinic_care_board_patients"])
}

func TestNewDoesNotRegister(t *testing.T) {
	assert.NotPanics(t, func() {
		New("clinic")
		New("clinic")
	})
}
