package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics_Registers(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.RunsTotal.Inc()
	m.JobsTotal.WithLabelValues("4h", "ok").Add(3)
	m.JobsTotal.WithLabelValues("4h", "skipped").Inc()
	m.TradesTotal.WithLabelValues("1d", "LONG").Inc()
	m.ScanAlerts.WithLabelValues("rsi").Add(2)

	families, err := reg.Gather()
	require.NoError(t, err)
	totals := make(map[string]float64)
	for _, f := range families {
		for _, metric := range f.GetMetric() {
			totals[f.GetName()] += metric.GetCounter().GetValue()
		}
	}
	assert.Equal(t, 1.0, totals["trendsentinel_runs_total"])
	assert.Equal(t, 4.0, totals["trendsentinel_jobs_total"])
	assert.Equal(t, 1.0, totals["trendsentinel_trades_total"])
	assert.Equal(t, 2.0, totals["trendsentinel_scan_alerts_total"])

	assert.Panics(t, func() { NewMetrics(reg) }, "double registration must fail loudly")
}
