package observability

import (
	"context"
	"testing"
	"time"

	"taskcore/internal/core"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ core.MetricsRecorder = (*PrometheusRecorder)(nil)

func TestPrometheusRecorderCountsOutcomes(t *testing.T) {
	rec := NewPrometheusRecorder("taskcore")
	ctx := context.Background()
	rec.Observe(ctx, "create_project", true, 5*time.Millisecond)
	rec.Observe(ctx, "create_project", true, 7*time.Millisecond)
	rec.Observe(ctx, "create_project", false, time.Millisecond)

	assert.InDelta(t, 2, testutil.ToFloat64(rec.operations.WithLabelValues("create_project", "success")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(rec.operations.WithLabelValues("create_project", "error")), 0)

	families, err := rec.Registry().Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.ElementsMatch(t, []string{"taskcore_operations_total", "taskcore_operation_duration_seconds"}, names)
}

func TestPrometheusRecorderRegistriesAreIndependent(t *testing.T) {
	a := NewPrometheusRecorder("taskcore")
	b := NewPrometheusRecorder("taskcore")
	a.Observe(context.Background(), "list_projects", true, time.Millisecond)
	assert.Equal(t, 1, testutil.CollectAndCount(a.durations))
	assert.Equal(t, 0, testutil.CollectAndCount(b.durations))
}

func TestServiceReportsToPrometheus(t *testing.T) {
	rec := NewPrometheusRecorder("svc")
	svc := core.NewInMemoryService(nil, core.WithMetricsRecorder(rec))
	_, err := svc.ListProjects(context.Background())
	require.NoError(t, err)
	assert.InDelta(t, 1, testutil.ToFloat64(rec.operations.WithLabelValues("list_projects", "success")), 0)
}
