package integration

import (
	"context"
	"testing"
	"time"

	"taskcore/internal/backup"
	"taskcore/internal/core"
	"taskcore/internal/handlers"
	"taskcore/internal/observability"
	"taskcore/pkg/domain"

	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

// TestSnapshotRoundTripAcrossAdapters drives a small workflow through the
// mediator, exports it and restores it into a fresh store, for every
// storage and blob adapter pairing.
func TestSnapshotRoundTripAcrossAdapters(t *testing.T) {
	ctx := context.Background()
	due := time.Date(2026, 11, 2, 17, 0, 0, 0, time.UTC)

	for _, sv := range storeVariants() {
		for _, bv := range blobVariants() {
			t.Run(sv.name+"/"+bv.name, func(t *testing.T) {
				metrics := observability.NewPrometheusRecorder("smoke")
				spans := tracetest.NewSpanRecorder()
				provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
				t.Cleanup(func() { _ = provider.Shutdown(ctx) })

				source := sv.open(t)
				svc := core.NewService(source,
					core.WithMetricsRecorder(metrics),
					core.WithTracer(observability.NewOTelTracer(provider)),
				)
				m, err := handlers.New(svc, nil)
				require.NoError(t, err)

				project, out := handlers.SendAs[*domain.Project](ctx, m, handlers.CreateProject{Name: "Platform", Key: "PLAT"})
				require.True(t, out.Succeeded, out.Reason)
				item, out := handlers.SendAs[*domain.WorkItem](ctx, m, handlers.CreateWorkItem{
					ProjectID: project.ID(),
					Title:     "Rotate keys",
					Priority:  domain.PriorityHigh,
					Tags:      []string{"security", "ops"},
				})
				require.True(t, out.Succeeded, out.Reason)
				label, out := handlers.SendAs[*domain.Label](ctx, m, handlers.CreateLabel{Name: "quarterly"})
				require.True(t, out.Succeeded, out.Reason)
				out = m.Send(ctx, handlers.AssignLabel{ItemID: item.ID(), LabelID: label.ID()})
				require.True(t, out.Succeeded, out.Reason)
				out = m.Send(ctx, handlers.SetDueDate{ItemID: item.ID(), DueAt: due, Timezone: "UTC"})
				require.True(t, out.Succeeded, out.Reason)

				exporter := backup.NewExporter(source, bv.open(t))
				info, err := exporter.Export(ctx)
				require.NoError(t, err)
				assert.Equal(t, "1", info.Metadata["work_items"])

				target := sv.open(t)
				_, err = exporter.Restore(ctx, info.Key, target)
				require.NoError(t, err)

				restored := core.NewService(target)
				got, err := restored.GetWorkItem(ctx, item.ID())
				require.NoError(t, err)
				assert.Equal(t, "Rotate keys", got.Title())
				assert.Equal(t, domain.PriorityHigh, got.Priority())
				assert.ElementsMatch(t, []string{"security", "ops"}, got.Tags())
				gotDue, err := restored.GetDueDate(ctx, item.ID())
				require.NoError(t, err)
				assert.True(t, gotDue.DueAt().Equal(due))
				links, err := restored.ListItemLabels(ctx, item.ID())
				require.NoError(t, err)
				require.Len(t, links, 1)
				assert.Equal(t, label.ID(), links[0].LabelID)

				count, err := promtestutil.GatherAndCount(metrics.Registry(), "smoke_operations_total")
				require.NoError(t, err)
				assert.GreaterOrEqual(t, count, 4)

				var sawCreate bool
				for _, s := range spans.Ended() {
					if s.Name() == "create_project" {
						sawCreate = true
						assert.Equal(t, codes.Ok, s.Status().Code)
					}
				}
				assert.True(t, sawCreate, "expected a create_project span")
			})
		}
	}
}
