package backup

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"taskcore/internal/blob"
	"taskcore/internal/core"
	"taskcore/internal/infra/persistence/memory"
	"taskcore/pkg/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var seedTime = time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC)

type seeded struct {
	project *domain.Project
	item    *domain.WorkItem
	due     *domain.DueDate
}

func seed(t *testing.T, svc *core.Service) seeded {
	t.Helper()
	ctx := context.Background()
	at := svc.Now()

	member, err := domain.NewTeamMember(uuid.Nil, "Ada", "Engineer", "ada@example.com", at)
	require.NoError(t, err)
	member, _, err = svc.CreateTeamMember(ctx, member)
	require.NoError(t, err)

	project, err := domain.NewProject(uuid.Nil, "Platform", "PLAT", nil, at)
	require.NoError(t, err)
	feature, err := project.AddFeature("Search", at)
	require.NoError(t, err)
	project, _, err = svc.CreateProject(ctx, project)
	require.NoError(t, err)

	item, err := domain.NewWorkItem(uuid.Nil, project.ID(), "Index documents", at)
	require.NoError(t, err)
	featureID, ownerID := feature.ID(), member.ID()
	item.AssignFeature(&featureID, at)
	item.AssignOwner(&ownerID, at)
	_, err = item.AddTag("backend", at)
	require.NoError(t, err)
	item, _, err = svc.CreateWorkItem(ctx, item)
	require.NoError(t, err)

	for i, name := range []string{"Todo", "Doing"} {
		sec, err := domain.NewSection(uuid.Nil, project.ID(), name, i, at)
		require.NoError(t, err)
		_, _, err = svc.CreateSection(ctx, sec)
		require.NoError(t, err)
	}

	label, err := domain.NewLabel(uuid.Nil, "urgent", nil, at)
	require.NoError(t, err)
	label, _, err = svc.CreateLabel(ctx, label)
	require.NoError(t, err)
	_, err = svc.AssignLabel(ctx, item.ID(), label.ID())
	require.NoError(t, err)

	due, err := domain.NewDueDate(item.ID(), at.Add(72*time.Hour), "Europe/Berlin", false, domain.Recurrence{}, at)
	require.NoError(t, err)
	due, _, err = svc.UpsertDueDate(ctx, due)
	require.NoError(t, err)

	reminder, err := domain.NewReminder(uuid.Nil, item.ID(), at.Add(48*time.Hour), at)
	require.NoError(t, err)
	_, _, err = svc.CreateReminder(ctx, reminder)
	require.NoError(t, err)

	topic, err := domain.NewResearchTopic(uuid.Nil, "Ranking", "search", "better recall", at)
	require.NoError(t, err)
	itemID := item.ID()
	_, err = topic.AddNote(domain.NoteFinding, "BM25 is enough", &itemID, at)
	require.NoError(t, err)
	_, _, err = svc.CreateResearchTopic(ctx, topic)
	require.NoError(t, err)

	entry, err := domain.NewTimeEntry(uuid.Nil, item.ID(), at, at.Add(time.Hour), domain.SourceManual, "pairing", at)
	require.NoError(t, err)
	_, _, err = svc.CreateTimeEntry(ctx, entry)
	require.NoError(t, err)

	projectID := project.ID()
	view, err := domain.NewView(uuid.Nil, "Platform by priority", domain.ViewFilter{ProjectID: &projectID, Sort: domain.SortPriority}, at)
	require.NoError(t, err)
	_, _, err = svc.CreateView(ctx, view)
	require.NoError(t, err)

	return seeded{project: project, item: item, due: due}
}

func newService(t *testing.T) *core.Service {
	t.Helper()
	return core.NewInMemoryService(core.NewDefaultRulesEngine(), core.WithClock(core.ClockFunc(func() time.Time { return seedTime })))
}

// steppingClock advances one second per call so successive exports get distinct keys.
func steppingClock(start time.Time) func() time.Time {
	var mu sync.Mutex
	next := start
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now := next
		next = next.Add(time.Second)
		return now
	}
}

func TestExportWritesSnapshotBlob(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	seed(t, svc)
	blobs, err := blob.Open(ctx, blob.Options{Driver: blob.DriverMemory})
	require.NoError(t, err)

	exp := NewExporter(svc.Store(), blobs, WithClock(func() time.Time { return seedTime }))
	info, err := exp.Export(ctx)
	require.NoError(t, err)
	assert.Equal(t, "snapshots/20240304T093000.000000000Z.json", info.Key)
	assert.Equal(t, "application/json", info.ContentType)
	assert.Equal(t, "1", info.Metadata["projects"])
	assert.Equal(t, "2", info.Metadata["sections"])

	snap, err := exp.Load(ctx, info.Key)
	require.NoError(t, err)
	assert.Equal(t, FormatVersion, snap.Version)
	assert.Equal(t, seedTime, snap.CapturedAt)
	assert.Len(t, snap.TeamMembers, 1)
	assert.Len(t, snap.WorkItems, 1)
	assert.Len(t, snap.ItemLabels, 1)
	assert.Len(t, snap.DueDates, 1)
	assert.Len(t, snap.Reminders, 1)
	assert.Len(t, snap.ResearchTopics, 1)
	assert.Len(t, snap.TimeEntries, 1)
	assert.Len(t, snap.Views, 1)

	_, err = exp.Export(ctx)
	assert.ErrorIs(t, err, blob.ErrExists)
}

func TestRestoreIntoEmptyStore(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	src := seed(t, svc)
	blobs, err := blob.Open(ctx, blob.Options{Driver: blob.DriverMemory})
	require.NoError(t, err)
	exp := NewExporter(svc.Store(), blobs, WithClock(steppingClock(seedTime)))
	info, err := exp.Export(ctx)
	require.NoError(t, err)

	target := core.NewService(memory.NewStore(core.NewDefaultRulesEngine()))
	snap, err := exp.Restore(ctx, info.Key, target.Store())
	require.NoError(t, err)
	assert.Len(t, snap.Projects, 1)

	project, err := target.GetProjectByKey(ctx, "plat")
	require.NoError(t, err)
	assert.Equal(t, src.project.ID(), project.ID())
	assert.Len(t, project.Features(), 1)

	item, err := target.GetWorkItem(ctx, src.item.ID())
	require.NoError(t, err)
	assert.Equal(t, []string{"backend"}, item.Tags())
	assert.Equal(t, src.item.OwnerID(), item.OwnerID())

	due, err := target.GetDueDate(ctx, src.item.ID())
	require.NoError(t, err)
	assert.True(t, src.due.CreatedAt().Equal(due.CreatedAt()))
	assert.Equal(t, "Europe/Berlin", due.Timezone())

	labels, err := target.ListItemLabels(ctx, src.item.ID())
	require.NoError(t, err)
	assert.Len(t, labels, 1)

	sections, err := target.ListSections(ctx, project.ID())
	require.NoError(t, err)
	assert.Len(t, sections, 2)

	again, err := Capture(ctx, target.Store(), seedTime)
	require.NoError(t, err)
	assert.Equal(t, snap.Counts(), again.Counts())
}

func TestRestoreIntoPopulatedStoreRollsBack(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	seed(t, svc)
	blobs, err := blob.Open(ctx, blob.Options{Driver: blob.DriverMemory})
	require.NoError(t, err)
	exp := NewExporter(svc.Store(), blobs)
	info, err := exp.Export(ctx)
	require.NoError(t, err)

	_, err = exp.Restore(ctx, info.Key, svc.Store())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "restore team_member")

	projects, err := svc.ListProjects(ctx)
	require.NoError(t, err)
	assert.Len(t, projects, 1)
}

func TestListAndLatest(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	blobs, err := blob.Open(ctx, blob.Options{Driver: blob.DriverMemory})
	require.NoError(t, err)
	exp := NewExporter(svc.Store(), blobs, WithPrefix("nightly/"), WithClock(steppingClock(seedTime)))

	_, err = exp.Latest(ctx)
	require.ErrorIs(t, err, blob.ErrNotFound)

	first, err := exp.Export(ctx)
	require.NoError(t, err)
	second, err := exp.Export(ctx)
	require.NoError(t, err)
	_, err = blobs.Put(ctx, "nightly/README.txt", strings.NewReader("notes"), blob.PutOptions{})
	require.NoError(t, err)

	listed, err := exp.List(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, first.Key, listed[0].Key)

	latest, err := exp.Latest(ctx)
	require.NoError(t, err)
	assert.Equal(t, second.Key, latest)
}

func TestLoadRejectsUnknownVersion(t *testing.T) {
	ctx := context.Background()
	blobs, err := blob.Open(ctx, blob.Options{Driver: blob.DriverMemory})
	require.NoError(t, err)
	_, err = blobs.Put(ctx, "snapshots/old.json", strings.NewReader(`{"version":99}`), blob.PutOptions{})
	require.NoError(t, err)

	exp := NewExporter(memory.NewStore(nil), blobs)
	_, err = exp.Load(ctx, "snapshots/old.json")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported version 99")

	_, err = exp.Load(ctx, "snapshots/missing.json")
	assert.ErrorIs(t, err, blob.ErrNotFound)
}

func TestSnapshotApplyRejectsVersionMismatch(t *testing.T) {
	store := memory.NewStore(nil)
	_, err := store.RunInTransaction(context.Background(), Snapshot{Version: 2}.Apply)
	require.Error(t, err)
}

func TestWorkerRunsQueuedExport(t *testing.T) {
	ctx := context.Background()
	svc := newService(t)
	seed(t, svc)
	blobs, err := blob.Open(ctx, blob.Options{Driver: blob.DriverMemory})
	require.NoError(t, err)
	worker := NewWorker(NewExporter(svc.Store(), blobs, WithClock(steppingClock(seedTime))), 4)
	worker.Start()
	defer func() { require.NoError(t, worker.Stop(context.Background())) }()

	job, err := worker.Enqueue("ops")
	require.NoError(t, err)
	assert.Equal(t, StatusQueued, job.Status)
	assert.Equal(t, "ops", job.RequestedBy)

	require.Eventually(t, func() bool {
		current, ok := worker.Job(job.ID)
		return ok && current.Status == StatusSucceeded
	}, 2*time.Second, 10*time.Millisecond)

	done, _ := worker.Job(job.ID)
	require.NotNil(t, done.Artifact)
	require.NotNil(t, done.CompletedAt)
	assert.True(t, strings.HasPrefix(done.Artifact.Key, DefaultPrefix))

	_, ok := worker.Job("missing")
	assert.False(t, ok)
}

func TestWorkerQueueFull(t *testing.T) {
	blobs, err := blob.Open(context.Background(), blob.Options{Driver: blob.DriverMemory})
	require.NoError(t, err)
	worker := NewWorker(NewExporter(memory.NewStore(nil), blobs), 1)

	_, err = worker.Enqueue("a")
	require.NoError(t, err)
	_, err = worker.Enqueue("b")
	assert.ErrorIs(t, err, ErrQueueFull)
	require.NoError(t, worker.Stop(context.Background()))
}
