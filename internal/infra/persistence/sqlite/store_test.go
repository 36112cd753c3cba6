package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"taskcore/pkg/domain"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "state.db"), domain.NewRulesEngine())
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func run(t *testing.T, store *Store, fn func(domain.Transaction) error) error {
	t.Helper()
	_, err := store.RunInTransaction(context.Background(), fn)
	return err
}

func view(t *testing.T, store *Store, fn func(domain.TransactionView) error) {
	t.Helper()
	require.NoError(t, store.View(context.Background(), fn))
}

func seedProject(t *testing.T, store *Store, key string) *domain.Project {
	t.Helper()
	p, err := domain.NewProject(uuid.Nil, "Project "+key, key, nil, testNow)
	require.NoError(t, err)
	require.NoError(t, run(t, store, func(tx domain.Transaction) error { return tx.CreateProject(p) }))
	return p
}

func seedItem(t *testing.T, store *Store, projectID uuid.UUID, title string) *domain.WorkItem {
	t.Helper()
	w, err := domain.NewWorkItem(uuid.Nil, projectID, title, testNow)
	require.NoError(t, err)
	require.NoError(t, run(t, store, func(tx domain.Transaction) error { return tx.CreateWorkItem(w) }))
	return w
}

func findItem(t *testing.T, store *Store, id uuid.UUID) (*domain.WorkItem, bool) {
	t.Helper()
	var (
		item  *domain.WorkItem
		found bool
	)
	view(t, store, func(v domain.TransactionView) error {
		var err error
		item, found, err = v.FindWorkItem(id)
		return err
	})
	return item, found
}

// failOn installs a trigger that aborts the given statement kind on table.
func failOn(t *testing.T, store *Store, event, table string) {
	t.Helper()
	stmt := "CREATE TRIGGER fail_" + table + " BEFORE " + event + " ON " + table +
		" BEGIN SELECT RAISE(ABORT, 'simulated write failure'); END;"
	_, err := store.DB().Exec(stmt)
	require.NoError(t, err)
}

func TestNewStoreAppliesSchema(t *testing.T) {
	store := newTestStore(t)
	for _, table := range []string{"projects", "features", "work_items", "work_item_tags", "item_labels", "due_dates", "views"} {
		var name string
		err := store.DB().QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name = ?", table).Scan(&name)
		require.NoError(t, err, table)
		assert.Equal(t, table, name)
	}
	var fk int
	require.NoError(t, store.DB().QueryRow("PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)
}

func TestStorePersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.db")
	store, err := NewStore(path, nil)
	require.NoError(t, err)
	p := seedProject(t, store, "PERS")
	w := seedItem(t, store, p.ID(), "Persist me")
	require.NoError(t, store.Close())

	reopened, err := NewStore(path, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = reopened.Close() })
	item, found := findItem(t, reopened, w.ID())
	require.True(t, found)
	assert.Equal(t, "Persist me", item.Title())
	assert.True(t, item.Token().Equal(w.Token()))
	assert.True(t, item.CreatedAt().Equal(testNow))
}

func TestWorkItemRoundTripsEveryColumn(t *testing.T) {
	store := newTestStore(t)
	p := seedProject(t, store, "RT")
	feature, err := p.AddFeature("Search", testNow)
	require.NoError(t, err)
	require.NoError(t, run(t, store, func(tx domain.Transaction) error { return tx.UpdateProject(p) }))
	owner, err := domain.NewTeamMember(uuid.Nil, "Ada", "dev", "ada@example.com", testNow)
	require.NoError(t, err)
	require.NoError(t, run(t, store, func(tx domain.Transaction) error { return tx.CreateTeamMember(owner) }))

	w, err := domain.NewWorkItem(uuid.Nil, p.ID(), "Index", testNow)
	require.NoError(t, err)
	fid, oid := feature.ID(), owner.ID()
	w.AssignFeature(&fid, testNow)
	w.AssignOwner(&oid, testNow)
	est := decimal.RequireFromString("2.5")
	require.NoError(t, w.SetEstimate(&est, testNow))
	due := testNow.Add(48 * time.Hour)
	w.SetDueAt(&due, testNow)
	require.NoError(t, w.ReplaceTags([]string{"Backend", "search"}, testNow))
	require.NoError(t, w.ChangeStatus(domain.StatusDone, testNow.Add(time.Hour)))
	require.NoError(t, run(t, store, func(tx domain.Transaction) error { return tx.CreateWorkItem(w) }))

	got, found := findItem(t, store, w.ID())
	require.True(t, found)
	assert.Equal(t, w.Record(), got.Record())
}

func TestUpdateWithStaleTokenConflicts(t *testing.T) {
	store := newTestStore(t)
	p := seedProject(t, store, "CONF")
	w := seedItem(t, store, p.ID(), "Original")

	first, _ := findItem(t, store, w.ID())
	second, _ := findItem(t, store, w.ID())

	require.NoError(t, first.Retitle("First", testNow))
	require.NoError(t, run(t, store, func(tx domain.Transaction) error { return tx.UpdateWorkItem(first) }))

	require.NoError(t, second.Retitle("Second", testNow))
	err := run(t, store, func(tx domain.Transaction) error { return tx.UpdateWorkItem(second) })
	require.Error(t, err)
	assert.True(t, domain.IsConflict(err))
	assert.False(t, domain.IsNotFound(err))

	got, _ := findItem(t, store, w.ID())
	assert.Equal(t, "First", got.Title())
}

func TestUpdateMissingIsNotFound(t *testing.T) {
	store := newTestStore(t)
	label, err := domain.NewLabel(uuid.Nil, "ghost", nil, testNow)
	require.NoError(t, err)
	label.StampToken(domain.TokenFromVersion(1))
	err = run(t, store, func(tx domain.Transaction) error { return tx.UpdateLabel(label) })
	require.Error(t, err)
	assert.True(t, domain.IsNotFound(err))
}

func TestDeleteAbsentIsNoop(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, run(t, store, func(tx domain.Transaction) error {
		if err := tx.DeleteWorkItem(uuid.New()); err != nil {
			return err
		}
		if err := tx.DeleteDueDate(uuid.New()); err != nil {
			return err
		}
		return tx.DeleteProject(uuid.New())
	}))
}

func TestUpdateFailureRollsBackEarlierWrites(t *testing.T) {
	store := newTestStore(t)
	p := seedProject(t, store, "RBU")
	w := seedItem(t, store, p.ID(), "Stable")
	failOn(t, store, "UPDATE", "work_items")

	label, err := domain.NewLabel(uuid.Nil, "urgent", nil, testNow)
	require.NoError(t, err)
	item, _ := findItem(t, store, w.ID())
	require.NoError(t, item.Retitle("Changed", testNow))

	err = run(t, store, func(tx domain.Transaction) error {
		if err := tx.CreateLabel(label); err != nil {
			return err
		}
		return tx.UpdateWorkItem(item)
	})
	require.Error(t, err)

	view(t, store, func(v domain.TransactionView) error {
		labels, err := v.ListLabels()
		require.NoError(t, err)
		assert.Empty(t, labels)
		return nil
	})
	got, _ := findItem(t, store, w.ID())
	assert.Equal(t, "Stable", got.Title())
	assert.True(t, got.Token().Equal(w.Token()))
}

func TestDeleteFailureRollsBackEarlierWrites(t *testing.T) {
	store := newTestStore(t)
	p := seedProject(t, store, "RBD")
	w := seedItem(t, store, p.ID(), "Keep")
	failOn(t, store, "DELETE", "work_items")

	due, err := domain.NewDueDate(w.ID(), testNow.Add(time.Hour), "UTC", false, domain.Recurrence{}, testNow)
	require.NoError(t, err)
	err = run(t, store, func(tx domain.Transaction) error {
		if err := tx.UpsertDueDate(due); err != nil {
			return err
		}
		return tx.DeleteWorkItem(w.ID())
	})
	require.Error(t, err)

	_, found := findItem(t, store, w.ID())
	assert.True(t, found)
	view(t, store, func(v domain.TransactionView) error {
		_, ok, err := v.FindDueDate(w.ID())
		require.NoError(t, err)
		assert.False(t, ok)
		return nil
	})
}

func TestAssignFailureRollsBackEarlierWrites(t *testing.T) {
	store := newTestStore(t)
	p := seedProject(t, store, "RBA")
	w := seedItem(t, store, p.ID(), "Labelled")
	label, err := domain.NewLabel(uuid.Nil, "before", nil, testNow)
	require.NoError(t, err)
	require.NoError(t, run(t, store, func(tx domain.Transaction) error { return tx.CreateLabel(label) }))
	failOn(t, store, "INSERT", "item_labels")

	require.NoError(t, label.Rename("after", testNow))
	err = run(t, store, func(tx domain.Transaction) error {
		if err := tx.UpdateLabel(label); err != nil {
			return err
		}
		return tx.AssignLabel(domain.ItemLabel{ItemID: w.ID(), LabelID: label.ID()})
	})
	require.Error(t, err)

	view(t, store, func(v domain.TransactionView) error {
		got, ok, err := v.FindLabel(label.ID())
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, "before", got.Name())
		links, err := v.ListItemLabels(w.ID())
		require.NoError(t, err)
		assert.Empty(t, links)
		return nil
	})
}

func TestBlockingRuleRollsBack(t *testing.T) {
	engine := domain.NewRulesEngine()
	engine.Register(blockAll{})
	store, err := NewStore(filepath.Join(t.TempDir(), "state.db"), engine)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	p, err := domain.NewProject(uuid.Nil, "Blocked", "BLK", nil, testNow)
	require.NoError(t, err)
	_, err = store.RunInTransaction(context.Background(), func(tx domain.Transaction) error { return tx.CreateProject(p) })
	var violation domain.RuleViolationError
	require.True(t, errors.As(err, &violation))

	view(t, store, func(v domain.TransactionView) error {
		projects, err := v.ListProjects()
		require.NoError(t, err)
		assert.Empty(t, projects)
		return nil
	})
}

func TestFailedCommitLeavesTokensUnstamped(t *testing.T) {
	engine := domain.NewRulesEngine()
	engine.Register(blockAll{})
	store, err := NewStore(filepath.Join(t.TempDir(), "state.db"), engine)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	p, err := domain.NewProject(uuid.Nil, "Blocked", "BLK", nil, testNow)
	require.NoError(t, err)
	_, err = store.RunInTransaction(context.Background(), func(tx domain.Transaction) error { return tx.CreateProject(p) })
	require.Error(t, err)
	assert.True(t, p.Token().IsZero(), "a rejected create keeps no token")
}

func TestUpdateTwiceInOneTransaction(t *testing.T) {
	store := newTestStore(t)
	p := seedProject(t, store, "TWO")
	w := seedItem(t, store, p.ID(), "Draft")
	read := w.Token()

	require.NoError(t, run(t, store, func(tx domain.Transaction) error {
		if err := w.Retitle("Second draft", testNow); err != nil {
			return err
		}
		if err := tx.UpdateWorkItem(w); err != nil {
			return err
		}
		assert.True(t, w.Token().Equal(read), "token is stamped only on commit")
		if err := w.Retitle("Final", testNow); err != nil {
			return err
		}
		return tx.UpdateWorkItem(w)
	}))
	assert.True(t, w.Token().Equal(domain.TokenFromVersion(3)))

	require.NoError(t, w.Retitle("Abandoned", testNow))
	err := run(t, store, func(tx domain.Transaction) error {
		if err := tx.UpdateWorkItem(w); err != nil {
			return err
		}
		return errors.New("boom")
	})
	require.Error(t, err)
	assert.True(t, w.Token().Equal(domain.TokenFromVersion(3)), "rolled back update keeps the read token")
	got, _ := findItem(t, store, w.ID())
	assert.Equal(t, "Final", got.Title())
}

func TestViewReadsOneSnapshot(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	p, err := domain.NewProject(uuid.Nil, "Late", "LATE", nil, testNow)
	require.NoError(t, err)

	written := make(chan error, 1)
	err = store.View(ctx, func(v domain.TransactionView) error {
		before, err := v.ListProjects()
		if err != nil {
			return err
		}
		go func() {
			_, err := store.RunInTransaction(ctx, func(tx domain.Transaction) error { return tx.CreateProject(p) })
			written <- err
		}()
		select {
		case err := <-written:
			t.Errorf("write committed inside an open view: %v", err)
		case <-time.After(200 * time.Millisecond):
		}
		after, err := v.ListProjects()
		if err != nil {
			return err
		}
		assert.Len(t, after, len(before))
		return nil
	})
	require.NoError(t, err)
	require.NoError(t, <-written)

	view(t, store, func(v domain.TransactionView) error {
		projects, err := v.ListProjects()
		require.NoError(t, err)
		assert.Len(t, projects, 1)
		return nil
	})
}

type blockAll struct{}

func (blockAll) Name() string { return "block_all" }

func (blockAll) Evaluate(_ context.Context, _ domain.TransactionView, changes []domain.Change) (domain.Result, error) {
	var res domain.Result
	for _, c := range changes {
		res.Violations = append(res.Violations, domain.Violation{Rule: "block_all", Severity: domain.SeverityBlock, Entity: c.Entity, EntityID: c.ID.String()})
	}
	return res, nil
}

func TestCancelledContextAbortsCommit(t *testing.T) {
	store := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	p, err := domain.NewProject(uuid.Nil, "Cancelled", "CXL", nil, testNow)
	require.NoError(t, err)
	_, err = store.RunInTransaction(ctx, func(tx domain.Transaction) error {
		if err := tx.CreateProject(p); err != nil {
			return err
		}
		cancel()
		return nil
	})
	require.ErrorIs(t, err, context.Canceled)
	view(t, store, func(v domain.TransactionView) error {
		_, ok, err := v.FindProject(p.ID())
		require.NoError(t, err)
		assert.False(t, ok)
		return nil
	})
}

func TestUpsertDueDateReplacesAndKeepsCreatedAt(t *testing.T) {
	store := newTestStore(t)
	p := seedProject(t, store, "DUE")
	w := seedItem(t, store, p.ID(), "Recurring")

	weekly := domain.RecurWeekly
	interval := 2
	mask := domain.MaskMonday | domain.MaskFriday
	first, err := domain.NewDueDate(w.ID(), testNow.Add(24*time.Hour), "Europe/Berlin", true,
		domain.Recurrence{Type: &weekly, Interval: &interval, Weekdays: &mask}, testNow)
	require.NoError(t, err)
	require.NoError(t, run(t, store, func(tx domain.Transaction) error { return tx.UpsertDueDate(first) }))

	later := testNow.Add(time.Hour)
	second, err := domain.NewDueDate(w.ID(), testNow.Add(72*time.Hour), "UTC", false, domain.Recurrence{}, later)
	require.NoError(t, err)
	require.NoError(t, run(t, store, func(tx domain.Transaction) error { return tx.UpsertDueDate(second) }))

	view(t, store, func(v domain.TransactionView) error {
		got, ok, err := v.FindDueDate(w.ID())
		require.NoError(t, err)
		require.True(t, ok)
		rec := got.Record()
		assert.True(t, rec.DueAt.Equal(testNow.Add(72*time.Hour)))
		assert.Equal(t, "UTC", rec.Timezone)
		assert.False(t, rec.Recurring)
		assert.Nil(t, rec.Recurrence.Type)
		assert.Nil(t, rec.Recurrence.Interval)
		assert.Nil(t, rec.Recurrence.Weekdays)
		assert.True(t, rec.CreatedAt.Equal(testNow))
		assert.True(t, rec.UpdatedAt.Equal(later))
		return nil
	})
}

func TestReorderSectionsKeepsOmittedOrder(t *testing.T) {
	store := newTestStore(t)
	p := seedProject(t, store, "ORD")
	ids := make(map[string]uuid.UUID)
	require.NoError(t, run(t, store, func(tx domain.Transaction) error {
		for i, name := range []string{"A", "B", "C"} {
			s, err := domain.NewSection(uuid.Nil, p.ID(), name, i, testNow)
			if err != nil {
				return err
			}
			if err := tx.CreateSection(s); err != nil {
				return err
			}
			ids[name] = s.ID()
		}
		return nil
	}))

	var changed []*domain.Section
	require.NoError(t, run(t, store, func(tx domain.Transaction) error {
		var err error
		changed, err = tx.ReorderSections(p.ID(), []uuid.UUID{ids["C"], ids["A"]}, testNow.Add(time.Minute))
		return err
	}))
	assert.Len(t, changed, 2)

	view(t, store, func(v domain.TransactionView) error {
		sections, err := v.ListSections(p.ID())
		require.NoError(t, err)
		order := map[string]int{}
		for _, s := range sections {
			order[s.Name()] = s.SortOrder()
		}
		assert.Equal(t, map[string]int{"C": 0, "A": 1, "B": 1}, order)
		return nil
	})
}

func TestDeletesCascadeAndClearReferences(t *testing.T) {
	store := newTestStore(t)
	p := seedProject(t, store, "CAS")
	feature, err := p.AddFeature("Auth", testNow)
	require.NoError(t, err)
	require.NoError(t, run(t, store, func(tx domain.Transaction) error { return tx.UpdateProject(p) }))

	member, err := domain.NewTeamMember(uuid.Nil, "Lin", "", "", testNow)
	require.NoError(t, err)
	require.NoError(t, run(t, store, func(tx domain.Transaction) error { return tx.CreateTeamMember(member) }))

	w, err := domain.NewWorkItem(uuid.Nil, p.ID(), "Login", testNow)
	require.NoError(t, err)
	fid, mid := feature.ID(), member.ID()
	w.AssignFeature(&fid, testNow)
	w.AssignOwner(&mid, testNow)
	require.NoError(t, run(t, store, func(tx domain.Transaction) error { return tx.CreateWorkItem(w) }))

	topic, err := domain.NewResearchTopic(uuid.Nil, "Auth flows", "security", "pick one", testNow)
	require.NoError(t, err)
	wid := w.ID()
	_, err = topic.AddNote(domain.NoteFinding, "OIDC works", &wid, testNow)
	require.NoError(t, err)
	entry, err := domain.NewTimeEntry(uuid.Nil, w.ID(), testNow, testNow.Add(time.Hour), domain.SourceManual, "", testNow)
	require.NoError(t, err)
	require.NoError(t, run(t, store, func(tx domain.Transaction) error {
		if err := tx.CreateResearchTopic(topic); err != nil {
			return err
		}
		return tx.CreateTimeEntry(entry)
	}))

	require.True(t, p.RemoveFeature(feature.ID(), testNow))
	require.NoError(t, run(t, store, func(tx domain.Transaction) error {
		if err := tx.UpdateProject(p); err != nil {
			return err
		}
		return tx.DeleteTeamMember(member.ID())
	}))
	got, _ := findItem(t, store, w.ID())
	assert.Nil(t, got.FeatureID())
	assert.Nil(t, got.OwnerID())

	require.NoError(t, run(t, store, func(tx domain.Transaction) error { return tx.DeleteProject(p.ID()) }))
	_, found := findItem(t, store, w.ID())
	assert.False(t, found)
	view(t, store, func(v domain.TransactionView) error {
		gotTopic, ok, err := v.FindResearchTopic(topic.ID())
		require.NoError(t, err)
		require.True(t, ok)
		require.Len(t, gotTopic.Notes(), 1)
		assert.Nil(t, gotTopic.Notes()[0].LinkedWorkItemID())
		_, ok, err = v.FindTimeEntry(entry.ID())
		require.NoError(t, err)
		assert.True(t, ok)
		return nil
	})
}

func TestCreateRequiresReferencedRows(t *testing.T) {
	store := newTestStore(t)
	w, err := domain.NewWorkItem(uuid.Nil, uuid.New(), "Orphan", testNow)
	require.NoError(t, err)
	err = run(t, store, func(tx domain.Transaction) error { return tx.CreateWorkItem(w) })
	assert.True(t, domain.IsNotFound(err))
}

func TestListWorkItemsAppliesFilter(t *testing.T) {
	store := newTestStore(t)
	a := seedProject(t, store, "LA")
	b := seedProject(t, store, "LB")
	tagged, err := domain.NewWorkItem(uuid.Nil, a.ID(), "Tagged", testNow)
	require.NoError(t, err)
	require.NoError(t, tagged.ReplaceTags([]string{"UI"}, testNow))
	require.NoError(t, run(t, store, func(tx domain.Transaction) error { return tx.CreateWorkItem(tagged) }))
	seedItem(t, store, a.ID(), "Plain")
	seedItem(t, store, b.ID(), "Other")

	pid := a.ID()
	view(t, store, func(v domain.TransactionView) error {
		items, err := v.ListWorkItems(domain.WorkItemFilter{ProjectID: &pid})
		require.NoError(t, err)
		assert.Len(t, items, 2)
		items, err = v.ListWorkItems(domain.WorkItemFilter{ProjectID: &pid, Tag: "ui"})
		require.NoError(t, err)
		require.Len(t, items, 1)
		assert.Equal(t, tagged.ID(), items[0].ID())
		assert.Equal(t, []string{"UI"}, items[0].Tags())
		byKey, ok, err := v.FindProjectByKey(" lb ")
		require.NoError(t, err)
		require.True(t, ok)
		assert.Equal(t, b.ID(), byKey.ID())
		return nil
	})
}

func TestAssignLabelIsIdempotent(t *testing.T) {
	store := newTestStore(t)
	p := seedProject(t, store, "LBL")
	w := seedItem(t, store, p.ID(), "Item")
	label, err := domain.NewLabel(uuid.Nil, "bug", nil, testNow)
	require.NoError(t, err)
	link := domain.ItemLabel{ItemID: w.ID(), LabelID: label.ID()}
	require.NoError(t, run(t, store, func(tx domain.Transaction) error {
		if err := tx.CreateLabel(label); err != nil {
			return err
		}
		if err := tx.AssignLabel(link); err != nil {
			return err
		}
		return tx.AssignLabel(link)
	}))
	view(t, store, func(v domain.TransactionView) error {
		links, err := v.ListItemLabels(w.ID())
		require.NoError(t, err)
		assert.Equal(t, []domain.ItemLabel{link}, links)
		return nil
	})
	require.NoError(t, run(t, store, func(tx domain.Transaction) error {
		if err := tx.UnassignLabel(link); err != nil {
			return err
		}
		return tx.UnassignLabel(link)
	}))
}
