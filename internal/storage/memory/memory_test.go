package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/leadgen-scraper/internal/store"
)

func TestTaxonomyStoreOrderingAndUniqueness(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewTaxonomyStore(nil)
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	later, err := s.CreateNiche(ctx, store.Niche{Name: "saas", CreatedAt: base.Add(time.Hour)})
	require.NoError(t, err)
	first, err := s.CreateNiche(ctx, store.Niche{Name: "fintech", CreatedAt: base})
	require.NoError(t, err)
	tie, err := s.CreateNiche(ctx, store.Niche{Name: "edtech", CreatedAt: base})
	require.NoError(t, err)

	_, err = s.CreateNiche(ctx, store.Niche{Name: "fintech"})
	require.ErrorIs(t, err, store.ErrConflict)

	niches, err := s.ListNiches(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{first.ID, tie.ID, later.ID}, []string{niches[0].ID, niches[1].ID, niches[2].ID})

	q, err := s.CreateQuery(ctx, store.Query{Text: "best {{niche}}", CreatedAt: base})
	require.NoError(t, err)
	_, err = s.CreateQuery(ctx, store.Query{Text: "best {{niche}}"})
	require.ErrorIs(t, err, store.ErrConflict)

	a, err := s.CreateSubQuery(ctx, store.SubQuery{QueryID: q.ID, Text: "{{query}} b"})
	require.NoError(t, err)
	b, err := s.CreateSubQuery(ctx, store.SubQuery{QueryID: q.ID, Text: "{{query}} a"})
	require.NoError(t, err)
	_, err = s.CreateSubQuery(ctx, store.SubQuery{QueryID: q.ID, Text: "{{query}} a"})
	require.ErrorIs(t, err, store.ErrConflict)
	_, err = s.CreateSubQuery(ctx, store.SubQuery{QueryID: "missing", Text: "x"})
	require.ErrorIs(t, err, store.ErrNotFound)

	subs, err := s.ListSubQueries(ctx, q.ID)
	require.NoError(t, err)
	require.Len(t, subs, 2)
	require.Equal(t, a.ID, subs[0].ID)
	require.Equal(t, b.ID, subs[1].ID)

	nichesCount, err := s.CountNiches(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(3), nichesCount)
	queriesCount, err := s.CountQueries(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), queriesCount)

	_, err = s.GetQuery(ctx, "nope")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestProgressStoreLifecycle(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewProgressStore(nil)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	_, err := s.FindPending(ctx)
	require.ErrorIs(t, err, store.ErrNotFound)

	main, err := s.Create(ctx, store.Progress{NicheID: "n1", QueryID: "q1", PageNum: 1, CreatedAt: now, UpdatedAt: now})
	require.NoError(t, err)
	require.NoError(t, s.ValidateID(main.ID))

	_, err = s.Create(ctx, store.Progress{NicheID: "n1", QueryID: "q1", PageNum: 1})
	require.ErrorIs(t, err, store.ErrConflict, "null sub-query is part of the unique key")

	sub := "s1"
	subRec, err := s.Create(ctx, store.Progress{NicheID: "n1", QueryID: "q1", SubQueryID: &sub, PageNum: 1, CreatedAt: now.Add(time.Minute)})
	require.NoError(t, err)

	found, err := s.Find(ctx, "n1", "q1", nil)
	require.NoError(t, err)
	require.Equal(t, main.ID, found.ID)

	pending, err := s.FindPending(ctx)
	require.NoError(t, err)
	require.Equal(t, main.ID, pending.ID)

	engine := "google"
	updated, err := s.Update(ctx, main.ID, store.ProgressUpdate{Done: true, PageNum: 4, SearchEngineID: &engine, UpdatedAt: now.Add(time.Hour)})
	require.NoError(t, err)
	require.True(t, updated.Done)
	require.Equal(t, 4, updated.PageNum)
	require.Equal(t, "google", *updated.SearchEngineID)

	updated, err = s.Update(ctx, main.ID, store.ProgressUpdate{Done: true, PageNum: 2, UpdatedAt: now.Add(2 * time.Hour)})
	require.NoError(t, err)
	require.NotNil(t, updated.SearchEngineID, "omitting search engine id keeps the stored value")
	require.Equal(t, 2, updated.PageNum)

	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Equal(t, []string{subRec.ID, main.ID}, []string{list[0].ID, list[1].ID})

	counts, err := s.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, store.ProgressCounts{Total: 2, Done: 1}, counts)

	_, err = s.Update(ctx, "018f7b7a-0000-7000-8000-000000000000", store.ProgressUpdate{Done: true})
	require.ErrorIs(t, err, store.ErrNotFound)
	counts, err = s.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(2), counts.Total)
}

func TestProgressStoreLegacyRecords(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewProgressStore(nil)

	rec, err := s.SeedLegacy(store.Progress{NicheID: "n1", QueryID: "q1"}, 5)
	require.NoError(t, err)
	require.Equal(t, 5, rec.PageNum)
	require.True(t, rec.LegacyPageNum)
	require.True(t, s.HasStartParam(rec.ID))

	require.NoError(t, s.MigratePageNum(ctx, rec.ID, rec.PageNum))
	require.False(t, s.HasStartParam(rec.ID))
	got, err := s.Get(ctx, rec.ID)
	require.NoError(t, err)
	require.Equal(t, 5, got.PageNum)
	require.False(t, got.LegacyPageNum)

	other, err := s.SeedLegacy(store.Progress{NicheID: "n1", QueryID: "q2"}, 7)
	require.NoError(t, err)
	_, err = s.Update(ctx, other.ID, store.ProgressUpdate{PageNum: 8})
	require.NoError(t, err)
	require.False(t, s.HasStartParam(other.ID), "update drops start_param")

	require.ErrorIs(t, s.MigratePageNum(ctx, "missing", 1), store.ErrNotFound)
}

func TestProgressStoreValidateID(t *testing.T) {
	t.Parallel()

	s := NewProgressStore(nil)
	require.ErrorIs(t, s.ValidateID("not-a-uuid"), store.ErrInvalidID)
	require.ErrorIs(t, s.ValidateID(""), store.ErrInvalidID)
}

func TestProgressStoreReturnsCopies(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewProgressStore(nil)
	sub := "s1"
	rec, err := s.Create(ctx, store.Progress{NicheID: "n", QueryID: "q", SubQueryID: &sub, PageNum: 1})
	require.NoError(t, err)

	sub = "mutated"
	got, err := s.Get(ctx, rec.ID)
	require.NoError(t, err)
	require.Equal(t, "s1", *got.SubQueryID)

	*got.SubQueryID = "again"
	again, err := s.Get(ctx, rec.ID)
	require.NoError(t, err)
	require.Equal(t, "s1", *again.SubQueryID)
}
