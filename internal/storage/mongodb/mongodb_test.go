package mongodb

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"github.com/JakeFAU/leadgen-scraper/internal/store"
)

func TestProgressDocNormalizesLegacyFields(t *testing.T) {
	t.Parallel()

	oid := primitive.NewObjectID()
	start := 5
	se := "legacy-engine"
	doc := progressDoc{
		ID:                   oid,
		LegacyNicheID:        "n1",
		LegacyQueryID:        "q1",
		StartParam:           &start,
		LegacySearchEngineID: &se,
	}

	p := doc.toProgress()
	require.Equal(t, oid.Hex(), p.ID)
	require.Equal(t, "n1", p.NicheID)
	require.Equal(t, "q1", p.QueryID)
	require.Equal(t, 5, p.PageNum)
	require.True(t, p.LegacyPageNum)
	require.Equal(t, "legacy-engine", *p.SearchEngineID)
	require.True(t, p.IsMain())
}

func TestProgressDocPrefersCanonicalFields(t *testing.T) {
	t.Parallel()

	page, start := 3, 9
	se, legacySE := "current", "old"
	doc := progressDoc{
		NicheID:              "n2",
		LegacyNicheID:        "n1",
		QueryID:              "q2",
		PageNum:              &page,
		StartParam:           &start,
		SearchEngineID:       &se,
		LegacySearchEngineID: &legacySE,
	}

	p := doc.toProgress()
	require.Equal(t, "n2", p.NicheID)
	require.Equal(t, "q2", p.QueryID)
	require.Equal(t, 3, p.PageNum)
	require.False(t, p.LegacyPageNum)
	require.Equal(t, "current", *p.SearchEngineID)

	require.Equal(t, 1, progressDoc{}.toProgress().PageNum)
}

func TestUpdateDocument(t *testing.T) {
	t.Parallel()

	now := time.Unix(1700000000, 0).UTC()
	without := updateDocument(store.ProgressUpdate{Done: true, PageNum: 2, UpdatedAt: now})
	set := without["$set"].(bson.M)
	require.Equal(t, true, set["done"])
	require.Equal(t, 2, set["page_num"])
	require.NotContains(t, set, "search_engine_id", "omission never clears the stored value")
	require.Equal(t, bson.M{"start_param": ""}, without["$unset"])

	se := "cx"
	with := updateDocument(store.ProgressUpdate{SearchEngineID: &se})
	require.Equal(t, "cx", with["$set"].(bson.M)["search_engine_id"])
}

func TestTripleFilter(t *testing.T) {
	t.Parallel()

	main := tripleFilter("n1", "q1", nil)
	clauses := main["$and"].(bson.A)
	require.Len(t, clauses, 3)
	require.Equal(t, bson.M{"sub_query_id": nil}, clauses[2])

	sub := "s1"
	withSub := tripleFilter("n1", "q1", &sub)
	require.Equal(t, bson.M{"sub_query_id": "s1"}, withSub["$and"].(bson.A)[2])
}

func TestValidateID(t *testing.T) {
	t.Parallel()

	s := &ProgressStore{}
	require.NoError(t, s.ValidateID(primitive.NewObjectID().Hex()))
	require.ErrorIs(t, s.ValidateID("xyz"), store.ErrInvalidID)
	require.ErrorIs(t, s.ValidateID(""), store.ErrInvalidID)
}

func TestProgressStoreAgainstMockDeployment(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	ns := "test." + progressCollection
	now := time.Unix(1700000000, 0).UTC()

	mt.Run("find pending decodes legacy document", func(mt *mtest.T) {
		oid := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{
			{Key: "_id", Value: oid},
			{Key: "i_id", Value: "n1"},
			{Key: "q_id", Value: "q1"},
			{Key: "done", Value: false},
			{Key: "start_param", Value: int32(5)},
			{Key: "created_at", Value: now},
		}))

		p, err := NewProgressStore(mt.DB).FindPending(context.Background())
		require.NoError(mt, err)
		require.Equal(mt, oid.Hex(), p.ID)
		require.Equal(mt, "n1", p.NicheID)
		require.Equal(mt, 5, p.PageNum)
		require.True(mt, p.LegacyPageNum)
	})

	mt.Run("find pending with no documents", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns, mtest.FirstBatch))

		_, err := NewProgressStore(mt.DB).FindPending(context.Background())
		require.ErrorIs(mt, err, store.ErrNotFound)
	})

	mt.Run("duplicate create is a conflict", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error",
		}))

		_, err := NewProgressStore(mt.DB).Create(context.Background(), store.Progress{NicheID: "n1", QueryID: "q1", PageNum: 1})
		require.ErrorIs(mt, err, store.ErrConflict)
	})

	mt.Run("create returns canonical record", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse())

		p, err := NewProgressStore(mt.DB).Create(context.Background(), store.Progress{NicheID: "n1", QueryID: "q1", PageNum: 1, CreatedAt: now})
		require.NoError(mt, err)
		require.NoError(mt, (&ProgressStore{}).ValidateID(p.ID))
		require.Equal(mt, 1, p.PageNum)
		require.False(mt, p.LegacyPageNum)
	})

	mt.Run("update returns the new document", func(mt *mtest.T) {
		oid := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: bson.D{
			{Key: "_id", Value: oid},
			{Key: "niche_id", Value: "n1"},
			{Key: "query_id", Value: "q1"},
			{Key: "done", Value: true},
			{Key: "page_num", Value: int32(7)},
			{Key: "created_at", Value: now},
			{Key: "updated_at", Value: now},
		}}))

		p, err := NewProgressStore(mt.DB).Update(context.Background(), oid.Hex(), store.ProgressUpdate{Done: true, PageNum: 7, UpdatedAt: now})
		require.NoError(mt, err)
		require.True(mt, p.Done)
		require.Equal(mt, 7, p.PageNum)
	})

	mt.Run("update of missing record", func(mt *mtest.T) {
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: nil}))

		_, err := NewProgressStore(mt.DB).Update(context.Background(), primitive.NewObjectID().Hex(), store.ProgressUpdate{})
		require.ErrorIs(mt, err, store.ErrNotFound)
	})

	mt.Run("counts", func(mt *mtest.T) {
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{{Key: "n", Value: int32(3)}}),
			mtest.CreateCursorResponse(0, ns, mtest.FirstBatch, bson.D{{Key: "n", Value: int32(2)}}),
		)

		counts, err := NewProgressStore(mt.DB).Count(context.Background())
		require.NoError(mt, err)
		require.Equal(mt, store.ProgressCounts{Total: 3, Done: 2}, counts)
	})
}

func TestTaxonomyStoreAgainstMockDeployment(t *testing.T) {
	mt := mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
	now := time.Unix(1700000000, 0).UTC()

	mt.Run("list niches", func(mt *mtest.T) {
		first, second := primitive.NewObjectID(), primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test."+nichesCollection, mtest.FirstBatch,
			bson.D{{Key: "_id", Value: first}, {Key: "niche_name", Value: "fintech"}, {Key: "created_at", Value: now}},
			bson.D{{Key: "_id", Value: second}, {Key: "niche_name", Value: "saas"}, {Key: "created_at", Value: now}},
		))

		niches, err := NewTaxonomyStore(mt.DB).ListNiches(context.Background())
		require.NoError(mt, err)
		require.Len(mt, niches, 2)
		require.Equal(mt, first.Hex(), niches[0].ID)
		require.Equal(mt, "saas", niches[1].Name)
	})

	mt.Run("malformed id never reaches the server", func(mt *mtest.T) {
		_, err := NewTaxonomyStore(mt.DB).GetQuery(context.Background(), "not-hex")
		require.ErrorIs(mt, err, store.ErrInvalidID)
	})

	mt.Run("get sub-query", func(mt *mtest.T) {
		oid := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test."+subQueriesCollection, mtest.FirstBatch, bson.D{
			{Key: "_id", Value: oid},
			{Key: "query_id", Value: "q1"},
			{Key: "sub_query", Value: "{{query}} tools"},
		}))

		sq, err := NewTaxonomyStore(mt.DB).GetSubQuery(context.Background(), oid.Hex())
		require.NoError(mt, err)
		require.Equal(mt, "{{query}} tools", sq.Text)
		require.Equal(mt, "q1", sq.QueryID)
	})

	mt.Run("list sub-queries matches object id and hex references", func(mt *mtest.T) {
		queryID := primitive.NewObjectID()
		first, second := primitive.NewObjectID(), primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, "test."+subQueriesCollection, mtest.FirstBatch,
			bson.D{{Key: "_id", Value: first}, {Key: "query_id", Value: queryID}, {Key: "sub_query", Value: "{{query}} pricing"}},
			bson.D{{Key: "_id", Value: second}, {Key: "query_id", Value: queryID.Hex()}, {Key: "sub_query", Value: "{{query}} reviews"}},
		))

		subs, err := NewTaxonomyStore(mt.DB).ListSubQueries(context.Background(), queryID.Hex())
		require.NoError(mt, err)
		require.Len(mt, subs, 2)
		require.Equal(mt, queryID.Hex(), subs[0].QueryID)
		require.Equal(mt, queryID.Hex(), subs[1].QueryID)

		find := mt.GetStartedEvent()
		require.Equal(mt, "find", find.CommandName)
		require.Equal(mt, bsontype.Array, find.Command.Lookup("filter", "query_id", "$in").Type)
		require.Equal(mt, bsontype.ObjectID, find.Command.Lookup("filter", "query_id", "$in", "0").Type)
		require.Equal(mt, bsontype.String, find.Command.Lookup("filter", "query_id", "$in", "1").Type)
	})

	mt.Run("list sub-queries rejects malformed query id", func(mt *mtest.T) {
		_, err := NewTaxonomyStore(mt.DB).ListSubQueries(context.Background(), "not-hex")
		require.ErrorIs(mt, err, store.ErrInvalidID)
	})

	mt.Run("create sub-query stores query_id as object id", func(mt *mtest.T) {
		queryID := primitive.NewObjectID()
		mt.AddMockResponses(
			mtest.CreateCursorResponse(0, "test."+queriesCollection, mtest.FirstBatch,
				bson.D{{Key: "_id", Value: queryID}, {Key: "query", Value: "{{niche}} vendors"}}),
			mtest.CreateSuccessResponse(),
		)

		sub, err := NewTaxonomyStore(mt.DB).CreateSubQuery(context.Background(), store.SubQuery{
			QueryID:   queryID.Hex(),
			Text:      "{{query}} pricing",
			CreatedAt: now,
			UpdatedAt: now,
		})
		require.NoError(mt, err)
		require.Equal(mt, queryID.Hex(), sub.QueryID)

		require.Equal(mt, "find", mt.GetStartedEvent().CommandName)
		insert := mt.GetStartedEvent()
		require.Equal(mt, "insert", insert.CommandName)
		stored := insert.Command.Lookup("documents", "0", "query_id")
		require.Equal(mt, bsontype.ObjectID, stored.Type)
		require.Equal(mt, queryID, stored.ObjectID())
	})
}
