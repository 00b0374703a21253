package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/JakeFAU/leadgen-scraper/internal/store"
)

// progressDoc is the stored shape. Legacy documents carry i_id, q_id, se_id,
// or start_param instead of the canonical fields.
type progressDoc struct {
	ID                   primitive.ObjectID `bson:"_id,omitempty"`
	NicheID              string             `bson:"niche_id,omitempty"`
	LegacyNicheID        string             `bson:"i_id,omitempty"`
	QueryID              string             `bson:"query_id,omitempty"`
	LegacyQueryID        string             `bson:"q_id,omitempty"`
	SubQueryID           *string            `bson:"sub_query_id"`
	Done                 bool               `bson:"done"`
	PageNum              *int               `bson:"page_num,omitempty"`
	StartParam           *int               `bson:"start_param,omitempty"`
	SearchEngineID       *string            `bson:"search_engine_id"`
	LegacySearchEngineID *string            `bson:"se_id,omitempty"`
	CreatedAt            time.Time          `bson:"created_at"`
	UpdatedAt            time.Time          `bson:"updated_at"`
}

// toProgress returns the canonical record for d.
func (d progressDoc) toProgress() store.Progress {
	p := store.Progress{
		ID:             d.ID.Hex(),
		NicheID:        firstNonEmpty(d.NicheID, d.LegacyNicheID),
		QueryID:        firstNonEmpty(d.QueryID, d.LegacyQueryID),
		SubQueryID:     d.SubQueryID,
		Done:           d.Done,
		SearchEngineID: d.SearchEngineID,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
	if p.SearchEngineID == nil {
		p.SearchEngineID = d.LegacySearchEngineID
	}
	p.PageNum, p.LegacyPageNum = store.NormalizePageNum(d.PageNum, d.StartParam)
	return p
}

// ProgressStore implements store.ProgressRepository over scraped_progress.
type ProgressStore struct {
	coll *mongo.Collection
}

// NewProgressStore binds the scraped_progress collection of db.
func NewProgressStore(db *mongo.Database) *ProgressStore {
	return &ProgressStore{coll: db.Collection(progressCollection)}
}

// ValidateID accepts 24-character hex ObjectIDs.
func (s *ProgressStore) ValidateID(id string) error {
	_, err := parseObjectID(id)
	return err
}

// FindPending returns the oldest record with done=false.
func (s *ProgressStore) FindPending(ctx context.Context) (store.Progress, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	var doc progressDoc
	if err := s.coll.FindOne(ctx, bson.M{"done": false}, opts).Decode(&doc); err != nil {
		return store.Progress{}, translate(err, "find pending progress")
	}
	return doc.toProgress(), nil
}

// Find returns the record for the triple, matching legacy field names too.
func (s *ProgressStore) Find(
	ctx context.Context,
	nicheID, queryID string,
	subQueryID *string,
) (store.Progress, error) {
	var doc progressDoc
	if err := s.coll.FindOne(ctx, tripleFilter(nicheID, queryID, subQueryID)).Decode(&doc); err != nil {
		return store.Progress{}, translate(err, "find progress")
	}
	return doc.toProgress(), nil
}

// Get returns the record with id.
func (s *ProgressStore) Get(ctx context.Context, id string) (store.Progress, error) {
	var doc progressDoc
	if err := findByHex(ctx, s.coll, id, &doc); err != nil {
		return store.Progress{}, translate(err, "get progress "+id)
	}
	return doc.toProgress(), nil
}

// Create inserts p in the canonical shape.
func (s *ProgressStore) Create(ctx context.Context, p store.Progress) (store.Progress, error) {
	page := p.PageNum
	doc := progressDoc{
		ID:             primitive.NewObjectID(),
		NicheID:        p.NicheID,
		QueryID:        p.QueryID,
		SubQueryID:     p.SubQueryID,
		Done:           p.Done,
		PageNum:        &page,
		SearchEngineID: p.SearchEngineID,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
	if _, err := s.coll.InsertOne(ctx, doc); err != nil {
		return store.Progress{}, translate(err, "insert progress")
	}
	return doc.toProgress(), nil
}

// Update applies a worker report and unsets start_param in the same write.
func (s *ProgressStore) Update(ctx context.Context, id string, update store.ProgressUpdate) (store.Progress, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return store.Progress{}, err
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc progressDoc
	err = s.coll.FindOneAndUpdate(ctx, bson.M{"_id": oid}, updateDocument(update), opts).Decode(&doc)
	if err != nil {
		return store.Progress{}, translate(err, "update progress "+id)
	}
	return doc.toProgress(), nil
}

// MigratePageNum writes page_num and unsets start_param.
func (s *ProgressStore) MigratePageNum(ctx context.Context, id string, pageNum int) error {
	oid, err := parseObjectID(id)
	if err != nil {
		return err
	}
	res, err := s.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{
		"$set":   bson.M{"page_num": pageNum},
		"$unset": bson.M{"start_param": ""},
	})
	if err != nil {
		return translate(err, "migrate page_num "+id)
	}
	if res.MatchedCount == 0 {
		return translate(mongo.ErrNoDocuments, "migrate page_num "+id)
	}
	return nil
}

// List returns all records newest first.
func (s *ProgressStore) List(ctx context.Context) ([]store.Progress, error) {
	var docs []progressDoc
	order := bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}
	if err := findAll(ctx, s.coll, bson.M{}, order, &docs); err != nil {
		return nil, translate(err, "list progress")
	}
	out := make([]store.Progress, len(docs))
	for i, d := range docs {
		out[i] = d.toProgress()
	}
	return out, nil
}

// Count returns total and done counts.
func (s *ProgressStore) Count(ctx context.Context) (store.ProgressCounts, error) {
	total, err := s.coll.CountDocuments(ctx, bson.M{})
	if err != nil {
		return store.ProgressCounts{}, translate(err, "count progress")
	}
	done, err := s.coll.CountDocuments(ctx, bson.M{"done": true})
	if err != nil {
		return store.ProgressCounts{}, translate(err, "count done progress")
	}
	return store.ProgressCounts{Total: total, Done: done}, nil
}

// tripleFilter matches a (niche, query, sub-query) triple under either the
// canonical or the legacy id field names. A nil sub-query matches documents
// where sub_query_id is null or absent.
func tripleFilter(nicheID, queryID string, subQueryID *string) bson.M {
	var sub any
	if subQueryID != nil {
		sub = *subQueryID
	}
	return bson.M{
		"$and": bson.A{
			bson.M{"$or": bson.A{bson.M{"niche_id": nicheID}, bson.M{"i_id": nicheID}}},
			bson.M{"$or": bson.A{bson.M{"query_id": queryID}, bson.M{"q_id": queryID}}},
			bson.M{"sub_query_id": sub},
		},
	}
}

func updateDocument(update store.ProgressUpdate) bson.M {
	set := bson.M{
		"done":       update.Done,
		"page_num":   update.PageNum,
		"updated_at": update.UpdatedAt,
	}
	if update.SearchEngineID != nil {
		set["search_engine_id"] = *update.SearchEngineID
	}
	return bson.M{
		"$set":   set,
		"$unset": bson.M{"start_param": ""},
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
