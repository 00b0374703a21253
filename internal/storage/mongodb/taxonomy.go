package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/bsontype"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/JakeFAU/leadgen-scraper/internal/store"
)

type nicheDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Name        string             `bson:"niche_name"`
	Description string             `bson:"description"`
	CategoryID  string             `bson:"category_id,omitempty"`
	CreatedAt   time.Time          `bson:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at"`
}

func (d nicheDoc) toNiche() store.Niche {
	return store.Niche{
		ID:          d.ID.Hex(),
		Name:        d.Name,
		Description: d.Description,
		CategoryID:  d.CategoryID,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

type queryDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	Text        string             `bson:"query"`
	Description string             `bson:"description"`
	CreatedAt   time.Time          `bson:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at"`
}

func (d queryDoc) toQuery() store.Query {
	return store.Query{
		ID:          d.ID.Hex(),
		Text:        d.Text,
		Description: d.Description,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

// refID is a reference to another document. It is written as an ObjectID
// and read back from either an ObjectID or its hex string.
type refID string

// MarshalBSONValue implements bson.ValueMarshaler.
func (r refID) MarshalBSONValue() (bsontype.Type, []byte, error) {
	if oid, err := primitive.ObjectIDFromHex(string(r)); err == nil {
		return bson.MarshalValue(oid)
	}
	return bson.MarshalValue(string(r))
}

// UnmarshalBSONValue implements bson.ValueUnmarshaler.
func (r *refID) UnmarshalBSONValue(t bsontype.Type, data []byte) error {
	raw := bson.RawValue{Type: t, Value: data}
	switch t {
	case bsontype.ObjectID:
		*r = refID(raw.ObjectID().Hex())
	case bsontype.String:
		*r = refID(raw.StringValue())
	case bsontype.Null, bsontype.Undefined:
		*r = ""
	default:
		return fmt.Errorf("reference id: unsupported bson type %s", t)
	}
	return nil
}

// refFilter matches a reference stored as an ObjectID or as its hex string.
func refFilter(id string) (bson.M, error) {
	oid, err := parseObjectID(id)
	if err != nil {
		return nil, err
	}
	return bson.M{"$in": bson.A{oid, id}}, nil
}

type subQueryDoc struct {
	ID          primitive.ObjectID `bson:"_id,omitempty"`
	QueryID     refID              `bson:"query_id"`
	Text        string             `bson:"sub_query"`
	AddedBy     string             `bson:"added_by"`
	Description string             `bson:"description"`
	CreatedAt   time.Time          `bson:"created_at"`
	UpdatedAt   time.Time          `bson:"updated_at"`
}

func (d subQueryDoc) toSubQuery() store.SubQuery {
	return store.SubQuery{
		ID:          d.ID.Hex(),
		QueryID:     string(d.QueryID),
		Text:        d.Text,
		AddedBy:     d.AddedBy,
		Description: d.Description,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
}

// TaxonomyStore implements store.TaxonomyRepository over the niches, queries,
// and sub_queries collections.
type TaxonomyStore struct {
	niches     *mongo.Collection
	queries    *mongo.Collection
	subQueries *mongo.Collection
}

// NewTaxonomyStore binds the collections of db.
func NewTaxonomyStore(db *mongo.Database) *TaxonomyStore {
	return &TaxonomyStore{
		niches:     db.Collection(nichesCollection),
		queries:    db.Collection(queriesCollection),
		subQueries: db.Collection(subQueriesCollection),
	}
}

var creationOrder = bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}}

// GetNiche returns the niche with id.
func (s *TaxonomyStore) GetNiche(ctx context.Context, id string) (store.Niche, error) {
	var doc nicheDoc
	if err := findByHex(ctx, s.niches, id, &doc); err != nil {
		return store.Niche{}, translate(err, "get niche "+id)
	}
	return doc.toNiche(), nil
}

// GetQuery returns the query with id.
func (s *TaxonomyStore) GetQuery(ctx context.Context, id string) (store.Query, error) {
	var doc queryDoc
	if err := findByHex(ctx, s.queries, id, &doc); err != nil {
		return store.Query{}, translate(err, "get query "+id)
	}
	return doc.toQuery(), nil
}

// GetSubQuery returns the sub-query with id.
func (s *TaxonomyStore) GetSubQuery(ctx context.Context, id string) (store.SubQuery, error) {
	var doc subQueryDoc
	if err := findByHex(ctx, s.subQueries, id, &doc); err != nil {
		return store.SubQuery{}, translate(err, "get sub-query "+id)
	}
	return doc.toSubQuery(), nil
}

// ListNiches returns niches oldest first.
func (s *TaxonomyStore) ListNiches(ctx context.Context) ([]store.Niche, error) {
	var docs []nicheDoc
	if err := findAll(ctx, s.niches, bson.M{}, creationOrder, &docs); err != nil {
		return nil, translate(err, "list niches")
	}
	out := make([]store.Niche, len(docs))
	for i, d := range docs {
		out[i] = d.toNiche()
	}
	return out, nil
}

// ListQueries returns queries oldest first.
func (s *TaxonomyStore) ListQueries(ctx context.Context) ([]store.Query, error) {
	var docs []queryDoc
	if err := findAll(ctx, s.queries, bson.M{}, creationOrder, &docs); err != nil {
		return nil, translate(err, "list queries")
	}
	out := make([]store.Query, len(docs))
	for i, d := range docs {
		out[i] = d.toQuery()
	}
	return out, nil
}

// ListSubQueries returns the sub-queries of queryID in insertion order.
func (s *TaxonomyStore) ListSubQueries(ctx context.Context, queryID string) ([]store.SubQuery, error) {
	match, err := refFilter(queryID)
	if err != nil {
		return nil, translate(err, "list sub-queries")
	}
	var docs []subQueryDoc
	order := bson.D{{Key: "_id", Value: 1}}
	if err := findAll(ctx, s.subQueries, bson.M{"query_id": match}, order, &docs); err != nil {
		return nil, translate(err, "list sub-queries")
	}
	out := make([]store.SubQuery, len(docs))
	for i, d := range docs {
		out[i] = d.toSubQuery()
	}
	return out, nil
}

// CountNiches returns the number of niches.
func (s *TaxonomyStore) CountNiches(ctx context.Context) (int64, error) {
	n, err := s.niches.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, translate(err, "count niches")
	}
	return n, nil
}

// CountQueries returns the number of queries.
func (s *TaxonomyStore) CountQueries(ctx context.Context) (int64, error) {
	n, err := s.queries.CountDocuments(ctx, bson.M{})
	if err != nil {
		return 0, translate(err, "count queries")
	}
	return n, nil
}

// CreateNiche inserts niche with a fresh ObjectID.
func (s *TaxonomyStore) CreateNiche(ctx context.Context, niche store.Niche) (store.Niche, error) {
	doc := nicheDoc{
		ID:          primitive.NewObjectID(),
		Name:        niche.Name,
		Description: niche.Description,
		CategoryID:  niche.CategoryID,
		CreatedAt:   niche.CreatedAt,
		UpdatedAt:   niche.UpdatedAt,
	}
	if _, err := s.niches.InsertOne(ctx, doc); err != nil {
		return store.Niche{}, translate(err, "insert niche")
	}
	return doc.toNiche(), nil
}

// CreateQuery inserts query with a fresh ObjectID.
func (s *TaxonomyStore) CreateQuery(ctx context.Context, query store.Query) (store.Query, error) {
	doc := queryDoc{
		ID:          primitive.NewObjectID(),
		Text:        query.Text,
		Description: query.Description,
		CreatedAt:   query.CreatedAt,
		UpdatedAt:   query.UpdatedAt,
	}
	if _, err := s.queries.InsertOne(ctx, doc); err != nil {
		return store.Query{}, translate(err, "insert query")
	}
	return doc.toQuery(), nil
}

// CreateSubQuery inserts sub after checking the parent query exists.
func (s *TaxonomyStore) CreateSubQuery(ctx context.Context, sub store.SubQuery) (store.SubQuery, error) {
	if _, err := s.GetQuery(ctx, sub.QueryID); err != nil {
		return store.SubQuery{}, err
	}
	doc := subQueryDoc{
		ID:          primitive.NewObjectID(),
		QueryID:     refID(sub.QueryID),
		Text:        sub.Text,
		AddedBy:     sub.AddedBy,
		Description: sub.Description,
		CreatedAt:   sub.CreatedAt,
		UpdatedAt:   sub.UpdatedAt,
	}
	if _, err := s.subQueries.InsertOne(ctx, doc); err != nil {
		return store.SubQuery{}, translate(err, "insert sub-query")
	}
	return doc.toSubQuery(), nil
}

// findByHex decodes the document whose _id is the ObjectID encoded in id.
func findByHex(ctx context.Context, coll *mongo.Collection, id string, out any) error {
	oid, err := parseObjectID(id)
	if err != nil {
		return err
	}
	return coll.FindOne(ctx, bson.M{"_id": oid}).Decode(out)
}

func findAll(ctx context.Context, coll *mongo.Collection, filter any, sort bson.D, out any) error {
	cursor, err := coll.Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return err
	}
	defer cursor.Close(ctx)
	return cursor.All(ctx, out)
}

func parseObjectID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("parse %q: %w", id, store.ErrInvalidID)
	}
	return oid, nil
}
