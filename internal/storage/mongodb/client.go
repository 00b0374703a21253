package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/JakeFAU/leadgen-scraper/internal/store"
)

const (
	nichesCollection     = "niches"
	queriesCollection    = "queries"
	subQueriesCollection = "sub_queries"
	progressCollection   = "scraped_progress"
)

// Config holds connection settings.
type Config struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
}

// Connect dials the deployment, pings the primary, and returns the client and
// the configured database.
func Connect(ctx context.Context, cfg Config) (*mongo.Client, *mongo.Database, error) {
	if cfg.URI == "" {
		return nil, nil, fmt.Errorf("mongo.uri is required")
	}
	if cfg.Database == "" {
		return nil, nil, fmt.Errorf("mongo.database is required")
	}
	opts := options.Client().ApplyURI(cfg.URI)
	if cfg.ConnectTimeout > 0 {
		opts.SetConnectTimeout(cfg.ConnectTimeout)
	}
	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, client.Database(cfg.Database), nil
}

// EnsureIndexes creates the uniqueness and lookup indexes. The progress
// uniqueness index skips legacy documents that predate niche_id.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	plan := map[string][]mongo.IndexModel{
		nichesCollection: {
			{Keys: bson.D{{Key: "niche_name", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "created_at", Value: 1}}},
		},
		queriesCollection: {
			{Keys: bson.D{{Key: "query", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "created_at", Value: 1}}},
		},
		subQueriesCollection: {
			{
				Keys:    bson.D{{Key: "query_id", Value: 1}, {Key: "sub_query", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		progressCollection: {
			{
				Keys: bson.D{
					{Key: "niche_id", Value: 1},
					{Key: "query_id", Value: 1},
					{Key: "sub_query_id", Value: 1},
				},
				Options: options.Index().
					SetUnique(true).
					SetPartialFilterExpression(bson.M{"niche_id": bson.M{"$exists": true}}),
			},
			{Keys: bson.D{{Key: "done", Value: 1}, {Key: "created_at", Value: 1}}},
			{Keys: bson.D{{Key: "created_at", Value: -1}}},
		},
	}
	for _, name := range []string{nichesCollection, queriesCollection, subQueriesCollection, progressCollection} {
		if _, err := db.Collection(name).Indexes().CreateMany(ctx, plan[name]); err != nil {
			return fmt.Errorf("create %s indexes: %w", name, err)
		}
	}
	return nil
}

// translate maps driver errors onto the store sentinels.
func translate(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return fmt.Errorf("%s: %w", what, store.ErrNotFound)
	}
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%s: %w", what, store.ErrConflict)
	}
	return fmt.Errorf("%s: %w", what, err)
}
