package store

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound signals that the requested record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict signals that a uniqueness constraint rejected a write.
	ErrConflict = errors.New("record already exists")
	// ErrInvalidID signals an identifier the backend cannot parse.
	ErrInvalidID = errors.New("invalid record id")
)

// Niche is a top-level scraping topic such as "fintech".
type Niche struct {
	ID          string
	Name        string
	Description string
	CategoryID  string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Query is a search template that may contain the {{niche}} placeholder.
type Query struct {
	ID          string
	Text        string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// SubQuery refines a Query; its text may contain the {{query}} placeholder.
type SubQuery struct {
	ID          string
	QueryID     string
	Text        string
	AddedBy     string
	Description string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Progress tracks one (niche, query, optional sub-query) combination.
type Progress struct {
	// ID is the backend-assigned identifier handed to workers.
	ID      string
	NicheID string
	QueryID string
	// SubQueryID is nil for the main task of a (niche, query) pair.
	SubQueryID *string
	Done       bool
	// PageNum is the 1-based pagination cursor last reported by a worker.
	PageNum int
	// SearchEngineID is an opaque worker-supplied value; nil until reported.
	SearchEngineID *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	// LegacyPageNum reports that PageNum was read from the deprecated
	// start_param field and page_num has not been written yet.
	LegacyPageNum bool
}

// IsMain reports whether the record is the main task for its (niche, query).
func (p Progress) IsMain() bool {
	return p.SubQueryID == nil
}

// ProgressUpdate carries the fields a worker reports back.
type ProgressUpdate struct {
	Done    bool
	PageNum int
	// SearchEngineID is only written when non-nil; omission never clears it.
	SearchEngineID *string
	UpdatedAt      time.Time
}

// ProgressCounts summarises the progress collection.
type ProgressCounts struct {
	Total int64
	Done  int64
}

// TaxonomyRepository reads and seeds niches, queries, and sub-queries.
type TaxonomyRepository interface {
	GetNiche(ctx context.Context, id string) (Niche, error)
	GetQuery(ctx context.Context, id string) (Query, error)
	GetSubQuery(ctx context.Context, id string) (SubQuery, error)
	// ListNiches returns every niche ordered by creation time ascending.
	ListNiches(ctx context.Context) ([]Niche, error)
	// ListQueries returns every query ordered by creation time ascending.
	ListQueries(ctx context.Context) ([]Query, error)
	// ListSubQueries returns the sub-queries of one query in store order.
	ListSubQueries(ctx context.Context, queryID string) ([]SubQuery, error)
	CountNiches(ctx context.Context) (int64, error)
	CountQueries(ctx context.Context) (int64, error)

	CreateNiche(ctx context.Context, niche Niche) (Niche, error)
	CreateQuery(ctx context.Context, query Query) (Query, error)
	CreateSubQuery(ctx context.Context, subQuery SubQuery) (SubQuery, error)
}

// ProgressRepository persists Progress records. Implementations enforce
// uniqueness of (niche_id, query_id, sub_query_id), treating a nil sub-query
// as its own value, and normalise the legacy start_param field on read.
type ProgressRepository interface {
	// ValidateID returns ErrInvalidID when id cannot address a record.
	ValidateID(id string) error
	// FindPending returns any record with done=false, or ErrNotFound.
	FindPending(ctx context.Context) (Progress, error)
	// Find returns the record for the triple, or ErrNotFound.
	Find(ctx context.Context, nicheID, queryID string, subQueryID *string) (Progress, error)
	Get(ctx context.Context, id string) (Progress, error)
	// Create inserts a record and returns it with its ID; ErrConflict when the
	// triple already exists.
	Create(ctx context.Context, p Progress) (Progress, error)
	// Update overwrites done/page_num/updated_at, sets search_engine_id when
	// provided, and removes start_param. ErrNotFound when id is unknown.
	Update(ctx context.Context, id string, update ProgressUpdate) (Progress, error)
	// MigratePageNum rewrites a legacy record to page_num and drops start_param.
	MigratePageNum(ctx context.Context, id string, pageNum int) error
	// List returns all records, newest first.
	List(ctx context.Context) ([]Progress, error)
	Count(ctx context.Context) (ProgressCounts, error)
}

// IDGenerator creates identifiers for backends that assign their own.
type IDGenerator interface {
	NewID() (string, error)
}

// NormalizePageNum maps the stored cursor fields to the canonical page number:
// page_num when present, else the legacy start_param, else 1. legacy reports
// that only start_param was present and a migration is owed.
func NormalizePageNum(pageNum, startParam *int) (page int, legacy bool) {
	switch {
	case pageNum != nil:
		return *pageNum, false
	case startParam != nil:
		return *startParam, true
	default:
		return 1, false
	}
}
