package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/JakeFAU/leadgen-scraper/internal/id/uuid"
	"github.com/JakeFAU/leadgen-scraper/internal/store"
)

const progressColumns = `id, niche_id, query_id, sub_query_id, done, page_num, start_param,
	search_engine_id, created_at, updated_at`

// ProgressStore implements store.ProgressRepository on the scraped_progress
// table. The unique index over (niche_id, query_id, COALESCE(sub_query_id, ''))
// turns duplicate creates into store.ErrConflict.
type ProgressStore struct {
	db  Pool
	ids store.IDGenerator
}

// NewProgressStore wraps db. A nil generator falls back to UUIDv7.
func NewProgressStore(db Pool, ids store.IDGenerator) (*ProgressStore, error) {
	if db == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if ids == nil {
		ids = uuid.New()
	}
	return &ProgressStore{db: db, ids: ids}, nil
}

// ValidateID accepts canonical UUIDs.
func (s *ProgressStore) ValidateID(id string) error {
	return uuid.Validate(id)
}

// FindPending returns the oldest record with done=false.
func (s *ProgressStore) FindPending(ctx context.Context) (store.Progress, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+progressColumns+` FROM scraped_progress WHERE NOT done ORDER BY created_at ASC LIMIT 1`,
	)
	p, err := scanProgress(row)
	if err != nil {
		return store.Progress{}, translate(err, "find pending progress")
	}
	return p, nil
}

// Find returns the record for the triple.
func (s *ProgressStore) Find(
	ctx context.Context,
	nicheID, queryID string,
	subQueryID *string,
) (store.Progress, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+progressColumns+` FROM scraped_progress
		WHERE niche_id = $1 AND query_id = $2 AND sub_query_id IS NOT DISTINCT FROM $3`,
		nicheID, queryID, subQueryID,
	)
	p, err := scanProgress(row)
	if err != nil {
		return store.Progress{}, translate(err, "find progress")
	}
	return p, nil
}

// Get returns the record with id.
func (s *ProgressStore) Get(ctx context.Context, id string) (store.Progress, error) {
	row := s.db.QueryRow(ctx, `SELECT `+progressColumns+` FROM scraped_progress WHERE id = $1`, id)
	p, err := scanProgress(row)
	if err != nil {
		return store.Progress{}, translate(err, "get progress "+id)
	}
	return p, nil
}

// Create inserts p with a fresh ID and page_num set.
func (s *ProgressStore) Create(ctx context.Context, p store.Progress) (store.Progress, error) {
	id, err := s.ids.NewID()
	if err != nil {
		return store.Progress{}, fmt.Errorf("assign progress id: %w", err)
	}
	p.ID = id
	p.LegacyPageNum = false
	_, err = s.db.Exec(ctx,
		`INSERT INTO scraped_progress
		(id, niche_id, query_id, sub_query_id, done, page_num, search_engine_id, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		p.ID, p.NicheID, p.QueryID, p.SubQueryID, p.Done, p.PageNum, p.SearchEngineID, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return store.Progress{}, translate(err, "insert progress")
	}
	return p, nil
}

// Update applies a worker report, keeps search_engine_id when none is given,
// and clears start_param.
func (s *ProgressStore) Update(ctx context.Context, id string, update store.ProgressUpdate) (store.Progress, error) {
	row := s.db.QueryRow(ctx,
		`UPDATE scraped_progress
		SET done = $2, page_num = $3, updated_at = $4,
			search_engine_id = COALESCE($5, search_engine_id), start_param = NULL
		WHERE id = $1
		RETURNING `+progressColumns,
		id, update.Done, update.PageNum, update.UpdatedAt, update.SearchEngineID,
	)
	p, err := scanProgress(row)
	if err != nil {
		return store.Progress{}, translate(err, "update progress "+id)
	}
	return p, nil
}

// MigratePageNum writes page_num and clears start_param.
func (s *ProgressStore) MigratePageNum(ctx context.Context, id string, pageNum int) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE scraped_progress SET page_num = $2, start_param = NULL WHERE id = $1`,
		id, pageNum,
	)
	if err != nil {
		return translate(err, "migrate page_num "+id)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("migrate page_num %s: %w", id, store.ErrNotFound)
	}
	return nil
}

// List returns all records newest first.
func (s *ProgressStore) List(ctx context.Context) ([]store.Progress, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+progressColumns+` FROM scraped_progress ORDER BY created_at DESC, id DESC`,
	)
	if err != nil {
		return nil, translate(err, "list progress")
	}
	return collect(rows, scanProgress, "list progress")
}

// Count returns total and done counts in one scan.
func (s *ProgressStore) Count(ctx context.Context) (store.ProgressCounts, error) {
	var counts store.ProgressCounts
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*), COUNT(*) FILTER (WHERE done) FROM scraped_progress`,
	).Scan(&counts.Total, &counts.Done)
	if err != nil {
		return store.ProgressCounts{}, translate(err, "count progress")
	}
	return counts, nil
}

func scanProgress(row pgx.Row) (store.Progress, error) {
	var (
		p          store.Progress
		pageNum    *int
		startParam *int
	)
	err := row.Scan(
		&p.ID,
		&p.NicheID,
		&p.QueryID,
		&p.SubQueryID,
		&p.Done,
		&pageNum,
		&startParam,
		&p.SearchEngineID,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return store.Progress{}, err
	}
	p.PageNum, p.LegacyPageNum = store.NormalizePageNum(pageNum, startParam)
	return p, nil
}
