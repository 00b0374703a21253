package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/JakeFAU/leadgen-scraper/internal/id/uuid"
	"github.com/JakeFAU/leadgen-scraper/internal/store"
)

const (
	nicheColumns    = `id, niche_name, description, category_id, created_at, updated_at`
	queryColumns    = `id, query, description, created_at, updated_at`
	subQueryColumns = `id, query_id, sub_query, added_by, description, created_at, updated_at`
)

// TaxonomyStore implements store.TaxonomyRepository on Postgres.
type TaxonomyStore struct {
	db  Pool
	ids store.IDGenerator
}

// NewTaxonomyStore wraps db. A nil generator falls back to UUIDv7.
func NewTaxonomyStore(db Pool, ids store.IDGenerator) (*TaxonomyStore, error) {
	if db == nil {
		return nil, fmt.Errorf("pool is required")
	}
	if ids == nil {
		ids = uuid.New()
	}
	return &TaxonomyStore{db: db, ids: ids}, nil
}

// GetNiche returns the niche with id.
func (s *TaxonomyStore) GetNiche(ctx context.Context, id string) (store.Niche, error) {
	row := s.db.QueryRow(ctx, `SELECT `+nicheColumns+` FROM niches WHERE id = $1`, id)
	n, err := scanNiche(row)
	if err != nil {
		return store.Niche{}, translate(err, "get niche "+id)
	}
	return n, nil
}

// GetQuery returns the query with id.
func (s *TaxonomyStore) GetQuery(ctx context.Context, id string) (store.Query, error) {
	row := s.db.QueryRow(ctx, `SELECT `+queryColumns+` FROM queries WHERE id = $1`, id)
	q, err := scanQuery(row)
	if err != nil {
		return store.Query{}, translate(err, "get query "+id)
	}
	return q, nil
}

// GetSubQuery returns the sub-query with id.
func (s *TaxonomyStore) GetSubQuery(ctx context.Context, id string) (store.SubQuery, error) {
	row := s.db.QueryRow(ctx, `SELECT `+subQueryColumns+` FROM sub_queries WHERE id = $1`, id)
	sq, err := scanSubQuery(row)
	if err != nil {
		return store.SubQuery{}, translate(err, "get sub-query "+id)
	}
	return sq, nil
}

// ListNiches returns niches oldest first.
func (s *TaxonomyStore) ListNiches(ctx context.Context) ([]store.Niche, error) {
	rows, err := s.db.Query(ctx, `SELECT `+nicheColumns+` FROM niches ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, translate(err, "list niches")
	}
	return collect(rows, scanNiche, "list niches")
}

// ListQueries returns queries oldest first.
func (s *TaxonomyStore) ListQueries(ctx context.Context) ([]store.Query, error) {
	rows, err := s.db.Query(ctx, `SELECT `+queryColumns+` FROM queries ORDER BY created_at ASC, id ASC`)
	if err != nil {
		return nil, translate(err, "list queries")
	}
	return collect(rows, scanQuery, "list queries")
}

// ListSubQueries returns the sub-queries of queryID in insertion order.
func (s *TaxonomyStore) ListSubQueries(ctx context.Context, queryID string) ([]store.SubQuery, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+subQueryColumns+` FROM sub_queries WHERE query_id = $1 ORDER BY created_at ASC, id ASC`,
		queryID,
	)
	if err != nil {
		return nil, translate(err, "list sub-queries")
	}
	return collect(rows, scanSubQuery, "list sub-queries")
}

// CountNiches returns the number of niches.
func (s *TaxonomyStore) CountNiches(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM niches`).Scan(&n); err != nil {
		return 0, translate(err, "count niches")
	}
	return n, nil
}

// CountQueries returns the number of queries.
func (s *TaxonomyStore) CountQueries(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM queries`).Scan(&n); err != nil {
		return 0, translate(err, "count queries")
	}
	return n, nil
}

// CreateNiche inserts niche, assigning an ID when empty.
func (s *TaxonomyStore) CreateNiche(ctx context.Context, niche store.Niche) (store.Niche, error) {
	id, err := s.assignID(niche.ID)
	if err != nil {
		return store.Niche{}, err
	}
	niche.ID = id
	_, err = s.db.Exec(ctx,
		`INSERT INTO niches (`+nicheColumns+`) VALUES ($1, $2, $3, $4, $5, $6)`,
		niche.ID, niche.Name, niche.Description, niche.CategoryID, niche.CreatedAt, niche.UpdatedAt,
	)
	if err != nil {
		return store.Niche{}, translate(err, "insert niche")
	}
	return niche, nil
}

// CreateQuery inserts query, assigning an ID when empty.
func (s *TaxonomyStore) CreateQuery(ctx context.Context, query store.Query) (store.Query, error) {
	id, err := s.assignID(query.ID)
	if err != nil {
		return store.Query{}, err
	}
	query.ID = id
	_, err = s.db.Exec(ctx,
		`INSERT INTO queries (`+queryColumns+`) VALUES ($1, $2, $3, $4, $5)`,
		query.ID, query.Text, query.Description, query.CreatedAt, query.UpdatedAt,
	)
	if err != nil {
		return store.Query{}, translate(err, "insert query")
	}
	return query, nil
}

// CreateSubQuery inserts sub. An unknown parent query yields ErrNotFound.
func (s *TaxonomyStore) CreateSubQuery(ctx context.Context, sub store.SubQuery) (store.SubQuery, error) {
	id, err := s.assignID(sub.ID)
	if err != nil {
		return store.SubQuery{}, err
	}
	sub.ID = id
	_, err = s.db.Exec(ctx,
		`INSERT INTO sub_queries (`+subQueryColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		sub.ID, sub.QueryID, sub.Text, sub.AddedBy, sub.Description, sub.CreatedAt, sub.UpdatedAt,
	)
	if err != nil {
		return store.SubQuery{}, translate(err, "insert sub-query")
	}
	return sub, nil
}

func (s *TaxonomyStore) assignID(id string) (string, error) {
	if id != "" {
		return id, nil
	}
	id, err := s.ids.NewID()
	if err != nil {
		return "", fmt.Errorf("assign id: %w", err)
	}
	return id, nil
}

func scanNiche(row pgx.Row) (store.Niche, error) {
	var n store.Niche
	err := row.Scan(&n.ID, &n.Name, &n.Description, &n.CategoryID, &n.CreatedAt, &n.UpdatedAt)
	return n, err
}

func scanQuery(row pgx.Row) (store.Query, error) {
	var q store.Query
	err := row.Scan(&q.ID, &q.Text, &q.Description, &q.CreatedAt, &q.UpdatedAt)
	return q, err
}

func scanSubQuery(row pgx.Row) (store.SubQuery, error) {
	var sq store.SubQuery
	err := row.Scan(&sq.ID, &sq.QueryID, &sq.Text, &sq.AddedBy, &sq.Description, &sq.CreatedAt, &sq.UpdatedAt)
	return sq, err
}

// collect drains rows through scan and closes them.
func collect[T any](rows pgx.Rows, scan func(pgx.Row) (T, error), what string) ([]T, error) {
	defer rows.Close()
	out := make([]T, 0)
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, translate(err, what)
		}
		out = append(out, item)
	}
	if err := rows.Err(); err != nil {
		return nil, translate(err, what)
	}
	return out, nil
}
