package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/JakeFAU/leadgen-scraper/internal/id/uuid"
	"github.com/JakeFAU/leadgen-scraper/internal/store"
)

// TaxonomyStore keeps niches, queries, and sub-queries in maps. Insertion
// order breaks creation-time ties so listings are deterministic.
type TaxonomyStore struct {
	mu  sync.RWMutex
	ids store.IDGenerator

	niches     map[string]store.Niche
	queries    map[string]store.Query
	subQueries map[string]store.SubQuery
	seq        map[string]int64
	next       int64
}

// NewTaxonomyStore constructs an empty TaxonomyStore. A nil generator falls
// back to UUIDv7.
func NewTaxonomyStore(ids store.IDGenerator) *TaxonomyStore {
	if ids == nil {
		ids = uuid.New()
	}
	return &TaxonomyStore{
		ids:        ids,
		niches:     make(map[string]store.Niche),
		queries:    make(map[string]store.Query),
		subQueries: make(map[string]store.SubQuery),
		seq:        make(map[string]int64),
	}
}

// GetNiche returns the niche with id.
func (s *TaxonomyStore) GetNiche(_ context.Context, id string) (store.Niche, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	niche, ok := s.niches[id]
	if !ok {
		return store.Niche{}, fmt.Errorf("niche %s: %w", id, store.ErrNotFound)
	}
	return niche, nil
}

// GetQuery returns the query with id.
func (s *TaxonomyStore) GetQuery(_ context.Context, id string) (store.Query, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	query, ok := s.queries[id]
	if !ok {
		return store.Query{}, fmt.Errorf("query %s: %w", id, store.ErrNotFound)
	}
	return query, nil
}

// GetSubQuery returns the sub-query with id.
func (s *TaxonomyStore) GetSubQuery(_ context.Context, id string) (store.SubQuery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sub, ok := s.subQueries[id]
	if !ok {
		return store.SubQuery{}, fmt.Errorf("sub-query %s: %w", id, store.ErrNotFound)
	}
	return sub, nil
}

// ListNiches returns niches oldest first.
func (s *TaxonomyStore) ListNiches(_ context.Context) ([]store.Niche, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]store.Niche, 0, len(s.niches))
	for _, n := range s.niches {
		out = append(out, n)
	}
	sort.Slice(out, func(i, j int) bool {
		return s.before(out[i].CreatedAt.UnixNano(), out[i].ID, out[j].CreatedAt.UnixNano(), out[j].ID)
	})
	return out, nil
}

// ListQueries returns queries oldest first.
func (s *TaxonomyStore) ListQueries(_ context.Context) ([]store.Query, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]store.Query, 0, len(s.queries))
	for _, q := range s.queries {
		out = append(out, q)
	}
	sort.Slice(out, func(i, j int) bool {
		return s.before(out[i].CreatedAt.UnixNano(), out[i].ID, out[j].CreatedAt.UnixNano(), out[j].ID)
	})
	return out, nil
}

// ListSubQueries returns the sub-queries of queryID in insertion order.
func (s *TaxonomyStore) ListSubQueries(_ context.Context, queryID string) ([]store.SubQuery, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]store.SubQuery, 0)
	for _, sub := range s.subQueries {
		if sub.QueryID == queryID {
			out = append(out, sub)
		}
	}
	sort.Slice(out, func(i, j int) bool { return s.seq[out[i].ID] < s.seq[out[j].ID] })
	return out, nil
}

// CountNiches returns the number of niches.
func (s *TaxonomyStore) CountNiches(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.niches)), nil
}

// CountQueries returns the number of queries.
func (s *TaxonomyStore) CountQueries(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.queries)), nil
}

// CreateNiche stores niche, assigning an ID when empty. Names are unique.
func (s *TaxonomyStore) CreateNiche(_ context.Context, niche store.Niche) (store.Niche, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.niches {
		if existing.Name == niche.Name {
			return store.Niche{}, fmt.Errorf("niche %q: %w", niche.Name, store.ErrConflict)
		}
	}
	id, err := s.assignID(niche.ID)
	if err != nil {
		return store.Niche{}, err
	}
	niche.ID = id
	s.niches[id] = niche
	return niche, nil
}

// CreateQuery stores query, assigning an ID when empty. Texts are unique.
func (s *TaxonomyStore) CreateQuery(_ context.Context, query store.Query) (store.Query, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.queries {
		if existing.Text == query.Text {
			return store.Query{}, fmt.Errorf("query %q: %w", query.Text, store.ErrConflict)
		}
	}
	id, err := s.assignID(query.ID)
	if err != nil {
		return store.Query{}, err
	}
	query.ID = id
	s.queries[id] = query
	return query, nil
}

// CreateSubQuery stores sub, which must reference an existing query.
// (query_id, text) is unique.
func (s *TaxonomyStore) CreateSubQuery(_ context.Context, sub store.SubQuery) (store.SubQuery, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.queries[sub.QueryID]; !ok {
		return store.SubQuery{}, fmt.Errorf("query %s: %w", sub.QueryID, store.ErrNotFound)
	}
	for _, existing := range s.subQueries {
		if existing.QueryID == sub.QueryID && existing.Text == sub.Text {
			return store.SubQuery{}, fmt.Errorf("sub-query %q: %w", sub.Text, store.ErrConflict)
		}
	}
	id, err := s.assignID(sub.ID)
	if err != nil {
		return store.SubQuery{}, err
	}
	sub.ID = id
	s.subQueries[id] = sub
	return sub, nil
}

// DeleteNiche removes a niche. It exists so tests can exercise dangling
// progress references.
func (s *TaxonomyStore) DeleteNiche(_ context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.niches, id)
}

// DeleteSubQuery removes a sub-query.
func (s *TaxonomyStore) DeleteSubQuery(_ context.Context, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subQueries, id)
}

// assignID must be called with mu held.
func (s *TaxonomyStore) assignID(id string) (string, error) {
	if id == "" {
		generated, err := s.ids.NewID()
		if err != nil {
			return "", fmt.Errorf("assign id: %w", err)
		}
		id = generated
	}
	if _, taken := s.seq[id]; taken {
		return "", fmt.Errorf("id %s: %w", id, store.ErrConflict)
	}
	s.next++
	s.seq[id] = s.next
	return id, nil
}

// before orders by creation time, then insertion sequence. mu must be held.
func (s *TaxonomyStore) before(ti int64, idi string, tj int64, idj string) bool {
	if ti != tj {
		return ti < tj
	}
	return s.seq[idi] < s.seq[idj]
}
