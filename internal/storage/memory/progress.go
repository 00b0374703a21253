package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/JakeFAU/leadgen-scraper/internal/id/uuid"
	"github.com/JakeFAU/leadgen-scraper/internal/store"
)

// progressDoc mirrors the stored shape, including the legacy start_param.
type progressDoc struct {
	rec        store.Progress
	pageNum    *int
	startParam *int
	seq        int64
}

// ProgressStore implements store.ProgressRepository in memory.
type ProgressStore struct {
	mu     sync.RWMutex
	ids    store.IDGenerator
	docs   map[string]*progressDoc
	triple map[string]string
	next   int64
}

// NewProgressStore constructs an empty ProgressStore. A nil generator falls
// back to UUIDv7.
func NewProgressStore(ids store.IDGenerator) *ProgressStore {
	if ids == nil {
		ids = uuid.New()
	}
	return &ProgressStore{
		ids:    ids,
		docs:   make(map[string]*progressDoc),
		triple: make(map[string]string),
	}
}

// ValidateID accepts canonical UUIDs.
func (s *ProgressStore) ValidateID(id string) error {
	return uuid.Validate(id)
}

// FindPending returns the oldest record with done=false.
func (s *ProgressStore) FindPending(_ context.Context) (store.Progress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var found *progressDoc
	for _, doc := range s.docs {
		if doc.rec.Done {
			continue
		}
		if found == nil || doc.seq < found.seq {
			found = doc
		}
	}
	if found == nil {
		return store.Progress{}, fmt.Errorf("pending progress: %w", store.ErrNotFound)
	}
	return found.normalized(), nil
}

// Find returns the record for the triple.
func (s *ProgressStore) Find(
	_ context.Context,
	nicheID, queryID string,
	subQueryID *string,
) (store.Progress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.triple[tripleKey(nicheID, queryID, subQueryID)]
	if !ok {
		return store.Progress{}, fmt.Errorf("progress for %s/%s: %w", nicheID, queryID, store.ErrNotFound)
	}
	return s.docs[id].normalized(), nil
}

// Get returns the record with id.
func (s *ProgressStore) Get(_ context.Context, id string) (store.Progress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	if !ok {
		return store.Progress{}, fmt.Errorf("progress %s: %w", id, store.ErrNotFound)
	}
	return doc.normalized(), nil
}

// Create inserts p with a fresh ID.
func (s *ProgressStore) Create(_ context.Context, p store.Progress) (store.Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := tripleKey(p.NicheID, p.QueryID, p.SubQueryID)
	if _, exists := s.triple[key]; exists {
		return store.Progress{}, fmt.Errorf("progress for %s/%s: %w", p.NicheID, p.QueryID, store.ErrConflict)
	}
	id, err := s.ids.NewID()
	if err != nil {
		return store.Progress{}, fmt.Errorf("assign progress id: %w", err)
	}
	p.ID = id
	p.LegacyPageNum = false
	p.SubQueryID = cloneString(p.SubQueryID)
	p.SearchEngineID = cloneString(p.SearchEngineID)
	page := p.PageNum
	s.insert(&progressDoc{rec: p, pageNum: &page}, key)
	return p, nil
}

// SeedLegacy inserts a record in the old shape: start_param set and page_num
// absent. It lets tests and fixtures reproduce pre-migration data.
func (s *ProgressStore) SeedLegacy(p store.Progress, startParam int) (store.Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := tripleKey(p.NicheID, p.QueryID, p.SubQueryID)
	if _, exists := s.triple[key]; exists {
		return store.Progress{}, fmt.Errorf("progress for %s/%s: %w", p.NicheID, p.QueryID, store.ErrConflict)
	}
	if p.ID == "" {
		id, err := s.ids.NewID()
		if err != nil {
			return store.Progress{}, fmt.Errorf("assign progress id: %w", err)
		}
		p.ID = id
	}
	sp := startParam
	doc := &progressDoc{rec: p, startParam: &sp}
	s.insert(doc, key)
	return doc.normalized(), nil
}

// HasStartParam reports whether the stored record still carries start_param.
func (s *ProgressStore) HasStartParam(id string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	doc, ok := s.docs[id]
	return ok && doc.startParam != nil
}

// Update applies a worker report and drops start_param.
func (s *ProgressStore) Update(_ context.Context, id string, update store.ProgressUpdate) (store.Progress, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return store.Progress{}, fmt.Errorf("progress %s: %w", id, store.ErrNotFound)
	}
	page := update.PageNum
	doc.rec.Done = update.Done
	doc.pageNum = &page
	doc.startParam = nil
	doc.rec.UpdatedAt = update.UpdatedAt
	if update.SearchEngineID != nil {
		doc.rec.SearchEngineID = cloneString(update.SearchEngineID)
	}
	return doc.normalized(), nil
}

// MigratePageNum writes page_num and drops start_param.
func (s *ProgressStore) MigratePageNum(_ context.Context, id string, pageNum int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, ok := s.docs[id]
	if !ok {
		return fmt.Errorf("progress %s: %w", id, store.ErrNotFound)
	}
	page := pageNum
	doc.pageNum = &page
	doc.startParam = nil
	return nil
}

// List returns all records newest first.
func (s *ProgressStore) List(_ context.Context) ([]store.Progress, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	docs := make([]*progressDoc, 0, len(s.docs))
	for _, doc := range s.docs {
		docs = append(docs, doc)
	}
	sort.Slice(docs, func(i, j int) bool {
		ti, tj := docs[i].rec.CreatedAt, docs[j].rec.CreatedAt
		if !ti.Equal(tj) {
			return ti.After(tj)
		}
		return docs[i].seq > docs[j].seq
	})
	out := make([]store.Progress, len(docs))
	for i, doc := range docs {
		out[i] = doc.normalized()
	}
	return out, nil
}

// Count returns total and done counts.
func (s *ProgressStore) Count(_ context.Context) (store.ProgressCounts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := store.ProgressCounts{Total: int64(len(s.docs))}
	for _, doc := range s.docs {
		if doc.rec.Done {
			counts.Done++
		}
	}
	return counts, nil
}

// insert must be called with mu held.
func (s *ProgressStore) insert(doc *progressDoc, key string) {
	s.next++
	doc.seq = s.next
	s.docs[doc.rec.ID] = doc
	s.triple[key] = doc.rec.ID
}

// normalized returns a copy with page_num resolved from the legacy field.
func (d *progressDoc) normalized() store.Progress {
	rec := d.rec
	rec.SubQueryID = cloneString(rec.SubQueryID)
	rec.SearchEngineID = cloneString(rec.SearchEngineID)
	rec.PageNum, rec.LegacyPageNum = store.NormalizePageNum(d.pageNum, d.startParam)
	return rec
}

func tripleKey(nicheID, queryID string, subQueryID *string) string {
	if subQueryID == nil {
		return nicheID + "\x00" + queryID + "\x00"
	}
	return nicheID + "\x00" + queryID + "\x00\x01" + *subQueryID
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
