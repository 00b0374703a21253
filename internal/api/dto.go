package api

import (
	"time"

	"github.com/JakeFAU/leadgen-scraper/internal/scraper"
	"github.com/JakeFAU/leadgen-scraper/internal/store"
)

type taskResponse struct {
	NicheName         string `json:"niche_name"`
	Query             string `json:"query"`
	PageNum           int    `json:"page_num"`
	ScraperProgressID string `json:"scraper_progress_id"`
}

func newTaskResponse(t scraper.Task) taskResponse {
	return taskResponse{
		NicheName:         t.NicheName,
		Query:             t.Query,
		PageNum:           t.PageNum,
		ScraperProgressID: t.ProgressID,
	}
}

// advanceRequest is the worker's progress report. start_param is accepted
// from older workers when page_num is absent.
type advanceRequest struct {
	Done           *bool   `json:"done"`
	PageNum        *int    `json:"page_num"`
	StartParam     *int    `json:"start_param"`
	SearchEngineID *string `json:"search_engine_id"`
}

func (r advanceRequest) toAdvance() (scraper.Advance, string) {
	if r.Done == nil {
		return scraper.Advance{}, "done required"
	}
	page := r.PageNum
	if page == nil {
		page = r.StartParam
	}
	if page == nil {
		return scraper.Advance{}, "page_num required"
	}
	return scraper.Advance{
		Done:           *r.Done,
		PageNum:        *page,
		SearchEngineID: r.SearchEngineID,
	}, ""
}

type progressResponse struct {
	ID             string    `json:"id"`
	NicheID        string    `json:"niche_id"`
	QueryID        string    `json:"query_id"`
	SubQueryID     *string   `json:"sub_query_id"`
	Done           bool      `json:"done"`
	PageNum        int       `json:"page_num"`
	SearchEngineID *string   `json:"search_engine_id"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

func newProgressResponse(p store.Progress) progressResponse {
	return progressResponse{
		ID:             p.ID,
		NicheID:        p.NicheID,
		QueryID:        p.QueryID,
		SubQueryID:     p.SubQueryID,
		Done:           p.Done,
		PageNum:        p.PageNum,
		SearchEngineID: p.SearchEngineID,
		CreatedAt:      p.CreatedAt,
		UpdatedAt:      p.UpdatedAt,
	}
}

type statsResponse struct {
	Niches  int64 `json:"niches"`
	Queries int64 `json:"queries"`
	Total   int64 `json:"total"`
	Done    int64 `json:"done"`
	Pending int64 `json:"pending"`
}

type nicheRequest struct {
	Name        string `json:"niche_name"`
	Description string `json:"description"`
	CategoryID  string `json:"category_id"`
}

type nicheResponse struct {
	ID          string    `json:"id"`
	Name        string    `json:"niche_name"`
	Description string    `json:"description"`
	CategoryID  string    `json:"category_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func newNicheResponse(n store.Niche) nicheResponse {
	return nicheResponse{
		ID:          n.ID,
		Name:        n.Name,
		Description: n.Description,
		CategoryID:  n.CategoryID,
		CreatedAt:   n.CreatedAt,
		UpdatedAt:   n.UpdatedAt,
	}
}

type queryRequest struct {
	Text        string `json:"query"`
	Description string `json:"description"`
}

type queryResponse struct {
	ID          string    `json:"id"`
	Text        string    `json:"query"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func newQueryResponse(q store.Query) queryResponse {
	return queryResponse{
		ID:          q.ID,
		Text:        q.Text,
		Description: q.Description,
		CreatedAt:   q.CreatedAt,
		UpdatedAt:   q.UpdatedAt,
	}
}

type subQueryRequest struct {
	Text        string `json:"sub_query"`
	AddedBy     string `json:"added_by"`
	Description string `json:"description"`
}

type subQueryResponse struct {
	ID          string    `json:"id"`
	QueryID     string    `json:"query_id"`
	Text        string    `json:"sub_query"`
	AddedBy     string    `json:"added_by"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func newSubQueryResponse(sq store.SubQuery) subQueryResponse {
	return subQueryResponse{
		ID:          sq.ID,
		QueryID:     sq.QueryID,
		Text:        sq.Text,
		AddedBy:     sq.AddedBy,
		Description: sq.Description,
		CreatedAt:   sq.CreatedAt,
		UpdatedAt:   sq.UpdatedAt,
	}
}

func mapSlice[T, R any](in []T, fn func(T) R) []R {
	out := make([]R, len(in))
	for i, v := range in {
		out[i] = fn(v)
	}
	return out
}
