package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/leadgen-scraper/internal/store"
)

func (s *Server) listNiches(w http.ResponseWriter, r *http.Request) {
	niches, err := s.taxonomy.ListNiches(r.Context())
	if err != nil {
		s.storeFailure(w, r, "list niches", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"niches": mapSlice(niches, newNicheResponse)})
}

func (s *Server) createNiche(w http.ResponseWriter, r *http.Request) {
	var req nicheRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		writeError(w, http.StatusBadRequest, "niche_name required")
		return
	}
	now := s.clock.Now()
	niche, err := s.taxonomy.CreateNiche(r.Context(), store.Niche{
		Name:        name,
		Description: req.Description,
		CategoryID:  req.CategoryID,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		s.storeFailure(w, r, "create niche", err)
		return
	}
	writeJSON(w, http.StatusCreated, newNicheResponse(niche))
}

func (s *Server) listQueries(w http.ResponseWriter, r *http.Request) {
	queries, err := s.taxonomy.ListQueries(r.Context())
	if err != nil {
		s.storeFailure(w, r, "list queries", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"queries": mapSlice(queries, newQueryResponse)})
}

func (s *Server) createQuery(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		writeError(w, http.StatusBadRequest, "query required")
		return
	}
	now := s.clock.Now()
	query, err := s.taxonomy.CreateQuery(r.Context(), store.Query{
		Text:        text,
		Description: req.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		s.storeFailure(w, r, "create query", err)
		return
	}
	writeJSON(w, http.StatusCreated, newQueryResponse(query))
}

func (s *Server) listSubQueries(w http.ResponseWriter, r *http.Request) {
	queryID := chi.URLParam(r, "query_id")
	if _, err := s.taxonomy.GetQuery(r.Context(), queryID); err != nil {
		s.storeFailure(w, r, "get query", err)
		return
	}
	subs, err := s.taxonomy.ListSubQueries(r.Context(), queryID)
	if err != nil {
		s.storeFailure(w, r, "list sub-queries", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sub_queries": mapSlice(subs, newSubQueryResponse)})
}

func (s *Server) createSubQuery(w http.ResponseWriter, r *http.Request) {
	queryID := chi.URLParam(r, "query_id")
	var req subQueryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		writeError(w, http.StatusBadRequest, "sub_query required")
		return
	}
	now := s.clock.Now()
	sub, err := s.taxonomy.CreateSubQuery(r.Context(), store.SubQuery{
		QueryID:     queryID,
		Text:        text,
		AddedBy:     req.AddedBy,
		Description: req.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		s.storeFailure(w, r, "create sub-query", err)
		return
	}
	writeJSON(w, http.StatusCreated, newSubQueryResponse(sub))
}

// storeFailure maps repository errors onto HTTP statuses.
func (s *Server) storeFailure(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, store.ErrInvalidID):
		writeError(w, http.StatusBadRequest, "invalid id")
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, "already exists")
	default:
		s.logger.Error(op+" failed",
			zap.String("request_id", requestID(r.Context())),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, op+" failed")
	}
}
