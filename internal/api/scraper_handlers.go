package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/leadgen-scraper/internal/metrics"
	"github.com/JakeFAU/leadgen-scraper/internal/scraper"
)

// runTask hands the caller the current pending task.
func (s *Server) runTask(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	task, err := s.engine.GetNextTask(r.Context())
	if err != nil {
		status, msg, outcome := taskErrorStatus(err)
		metrics.ObserveTaskRequest(outcome, time.Since(start))
		if status >= http.StatusInternalServerError || errors.Is(err, scraper.ErrTaskNotFound) {
			s.logger.Error("task assignment failed",
				zap.String("request_id", requestID(r.Context())),
				zap.Error(err),
			)
		}
		writeError(w, status, msg)
		return
	}
	metrics.ObserveTaskRequest(metrics.OutcomeOK, time.Since(start))
	writeJSON(w, http.StatusOK, newTaskResponse(task))
}

func taskErrorStatus(err error) (status int, msg, outcome string) {
	switch {
	case errors.Is(err, scraper.ErrNoPendingTasks):
		return http.StatusNotFound, "all scraping tasks are complete", metrics.OutcomeNoPending
	case errors.Is(err, scraper.ErrNoTaxonomyData):
		return http.StatusNotFound, "no niches or queries configured", metrics.OutcomeNoTaxonomy
	case errors.Is(err, scraper.ErrTaskNotFound):
		return http.StatusNotFound, "associated niche or query not found", metrics.OutcomeNotFound
	default:
		return http.StatusInternalServerError, "failed to assign task", metrics.OutcomeError
	}
}

// advanceProgress records a worker's report for one progress record.
func (s *Server) advanceProgress(w http.ResponseWriter, r *http.Request) {
	progressID := chi.URLParam(r, "progress_id")
	var req advanceRequest
	if err := decodeJSON(r, &req); err != nil {
		metrics.ObserveProgressUpdate(metrics.OutcomeBadRequest)
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}
	adv, problem := req.toAdvance()
	if problem != "" {
		metrics.ObserveProgressUpdate(metrics.OutcomeBadRequest)
		writeError(w, http.StatusBadRequest, problem)
		return
	}

	rec, err := s.engine.AdvanceProgress(r.Context(), progressID, adv)
	switch {
	case err == nil:
	case errors.Is(err, scraper.ErrInvalidProgressID):
		metrics.ObserveProgressUpdate(metrics.OutcomeInvalidID)
		writeError(w, http.StatusBadRequest, "invalid progress id")
		return
	case errors.Is(err, scraper.ErrProgressNotFound):
		metrics.ObserveProgressUpdate(metrics.OutcomeNotFound)
		writeError(w, http.StatusNotFound, "progress record not found")
		return
	default:
		metrics.ObserveProgressUpdate(metrics.OutcomeError)
		s.logger.Error("progress update failed",
			zap.String("request_id", requestID(r.Context())),
			zap.String("progress_id", progressID),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "failed to update progress")
		return
	}
	metrics.ObserveProgressUpdate(metrics.OutcomeOK)
	writeJSON(w, http.StatusOK, newProgressResponse(rec))
}

func (s *Server) listProgress(w http.ResponseWriter, r *http.Request) {
	records, err := s.engine.ListProgress(r.Context())
	if err != nil {
		s.logger.Error("list progress failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list progress")
		return
	}
	writeJSON(w, http.StatusOK, mapSlice(records, newProgressResponse))
}

// getProgress returns one progress record so a worker can resume from its
// last reported page.
func (s *Server) getProgress(w http.ResponseWriter, r *http.Request) {
	progressID := chi.URLParam(r, "progress_id")
	rec, err := s.engine.GetProgress(r.Context(), progressID)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, newProgressResponse(rec))
	case errors.Is(err, scraper.ErrInvalidProgressID):
		writeError(w, http.StatusBadRequest, "invalid progress id")
	case errors.Is(err, scraper.ErrProgressNotFound):
		writeError(w, http.StatusNotFound, "progress record not found")
	default:
		s.logger.Error("get progress failed",
			zap.String("request_id", requestID(r.Context())),
			zap.String("progress_id", progressID),
			zap.Error(err),
		)
		writeError(w, http.StatusInternalServerError, "failed to load progress")
	}
}

func (s *Server) status(w http.ResponseWriter, r *http.Request) {
	stats, err := s.engine.Stats(r.Context())
	if err != nil {
		s.logger.Error("stats failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to compute status")
		return
	}
	writeJSON(w, http.StatusOK, statsResponse(stats))
}
