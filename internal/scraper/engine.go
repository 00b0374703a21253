package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/leadgen-scraper/internal/events"
	"github.com/JakeFAU/leadgen-scraper/internal/store"
)

// noteLegacyMigrated tags the assignment that rewrote start_param to page_num.
const noteLegacyMigrated = "page_num migrated from start_param"

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// Task is the unit of work handed to a crawler worker.
type Task struct {
	NicheName string
	// Query is the fully resolved search text.
	Query      string
	PageNum    int
	ProgressID string
}

// Advance is a worker's progress report for one task.
type Advance struct {
	Done    bool
	PageNum int
	// SearchEngineID is only written when non-nil.
	SearchEngineID *string
}

// Stats summarises the taxonomy and progress collections.
type Stats struct {
	Niches  int64
	Queries int64
	Total   int64
	Done    int64
	Pending int64
}

// Engine assigns scraping tasks and records their progress. It holds no state
// between calls; concurrent callers that poll before the pending task is
// advanced receive the same task.
type Engine struct {
	taxonomy store.TaxonomyRepository
	progress store.ProgressRepository
	clock    Clock
	emitter  events.Emitter
	logger   *zap.Logger
}

// NewEngine wires the repositories. emitter may be nil.
func NewEngine(
	taxonomy store.TaxonomyRepository,
	progress store.ProgressRepository,
	clock Clock,
	emitter events.Emitter,
	logger *zap.Logger,
) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		taxonomy: taxonomy,
		progress: progress,
		clock:    clock,
		emitter:  emitter,
		logger:   logger,
	}
}

// GetNextTask returns the pending task, or materialises the next one in
// enumeration order when nothing is pending.
func (e *Engine) GetNextTask(ctx context.Context) (Task, error) {
	rec, err := e.progress.FindPending(ctx)
	switch {
	case err == nil:
	case errors.Is(err, store.ErrNotFound):
		rec, err = e.nextInEnumeration(ctx)
		if err != nil {
			return Task{}, err
		}
	default:
		return Task{}, fmt.Errorf("find pending progress: %w", err)
	}

	task, migrated, err := e.buildTask(ctx, rec)
	if err != nil {
		return Task{}, err
	}
	note := ""
	if migrated {
		note = noteLegacyMigrated
	}
	e.emit(events.KindTaskAssigned, rec, note)
	e.logger.Debug("task assigned",
		zap.String("progress_id", task.ProgressID),
		zap.String("niche", task.NicheName),
		zap.String("query", task.Query),
		zap.Int("page_num", task.PageNum),
	)
	return task, nil
}

// nextInEnumeration walks niches x queries x sub-queries and returns the first
// record that is not done, creating it when absent.
func (e *Engine) nextInEnumeration(ctx context.Context) (store.Progress, error) {
	niches, err := e.taxonomy.ListNiches(ctx)
	if err != nil {
		return store.Progress{}, fmt.Errorf("list niches: %w", err)
	}
	queries, err := e.taxonomy.ListQueries(ctx)
	if err != nil {
		return store.Progress{}, fmt.Errorf("list queries: %w", err)
	}
	if len(niches) == 0 || len(queries) == 0 {
		e.logger.Debug("nothing to enumerate", zap.Int("niches", len(niches)), zap.Int("queries", len(queries)))
		return store.Progress{}, ErrNoTaxonomyData
	}

	for _, niche := range niches {
		for _, query := range queries {
			main, err := e.ensureProgress(ctx, niche.ID, query.ID, nil)
			if err != nil {
				return store.Progress{}, err
			}
			if !main.Done {
				return main, nil
			}
			subQueries, err := e.taxonomy.ListSubQueries(ctx, query.ID)
			if err != nil {
				return store.Progress{}, fmt.Errorf("list sub-queries of %s: %w", query.ID, err)
			}
			for _, sub := range subQueries {
				subID := sub.ID
				rec, err := e.ensureProgress(ctx, niche.ID, query.ID, &subID)
				if err != nil {
					return store.Progress{}, err
				}
				if !rec.Done {
					return rec, nil
				}
			}
		}
	}

	e.emit(events.KindEnumerationDone, store.Progress{}, "")
	e.logger.Debug("enumeration exhausted", zap.Int("niches", len(niches)), zap.Int("queries", len(queries)))
	return store.Progress{}, ErrNoPendingTasks
}

// ensureProgress returns the record for the triple, creating a fresh pending
// one when none exists. A concurrent creator winning the uniqueness race is
// resolved by re-reading its record.
func (e *Engine) ensureProgress(
	ctx context.Context,
	nicheID, queryID string,
	subQueryID *string,
) (store.Progress, error) {
	rec, err := e.progress.Find(ctx, nicheID, queryID, subQueryID)
	if err == nil {
		return rec, nil
	}
	if !errors.Is(err, store.ErrNotFound) {
		return store.Progress{}, fmt.Errorf("find progress: %w", err)
	}

	now := e.clock.Now()
	rec, err = e.progress.Create(ctx, store.Progress{
		NicheID:    nicheID,
		QueryID:    queryID,
		SubQueryID: subQueryID,
		Done:       false,
		PageNum:    1,
		CreatedAt:  now,
		UpdatedAt:  now,
	})
	if errors.Is(err, store.ErrConflict) {
		rec, err = e.progress.Find(ctx, nicheID, queryID, subQueryID)
		if err != nil {
			return store.Progress{}, fmt.Errorf("re-read progress after conflict: %w", err)
		}
		return rec, nil
	}
	if err != nil {
		return store.Progress{}, fmt.Errorf("create progress: %w", err)
	}
	e.emit(events.KindTaskCreated, rec, "")
	e.logger.Info("task created",
		zap.String("progress_id", rec.ID),
		zap.String("niche_id", nicheID),
		zap.String("query_id", queryID),
		zap.Bool("sub_query", subQueryID != nil),
	)
	return rec, nil
}

// buildTask resolves names and query text for rec and settles a pending
// legacy page_num migration. migrated reports that the migration was written.
func (e *Engine) buildTask(ctx context.Context, rec store.Progress) (task Task, migrated bool, err error) {
	niche, err := e.taxonomy.GetNiche(ctx, rec.NicheID)
	if err != nil {
		return Task{}, false, e.integrityError(rec, "niche", rec.NicheID, err)
	}
	query, err := e.taxonomy.GetQuery(ctx, rec.QueryID)
	if err != nil {
		return Task{}, false, e.integrityError(rec, "query", rec.QueryID, err)
	}

	text := ResolveQuery(query.Text, niche.Name)
	if rec.SubQueryID != nil {
		sub, err := e.taxonomy.GetSubQuery(ctx, *rec.SubQueryID)
		switch {
		case err == nil:
			text = ResolveSubQuery(sub.Text, text)
		case errors.Is(err, store.ErrNotFound), errors.Is(err, store.ErrInvalidID):
			e.logger.Warn("sub-query missing; using parent query",
				zap.String("progress_id", rec.ID),
				zap.String("sub_query_id", *rec.SubQueryID),
			)
		default:
			return Task{}, false, fmt.Errorf("get sub-query %s: %w", *rec.SubQueryID, err)
		}
	}

	if rec.LegacyPageNum {
		if err := e.progress.MigratePageNum(ctx, rec.ID, rec.PageNum); err != nil {
			e.logger.Warn("legacy page_num migration failed",
				zap.String("progress_id", rec.ID),
				zap.Error(err),
			)
		} else {
			migrated = true
		}
	}

	return Task{
		NicheName:  niche.Name,
		Query:      text,
		PageNum:    rec.PageNum,
		ProgressID: rec.ID,
	}, migrated, nil
}

func (e *Engine) integrityError(rec store.Progress, kind, id string, err error) error {
	if errors.Is(err, store.ErrNotFound) || errors.Is(err, store.ErrInvalidID) {
		e.logger.Error("progress references missing taxonomy record",
			zap.String("progress_id", rec.ID),
			zap.String(kind+"_id", id),
		)
		return fmt.Errorf("%w: %s %s for progress %s", ErrTaskNotFound, kind, id, rec.ID)
	}
	return fmt.Errorf("get %s %s: %w", kind, id, err)
}

// AdvanceProgress records a worker's report. Setting done=true is what lets
// the next GetNextTask move on.
func (e *Engine) AdvanceProgress(ctx context.Context, progressID string, adv Advance) (store.Progress, error) {
	if err := e.progress.ValidateID(progressID); err != nil {
		return store.Progress{}, fmt.Errorf("%w: %q", ErrInvalidProgressID, progressID)
	}
	rec, err := e.progress.Update(ctx, progressID, store.ProgressUpdate{
		Done:           adv.Done,
		PageNum:        adv.PageNum,
		SearchEngineID: adv.SearchEngineID,
		UpdatedAt:      e.clock.Now(),
	})
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.Progress{}, fmt.Errorf("%w: %s", ErrProgressNotFound, progressID)
		}
		if errors.Is(err, store.ErrInvalidID) {
			return store.Progress{}, fmt.Errorf("%w: %q", ErrInvalidProgressID, progressID)
		}
		return store.Progress{}, fmt.Errorf("update progress %s: %w", progressID, err)
	}

	kind := events.KindTaskAdvanced
	if rec.Done {
		kind = events.KindTaskCompleted
	}
	e.emit(kind, rec, "")
	e.logger.Info("progress advanced",
		zap.String("progress_id", rec.ID),
		zap.Bool("done", rec.Done),
		zap.Int("page_num", rec.PageNum),
	)
	return rec, nil
}

// ListProgress returns every progress record, newest first.
func (e *Engine) ListProgress(ctx context.Context) ([]store.Progress, error) {
	records, err := e.progress.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list progress: %w", err)
	}
	return records, nil
}

// GetProgress returns one progress record.
func (e *Engine) GetProgress(ctx context.Context, progressID string) (store.Progress, error) {
	if err := e.progress.ValidateID(progressID); err != nil {
		return store.Progress{}, fmt.Errorf("%w: %q", ErrInvalidProgressID, progressID)
	}
	rec, err := e.progress.Get(ctx, progressID)
	switch {
	case err == nil:
		return rec, nil
	case errors.Is(err, store.ErrNotFound):
		return store.Progress{}, fmt.Errorf("%w: %s", ErrProgressNotFound, progressID)
	case errors.Is(err, store.ErrInvalidID):
		return store.Progress{}, fmt.Errorf("%w: %q", ErrInvalidProgressID, progressID)
	default:
		return store.Progress{}, fmt.Errorf("get progress %s: %w", progressID, err)
	}
}

// Stats counts taxonomy entries and progress records.
func (e *Engine) Stats(ctx context.Context) (Stats, error) {
	niches, err := e.taxonomy.CountNiches(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("count niches: %w", err)
	}
	queries, err := e.taxonomy.CountQueries(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("count queries: %w", err)
	}
	counts, err := e.progress.Count(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("count progress: %w", err)
	}
	return Stats{
		Niches:  niches,
		Queries: queries,
		Total:   counts.Total,
		Done:    counts.Done,
		Pending: counts.Total - counts.Done,
	}, nil
}

func (e *Engine) emit(kind events.Kind, rec store.Progress, note string) {
	if e.emitter == nil {
		return
	}
	evt := events.Event{
		Kind:       kind,
		TS:         e.clock.Now(),
		ProgressID: rec.ID,
		NicheID:    rec.NicheID,
		QueryID:    rec.QueryID,
		PageNum:    rec.PageNum,
		Done:       rec.Done,
		Note:       note,
	}
	if !rec.IsMain() {
		evt.SubQueryID = *rec.SubQueryID
	}
	e.emitter.Emit(evt)
}
