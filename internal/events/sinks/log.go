package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/leadgen-scraper/internal/events"
)

// LogSink emits one structured log line per task event.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs each event in the batch.
func (s *LogSink) Consume(_ context.Context, batch []events.Event) error {
	for _, evt := range batch {
		s.logger.Info("task event",
			zap.String("kind", string(evt.Kind)),
			zap.String("progress_id", evt.ProgressID),
			zap.String("niche_id", evt.NicheID),
			zap.String("query_id", evt.QueryID),
			zap.String("sub_query_id", evt.SubQueryID),
			zap.Int("page_num", evt.PageNum),
			zap.Bool("done", evt.Done),
			zap.Time("ts", evt.TS),
			zap.String("note", evt.Note),
		)
	}
	return nil
}

// Close implements events.Sink; it performs no action.
func (s *LogSink) Close(context.Context) error {
	return nil
}
