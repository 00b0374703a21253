package sinks

import (
	"context"
	"errors"
	"fmt"

	"github.com/JakeFAU/leadgen-scraper/internal/events"
)

// Publisher pushes payloads to a topic (Pub/Sub or the in-memory publisher).
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// PublisherSink forwards each event to a topic as its own message so
// downstream consumers (lead pipelines, dashboards) can react to completions.
type PublisherSink struct {
	publisher Publisher
	topic     string
	kinds     map[events.Kind]struct{}
}

// NewPublisherSink publishes events of the given kinds, or of every kind when
// none are listed.
func NewPublisherSink(publisher Publisher, topic string, kinds ...events.Kind) *PublisherSink {
	var filter map[events.Kind]struct{}
	if len(kinds) > 0 {
		filter = make(map[events.Kind]struct{}, len(kinds))
		for _, k := range kinds {
			filter[k] = struct{}{}
		}
	}
	return &PublisherSink{publisher: publisher, topic: topic, kinds: filter}
}

// Consume publishes the matching events and joins any publish errors.
func (s *PublisherSink) Consume(ctx context.Context, batch []events.Event) error {
	if s == nil || s.publisher == nil {
		return nil
	}
	var errs []error
	for _, evt := range batch {
		if s.kinds != nil {
			if _, ok := s.kinds[evt.Kind]; !ok {
				continue
			}
		}
		if _, err := s.publisher.Publish(ctx, s.topic, evt); err != nil {
			errs = append(errs, fmt.Errorf("publish %s %s: %w", evt.Kind, evt.ProgressID, err))
		}
	}
	return errors.Join(errs...)
}

// Close implements events.Sink; publisher lifetimes are owned by the caller.
func (s *PublisherSink) Close(context.Context) error {
	return nil
}
