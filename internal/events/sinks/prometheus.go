package sinks

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JakeFAU/leadgen-scraper/internal/events"
)

// PrometheusSink exports task lifecycle counters.
type PrometheusSink struct {
	tasksCreated    *prometheus.CounterVec
	tasksAssigned   prometheus.Counter
	tasksAdvanced   prometheus.Counter
	tasksCompleted  *prometheus.CounterVec
	enumerationDone prometheus.Counter
	lastPageNum     prometheus.Gauge
}

// NewPrometheusSink registers the collectors against the provided registry.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PrometheusSink{
		tasksCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scraper_tasks_created_total",
			Help: "Progress records materialised by the engine, partitioned by task type.",
		}, []string{"type"}),
		tasksAssigned: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scraper_tasks_assigned_total",
			Help: "Tasks handed to workers, including repeats of the same pending task.",
		}),
		tasksAdvanced: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scraper_tasks_advanced_total",
			Help: "Progress reports that left the task pending.",
		}),
		tasksCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "scraper_tasks_completed_total",
			Help: "Progress reports that marked a task done, partitioned by task type.",
		}, []string{"type"}),
		enumerationDone: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "scraper_enumeration_exhausted_total",
			Help: "Assignment requests answered with no pending tasks.",
		}),
		lastPageNum: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "scraper_last_reported_page_num",
			Help: "Page cursor from the most recent progress report.",
		}),
	}
	for _, collector := range []prometheus.Collector{
		s.tasksCreated,
		s.tasksAssigned,
		s.tasksAdvanced,
		s.tasksCompleted,
		s.enumerationDone,
		s.lastPageNum,
	} {
		if err := reg.Register(collector); err != nil {
			return nil, fmt.Errorf("register task collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the collectors from the batch.
func (s *PrometheusSink) Consume(_ context.Context, batch []events.Event) error {
	for _, evt := range batch {
		switch evt.Kind {
		case events.KindTaskCreated:
			s.tasksCreated.WithLabelValues(taskType(evt)).Inc()
		case events.KindTaskAssigned:
			s.tasksAssigned.Inc()
		case events.KindTaskAdvanced:
			s.tasksAdvanced.Inc()
			s.lastPageNum.Set(float64(evt.PageNum))
		case events.KindTaskCompleted:
			s.tasksCompleted.WithLabelValues(taskType(evt)).Inc()
			s.lastPageNum.Set(float64(evt.PageNum))
		case events.KindEnumerationDone:
			s.enumerationDone.Inc()
		}
	}
	return nil
}

// Close implements events.Sink; it performs no action.
func (s *PrometheusSink) Close(context.Context) error {
	return nil
}

func taskType(evt events.Event) string {
	if evt.IsSubQuery() {
		return "sub_query"
	}
	return "main"
}
