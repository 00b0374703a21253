package events

import (
	"errors"
	"fmt"
	"time"
)

// Kind denotes the lifecycle transition represented by an Event.
type Kind string

// Supported event kinds.
const (
	KindTaskCreated     Kind = "TASK_CREATED"
	KindTaskAssigned    Kind = "TASK_ASSIGNED"
	KindTaskAdvanced    Kind = "TASK_ADVANCED"
	KindTaskCompleted   Kind = "TASK_COMPLETED"
	KindEnumerationDone Kind = "ENUMERATION_DONE"
)

// Event captures one transition of a scraping task.
type Event struct {
	Kind Kind `json:"kind"`
	// TS is the UTC timestamp recorded by the emitter.
	TS time.Time `json:"ts"`
	// ProgressID identifies the task; empty only for ENUMERATION_DONE.
	ProgressID string `json:"progress_id,omitempty"`
	NicheID    string `json:"niche_id,omitempty"`
	QueryID    string `json:"query_id,omitempty"`
	// SubQueryID is empty for main tasks.
	SubQueryID string `json:"sub_query_id,omitempty"`
	PageNum    int    `json:"page_num,omitempty"`
	Done       bool   `json:"done"`
	// Note lets emitters attach low-volume context.
	Note string `json:"note,omitempty"`
}

// Validate performs coarse validation on Event payloads.
func (e Event) Validate() error {
	if e.TS.IsZero() {
		return errors.New("timestamp is required")
	}
	switch e.Kind {
	case KindEnumerationDone:
		return nil
	case KindTaskCreated, KindTaskAssigned, KindTaskAdvanced, KindTaskCompleted:
		if e.ProgressID == "" {
			return fmt.Errorf("%s requires progress id", e.Kind)
		}
		return nil
	default:
		return fmt.Errorf("unknown kind %q", e.Kind)
	}
}

// IsSubQuery reports whether the event concerns a sub-query task.
func (e Event) IsSubQuery() bool {
	return e.SubQueryID != ""
}

// EventKind exposes the kind to publishers that tag messages with it.
func (e Event) EventKind() string {
	return string(e.Kind)
}
