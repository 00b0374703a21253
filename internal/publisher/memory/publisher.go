// Package memory keeps published task events in memory for local runs and tests.
package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// DefaultRetention is how many messages New keeps.
const DefaultRetention = 1000

// Publisher records publish calls, keeping only the most recent ones so a
// long-running server without Pub/Sub does not grow without bound.
type Publisher struct {
	mu        sync.RWMutex
	messages  []PublishedMessage
	retention int
	published int64
}

// PublishedMessage captures one publish call.
type PublishedMessage struct {
	Topic   string
	Payload any
}

// New returns a memory Publisher that keeps DefaultRetention messages.
func New() *Publisher {
	return NewWithRetention(DefaultRetention)
}

// NewWithRetention keeps at most retention messages, dropping the oldest.
// Non-positive values fall back to DefaultRetention.
func NewWithRetention(retention int) *Publisher {
	if retention <= 0 {
		retention = DefaultRetention
	}
	return &Publisher{retention: retention}
}

// Publish records the message and returns a pseudo ID.
func (p *Publisher) Publish(ctx context.Context, topic string, payload any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("publish canceled: %w", err)
	}
	if payload == nil {
		return "", errors.New("payload is required")
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.messages) >= p.retention {
		n := copy(p.messages, p.messages[len(p.messages)-p.retention+1:])
		clear(p.messages[n:])
		p.messages = p.messages[:n]
	}
	p.messages = append(p.messages, PublishedMessage{Topic: topic, Payload: payload})
	p.published++
	return fmt.Sprintf("memory-%d", p.published), nil
}

// Published returns the total number of publishes, including dropped ones.
func (p *Publisher) Published() int64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.published
}

// Messages returns a copy of the recorded publishes.
func (p *Publisher) Messages() []PublishedMessage {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]PublishedMessage, len(p.messages))
	copy(out, p.messages)
	return out
}

// MessagesFor returns the recorded publishes for one topic.
func (p *Publisher) MessagesFor(topic string) []PublishedMessage {
	p.mu.RLock()
	defer p.mu.RUnlock()
	var out []PublishedMessage
	for _, msg := range p.messages {
		if msg.Topic == topic {
			out = append(out, msg)
		}
	}
	return out
}
