// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// Kind names an audited action.
type Kind string

const (
	KindLogin       Kind = "login"
	KindLogout      Kind = "logout"
	KindLoginFailed Kind = "login_failed"
	KindVote        Kind = "vote"
)

// Event is one audited action. QuestionID and ChoiceID are zero for
// authentication events.
type Event struct {
	Kind       Kind      `json:"kind"`
	Actor      string    `json:"actor"`
	IP         string    `json:"ip"`
	QuestionID int64     `json:"question_id,omitempty"`
	ChoiceID   int64     `json:"choice_id,omitempty"`
	At         time.Time `json:"at"`
}

// Sink receives published events.
type Sink interface {
	Write(ctx context.Context, e Event) error
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, e Event) error

func (f SinkFunc) Write(ctx context.Context, e Event) error { return f(ctx, e) }

// Bus fans events out to its sinks. A failing sink never fails the
// action being audited.
type Bus struct {
	mu     sync.RWMutex
	sinks  []Sink
	logger *slog.Logger
}

func NewBus(logger *slog.Logger, sinks ...Sink) *Bus {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bus{sinks: sinks, logger: logger}
}

// Add registers another sink.
func (b *Bus) Add(s Sink) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sinks = append(b.sinks, s)
}

// Publish delivers e to every sink in registration order.
func (b *Bus) Publish(ctx context.Context, e Event) {
	if b == nil {
		return
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}
	e.At = e.At.UTC()

	b.mu.RLock()
	sinks := make([]Sink, len(b.sinks))
	copy(sinks, b.sinks)
	b.mu.RUnlock()

	for _, s := range sinks {
		if err := s.Write(ctx, e); err != nil {
			b.logger.Warn("audit sink failed",
				"kind", e.Kind,
				"actor", e.Actor,
				"error", err,
			)
		}
	}
}
