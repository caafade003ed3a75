// Package resolve determines the winning contestant of a buzzer race from the
// append-only event log, after the fact. Ordering disputes are settled by the
// store-assigned timestamps, never by coordinating writers up front.
package resolve

import (
	"context"
	"fmt"
	"time"

	"olympia-live-service/internal/domain"
)

// EventSource reads the buzzer event log for one round question.
type EventSource interface {
	BuzzerEvents(ctx context.Context, matchID, roundQuestionID string) ([]domain.BuzzerEvent, error)
}

// Winner picks the winning attempt from the events of one round question, or
// nil when no eligible attempt exists (a valid outcome, distinct from a query
// failure).
//
// The most recent reset event sets an exclusive eligibility boundary: only
// buzz/steal attempts with result=win strictly after it count. Among eligible
// attempts the earliest timestamp wins; equal timestamps fall back to input
// order. The input slice is not mutated.
func Winner(events []domain.BuzzerEvent) *domain.BuzzerEvent {
	var boundary time.Time
	hasBoundary := false
	for _, ev := range events {
		if ev.EventType != domain.BuzzerReset {
			continue
		}
		if !hasBoundary || ev.OccurredAt.After(boundary) {
			boundary = ev.OccurredAt
			hasBoundary = true
		}
	}

	var winner *domain.BuzzerEvent
	for i := range events {
		ev := &events[i]
		if ev.EventType != domain.BuzzerBuzz && ev.EventType != domain.BuzzerSteal {
			continue
		}
		if ev.Result != domain.BuzzerWin {
			continue
		}
		if hasBoundary && !ev.OccurredAt.After(boundary) {
			continue
		}
		if winner == nil || ev.OccurredAt.Before(winner.OccurredAt) {
			winner = ev
		}
	}
	if winner == nil {
		return nil
	}
	w := *winner
	return &w
}

// Resolver is the store-backed wrapper around Winner.
type Resolver struct {
	events EventSource
}

func NewResolver(events EventSource) *Resolver {
	return &Resolver{events: events}
}

// ResolveWinner loads the event log for the round question and resolves the
// race. A failed store query surfaces as ErrResolutionUnavailable; it is never
// collapsed into "no winner".
func (r *Resolver) ResolveWinner(ctx context.Context, matchID, roundQuestionID string) (*domain.BuzzerEvent, error) {
	events, err := r.events.BuzzerEvents(ctx, matchID, roundQuestionID)
	if err != nil {
		return nil, fmt.Errorf("%w: query buzzer events for %s/%s: %v", domain.ErrResolutionUnavailable, matchID, roundQuestionID, err)
	}
	return Winner(events), nil
}
