// Package guard filters an observer's incoming change-notification stream.
// The transport delivers at-least-once, possibly duplicated, possibly
// out-of-order; the guard turns that into exactly-once, in-order application
// against the observer's local view.
package guard

import "olympia-live-service/internal/domain"

// Disposition reports what the guard did with an event.
type Disposition string

const (
	Applied              Disposition = "applied"
	DroppedMalformed     Disposition = "dropped_malformed"
	DroppedInformational Disposition = "dropped_informational"
	DroppedScope         Disposition = "dropped_scope"
	DroppedStale         Disposition = "dropped_stale"
	DroppedDuplicate     Disposition = "dropped_duplicate"
)

// Guard is the per-observer reconciliation filter. It is not safe for
// concurrent use: an observer fed from multiple connections must serialize
// events through a single queue before the guard.
type Guard struct {
	activeEntityID string
	lastProcessed  int64
	processed      map[string]struct{}
}

func New() *Guard {
	return &Guard{processed: make(map[string]struct{})}
}

// SetActiveEntity scopes the guard to one session. Events targeting other
// entities are dropped, which keeps a broad subscription from polluting the
// observer's current view. An empty id disables the scope filter.
func (g *Guard) SetActiveEntity(id string) {
	g.activeEntityID = id
}

// HighWaterMark returns the timestamp of the most recently accepted event.
func (g *Guard) HighWaterMark() int64 { return g.lastProcessed }

// Process runs ev through the guard pipeline and, if it survives, invokes
// apply with it. The steps run in a fixed order:
//
//  1. structural validation (id and positive timestamp required)
//  2. intent filter (informational events never reach state)
//  3. scope filter against the active entity
//  4. high-water-mark check (timestamp must be strictly newer)
//  5. duplicate-id check
//  6. commit the mark and the id
//  7. apply
//
// The commit happens before apply on purpose: if apply panics or re-enters
// event emission, the event is already recorded as processed and cannot loop.
func (g *Guard) Process(ev domain.ChangeEvent, apply func(domain.ChangeEvent)) Disposition {
	if ev.ID == "" || ev.OccurredAt <= 0 {
		return DroppedMalformed
	}
	if ev.Intent != domain.IntentMutation {
		return DroppedInformational
	}
	if g.activeEntityID != "" && ev.EntityID != g.activeEntityID {
		return DroppedScope
	}
	if ev.OccurredAt <= g.lastProcessed {
		return DroppedStale
	}
	if _, seen := g.processed[ev.ID]; seen {
		return DroppedDuplicate
	}

	g.lastProcessed = ev.OccurredAt
	g.processed[ev.ID] = struct{}{}
	if apply != nil {
		apply(ev)
	}
	return Applied
}
