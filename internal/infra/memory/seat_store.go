package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"olympia-live-service/internal/domain"
)

// SeatStore holds seat assignments and enforces the uniqueness invariants:
// a seat carries at most one contestant and a contestant holds at most one
// seat per match.
type SeatStore struct {
	mu    sync.RWMutex
	seats map[string]map[int]domain.SeatAssignment // matchID -> seat -> assignment
}

func NewSeatStore() *SeatStore {
	return &SeatStore{seats: make(map[string]map[int]domain.SeatAssignment)}
}

func (s *SeatStore) Assign(_ context.Context, matchID string, seat int, contestantID, displayName string) error {
	if seat < 1 || seat > domain.SeatCount {
		return fmt.Errorf("seat %d out of range 1..%d: %w", seat, domain.SeatCount, domain.ErrInvalidState)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	bySeat := s.seats[matchID]
	if bySeat == nil {
		bySeat = make(map[int]domain.SeatAssignment)
		s.seats[matchID] = bySeat
	}
	if existing, taken := bySeat[seat]; taken && existing.ContestantID != contestantID {
		return fmt.Errorf("seat %d already held by %s: %w", seat, existing.ContestantID, domain.ErrConflict)
	}
	for other, a := range bySeat {
		if a.ContestantID == contestantID && other != seat {
			return fmt.Errorf("contestant %s already holds seat %d: %w", contestantID, other, domain.ErrConflict)
		}
	}
	bySeat[seat] = domain.SeatAssignment{
		MatchID:      matchID,
		Seat:         seat,
		ContestantID: contestantID,
		DisplayName:  displayName,
	}
	return nil
}

func (s *SeatStore) Remove(_ context.Context, matchID string, seat int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	bySeat, ok := s.seats[matchID]
	if !ok {
		return fmt.Errorf("match %s: %w", matchID, domain.ErrNotFound)
	}
	if _, ok := bySeat[seat]; !ok {
		return fmt.Errorf("seat %d in match %s: %w", seat, matchID, domain.ErrNotFound)
	}
	delete(bySeat, seat)
	return nil
}

// Assignments returns the match's seats ordered by seat number. Gaps after
// removals are fine; seat numbers are not required to stay contiguous.
func (s *SeatStore) Assignments(_ context.Context, matchID string) ([]domain.SeatAssignment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	bySeat := s.seats[matchID]
	out := make([]domain.SeatAssignment, 0, len(bySeat))
	for _, a := range bySeat {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seat < out[j].Seat })
	return out, nil
}
