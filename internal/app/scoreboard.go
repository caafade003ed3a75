package app

import (
	"context"
	"fmt"
	"sort"

	"olympia-live-service/internal/domain"
)

// Scoreboard derives per-seat totals by folding the judged answers of the
// match in submission order. Nothing is read from a stored counter, so a
// corrective judgment or a replay always reconverges to the same totals.
func (s *LiveService) Scoreboard(ctx context.Context, matchID string) (domain.Scoreboard, error) {
	assignments, err := s.seats.Assignments(ctx, matchID)
	if err != nil {
		return domain.Scoreboard{}, fmt.Errorf("load seat assignments for match %s: %w", matchID, err)
	}
	judged, err := s.events.JudgedAnswers(ctx, matchID)
	if err != nil {
		return domain.Scoreboard{}, fmt.Errorf("load judged answers for match %s: %w", matchID, err)
	}

	totals := make(map[string]map[domain.RoundType]int, len(assignments))
	for _, a := range judged {
		if a.PointsAwarded == nil {
			continue
		}
		byRound := totals[a.ContestantID]
		if byRound == nil {
			byRound = make(map[domain.RoundType]int)
			totals[a.ContestantID] = byRound
		}
		next := byRound[a.RoundType] + *a.PointsAwarded
		// The opening-round running total clamps at zero; the clamp is part of
		// the fold, not of the stored delta, so replay stays idempotent.
		if a.RoundType == domain.RoundKhoiDong && next < 0 {
			next = 0
		}
		byRound[a.RoundType] = next
	}

	entries := make([]domain.ScoreboardEntry, 0, len(assignments))
	for _, seat := range assignments {
		byRound := totals[seat.ContestantID]
		if byRound == nil {
			byRound = make(map[domain.RoundType]int)
		}
		total := 0
		for _, points := range byRound {
			total += points
		}
		entries = append(entries, domain.ScoreboardEntry{
			Seat:         seat.Seat,
			ContestantID: seat.ContestantID,
			DisplayName:  seat.DisplayName,
			ByRound:      byRound,
			Total:        total,
		})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Seat < entries[j].Seat })

	return domain.Scoreboard{
		MatchID:   matchID,
		Entries:   entries,
		UpdatedAt: s.now(),
	}, nil
}
