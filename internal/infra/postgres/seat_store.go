package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"

	"olympia-live-service/internal/domain"
)

// SeatStore reads and writes seat assignments. The table's primary key and
// unique constraint enforce the one-contestant-per-seat and
// one-seat-per-contestant invariants at the store level.
type SeatStore struct {
	pool *pgxpool.Pool
}

func NewSeatStore(pool *pgxpool.Pool) *SeatStore {
	return &SeatStore{pool: pool}
}

func (s *SeatStore) Assign(ctx context.Context, matchID string, seat int, contestantID, displayName string) error {
	if seat < 1 || seat > domain.SeatCount {
		return fmt.Errorf("seat %d out of range 1..%d: %w", seat, domain.SeatCount, domain.ErrInvalidState)
	}
	tag, err := s.pool.Exec(ctx, `
		INSERT INTO seat_assignments (match_id, seat, contestant_id, display_name)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (match_id, seat) DO UPDATE
		SET display_name = EXCLUDED.display_name
		WHERE seat_assignments.contestant_id = EXCLUDED.contestant_id`,
		matchID, seat, contestantID, displayName)
	if err != nil {
		return fmt.Errorf("assign seat: %w", domainConflict(err))
	}
	// The conflict arm only updates when the seat already belongs to this
	// contestant; zero rows means somebody else holds it.
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("seat %d in match %s held by another contestant: %w", seat, matchID, domain.ErrConflict)
	}
	return nil
}

func (s *SeatStore) Remove(ctx context.Context, matchID string, seat int) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM seat_assignments WHERE match_id=$1 AND seat=$2`, matchID, seat)
	if err != nil {
		return fmt.Errorf("remove seat: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("seat %d in match %s: %w", seat, matchID, domain.ErrNotFound)
	}
	return nil
}

func (s *SeatStore) Assignments(ctx context.Context, matchID string) ([]domain.SeatAssignment, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT match_id, seat, contestant_id, display_name
		FROM seat_assignments WHERE match_id=$1 ORDER BY seat`, matchID)
	if err != nil {
		return nil, fmt.Errorf("query seat assignments: %w", err)
	}
	defer rows.Close()

	var assignments []domain.SeatAssignment
	for rows.Next() {
		var a domain.SeatAssignment
		if err := rows.Scan(&a.MatchID, &a.Seat, &a.ContestantID, &a.DisplayName); err != nil {
			return nil, fmt.Errorf("scan seat assignment: %w", err)
		}
		assignments = append(assignments, a)
	}
	return assignments, rows.Err()
}

// domainConflict maps unique-violation errors onto domain.ErrConflict so
// callers can branch without knowing the driver.
func domainConflict(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", domain.ErrConflict, err)
}
