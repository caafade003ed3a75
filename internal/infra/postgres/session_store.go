package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"olympia-live-service/internal/domain"
)

// SessionStore persists live sessions with a revision column as the
// optimistic-concurrency token.
type SessionStore struct {
	pool *pgxpool.Pool
}

func NewSessionStore(pool *pgxpool.Pool) *SessionStore {
	return &SessionStore{pool: pool}
}

const sessionColumns = `id, match_id, status, current_round_type, current_question_state, current_round_question_id, access_code, revision, created_at`

func (s *SessionStore) Create(ctx context.Context, session domain.LiveSession) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO live_sessions (id, match_id, status, current_round_type, current_question_state, current_round_question_id, access_code, revision, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 1, $8)`,
		session.ID, session.MatchID, string(session.Status),
		string(session.CurrentRoundType), string(session.CurrentQuestionState), session.CurrentRoundQuestionID,
		session.AccessCode, session.CreatedAt)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

func (s *SessionStore) Get(ctx context.Context, sessionID string) (domain.LiveSession, error) {
	session, err := s.scanSession(s.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM live_sessions WHERE id=$1`, sessionID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.LiveSession{}, fmt.Errorf("session %s: %w", sessionID, domain.ErrNotFound)
	}
	if err != nil {
		return domain.LiveSession{}, fmt.Errorf("load session: %w", err)
	}
	return session, nil
}

func (s *SessionStore) ByAccessCode(ctx context.Context, code string) (domain.LiveSession, error) {
	session, err := s.scanSession(s.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM live_sessions WHERE access_code=$1 AND status <> 'ended' ORDER BY created_at DESC LIMIT 1`, code))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.LiveSession{}, fmt.Errorf("access code %s: %w", code, domain.ErrNotFound)
	}
	if err != nil {
		return domain.LiveSession{}, fmt.Errorf("load session by code: %w", err)
	}
	return session, nil
}

func (s *SessionStore) ActiveByMatch(ctx context.Context, matchID string) (domain.LiveSession, error) {
	session, err := s.scanSession(s.pool.QueryRow(ctx,
		`SELECT `+sessionColumns+` FROM live_sessions WHERE match_id=$1 AND status <> 'ended' ORDER BY created_at DESC LIMIT 1`, matchID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.LiveSession{}, fmt.Errorf("live session for match %s: %w", matchID, domain.ErrNotFound)
	}
	if err != nil {
		return domain.LiveSession{}, fmt.Errorf("load session by match: %w", err)
	}
	return session, nil
}

// Update is the conditional write: the row must still carry the revision the
// caller read, otherwise somebody else won the race.
func (s *SessionStore) Update(ctx context.Context, sessionID string, expectedRevision int64, session domain.LiveSession) (domain.LiveSession, error) {
	updated, err := s.scanSession(s.pool.QueryRow(ctx, `
		UPDATE live_sessions
		SET status=$3, current_round_type=$4, current_question_state=$5, current_round_question_id=$6, revision=revision+1
		WHERE id=$1 AND revision=$2
		RETURNING `+sessionColumns,
		sessionID, expectedRevision,
		string(session.Status), string(session.CurrentRoundType), string(session.CurrentQuestionState), session.CurrentRoundQuestionID))
	if errors.Is(err, pgx.ErrNoRows) {
		if _, lookupErr := s.Get(ctx, sessionID); lookupErr != nil {
			return domain.LiveSession{}, lookupErr
		}
		return domain.LiveSession{}, fmt.Errorf("session %s changed since read (expected revision %d): %w", sessionID, expectedRevision, domain.ErrConflict)
	}
	if err != nil {
		return domain.LiveSession{}, fmt.Errorf("update session: %w", err)
	}
	return updated, nil
}

func (s *SessionStore) scanSession(row pgx.Row) (domain.LiveSession, error) {
	var session domain.LiveSession
	var status, roundType, questionState string
	if err := row.Scan(&session.ID, &session.MatchID, &status, &roundType, &questionState,
		&session.CurrentRoundQuestionID, &session.AccessCode, &session.Revision, &session.CreatedAt); err != nil {
		return domain.LiveSession{}, err
	}
	session.Status = domain.SessionStatus(status)
	session.CurrentRoundType = domain.RoundType(roundType)
	session.CurrentQuestionState = domain.QuestionState(questionState)
	return session, nil
}
