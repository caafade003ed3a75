package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"olympia-live-service/internal/domain"
)

// EventStore is the Postgres-backed append-only log. occurred_at/submitted_at
// come from clock_timestamp() on the server, so ordering is settled by the
// database clock regardless of which client wrote first.
type EventStore struct {
	pool *pgxpool.Pool
}

func NewEventStore(pool *pgxpool.Pool) *EventStore {
	return &EventStore{pool: pool}
}

func (s *EventStore) AppendBuzzerEvent(ctx context.Context, ev domain.BuzzerEvent) (domain.BuzzerEvent, error) {
	ev.ID = uuid.NewString()
	err := s.pool.QueryRow(ctx, `
		INSERT INTO buzzer_events (id, match_id, round_question_id, contestant_id, event_type, result)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING occurred_at`,
		ev.ID, ev.MatchID, ev.RoundQuestionID, ev.ContestantID, string(ev.EventType), string(ev.Result),
	).Scan(&ev.OccurredAt)
	if err != nil {
		return domain.BuzzerEvent{}, fmt.Errorf("append buzzer event: %w", err)
	}
	return ev, nil
}

func (s *EventStore) BuzzerEvents(ctx context.Context, matchID, roundQuestionID string) ([]domain.BuzzerEvent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, match_id, round_question_id, contestant_id, event_type, result, occurred_at
		FROM buzzer_events
		WHERE match_id=$1 AND round_question_id=$2
		ORDER BY occurred_at`,
		matchID, roundQuestionID)
	if err != nil {
		return nil, fmt.Errorf("query buzzer events: %w", err)
	}
	defer rows.Close()

	var events []domain.BuzzerEvent
	for rows.Next() {
		var ev domain.BuzzerEvent
		var eventType, result string
		if err := rows.Scan(&ev.ID, &ev.MatchID, &ev.RoundQuestionID, &ev.ContestantID, &eventType, &result, &ev.OccurredAt); err != nil {
			return nil, fmt.Errorf("scan buzzer event: %w", err)
		}
		ev.EventType = domain.BuzzerEventType(eventType)
		ev.Result = domain.BuzzerResult(result)
		events = append(events, ev)
	}
	return events, rows.Err()
}

func (s *EventStore) AppendAnswer(ctx context.Context, a domain.Answer) (domain.Answer, error) {
	a.ID = uuid.NewString()
	a.IsCorrect = nil
	a.PointsAwarded = nil
	err := s.pool.QueryRow(ctx, `
		INSERT INTO answers (id, match_id, round_question_id, contestant_id, round_type, text)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING submitted_at`,
		a.ID, a.MatchID, a.RoundQuestionID, a.ContestantID, string(a.RoundType), a.Text,
	).Scan(&a.SubmittedAt)
	if err != nil {
		return domain.Answer{}, fmt.Errorf("append answer: %w", err)
	}
	return a, nil
}

func (s *EventStore) Answer(ctx context.Context, answerID string) (domain.Answer, error) {
	return s.answerFrom(ctx, s.pool, answerID)
}

// queryRower is satisfied by both the pool and a transaction, so the judge
// statements can run in either.
type queryRower interface {
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func (s *EventStore) answerFrom(ctx context.Context, q queryRower, answerID string) (domain.Answer, error) {
	a, err := s.scanAnswer(q.QueryRow(ctx, `
		SELECT id, match_id, round_question_id, contestant_id, round_type, text, is_correct, points_awarded, submitted_at
		FROM answers WHERE id=$1`, answerID))
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.Answer{}, fmt.Errorf("answer %s: %w", answerID, domain.ErrNotFound)
	}
	if err != nil {
		return domain.Answer{}, fmt.Errorf("load answer: %w", err)
	}
	return a, nil
}

func (s *EventStore) AnswersByQuestion(ctx context.Context, roundQuestionID string) ([]domain.Answer, error) {
	return s.queryAnswers(ctx, `
		SELECT id, match_id, round_question_id, contestant_id, round_type, text, is_correct, points_awarded, submitted_at
		FROM answers WHERE round_question_id=$1
		ORDER BY submitted_at`, roundQuestionID)
}

// JudgeAnswer writes the judgment only when the answer is still unjudged; a
// row that exists but no longer matches means a second judgment attempt.
func (s *EventStore) JudgeAnswer(ctx context.Context, answerID string, isCorrect bool, points int) (domain.Answer, error) {
	return s.judgeFrom(ctx, s.pool, answerID, isCorrect, points)
}

// JudgeSteal settles the steal attempt and the main contestant's answer in a
// single transaction: if either row turns out judged already, the whole
// settlement rolls back and nothing is applied.
func (s *EventStore) JudgeSteal(ctx context.Context, stealAnswerID string, stealCorrect bool, stealPoints int, mainAnswerID string, mainPoints int) (domain.Answer, domain.Answer, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.Answer{}, domain.Answer{}, fmt.Errorf("begin steal settlement: %w", err)
	}
	defer tx.Rollback(ctx)

	steal, err := s.judgeFrom(ctx, tx, stealAnswerID, stealCorrect, stealPoints)
	if err != nil {
		return domain.Answer{}, domain.Answer{}, err
	}
	main, err := s.judgeFrom(ctx, tx, mainAnswerID, false, mainPoints)
	if err != nil {
		return domain.Answer{}, domain.Answer{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Answer{}, domain.Answer{}, fmt.Errorf("commit steal settlement: %w", err)
	}
	return steal, main, nil
}

func (s *EventStore) judgeFrom(ctx context.Context, q queryRower, answerID string, isCorrect bool, points int) (domain.Answer, error) {
	a, err := s.scanAnswer(q.QueryRow(ctx, `
		UPDATE answers SET is_correct=$2, points_awarded=$3
		WHERE id=$1 AND is_correct IS NULL
		RETURNING id, match_id, round_question_id, contestant_id, round_type, text, is_correct, points_awarded, submitted_at`,
		answerID, isCorrect, points))
	if errors.Is(err, pgx.ErrNoRows) {
		if _, lookupErr := s.answerFrom(ctx, q, answerID); lookupErr != nil {
			return domain.Answer{}, lookupErr
		}
		return domain.Answer{}, fmt.Errorf("answer %s already judged: %w", answerID, domain.ErrConflict)
	}
	if err != nil {
		return domain.Answer{}, fmt.Errorf("judge answer: %w", err)
	}
	return a, nil
}

func (s *EventStore) JudgedAnswers(ctx context.Context, matchID string) ([]domain.Answer, error) {
	return s.queryAnswers(ctx, `
		SELECT id, match_id, round_question_id, contestant_id, round_type, text, is_correct, points_awarded, submitted_at
		FROM answers WHERE match_id=$1 AND is_correct IS NOT NULL
		ORDER BY submitted_at`, matchID)
}

func (s *EventStore) queryAnswers(ctx context.Context, sql string, args ...interface{}) ([]domain.Answer, error) {
	rows, err := s.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("query answers: %w", err)
	}
	defer rows.Close()

	var answers []domain.Answer
	for rows.Next() {
		a, err := s.scanAnswer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan answer: %w", err)
		}
		answers = append(answers, a)
	}
	return answers, rows.Err()
}

func (s *EventStore) scanAnswer(row pgx.Row) (domain.Answer, error) {
	var a domain.Answer
	var roundType string
	if err := row.Scan(&a.ID, &a.MatchID, &a.RoundQuestionID, &a.ContestantID, &roundType, &a.Text, &a.IsCorrect, &a.PointsAwarded, &a.SubmittedAt); err != nil {
		return domain.Answer{}, err
	}
	a.RoundType = domain.RoundType(roundType)
	return a, nil
}
