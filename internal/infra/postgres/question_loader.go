package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"olympia-live-service/internal/domain"
)

// QuestionLoader loads round-question JSONB from Postgres.
type QuestionLoader struct {
	pool *pgxpool.Pool
}

func NewQuestionLoader(pool *pgxpool.Pool) *QuestionLoader {
	return &QuestionLoader{pool: pool}
}

func (l *QuestionLoader) LoadQuestion(ctx context.Context, questionID string) (domain.RoundQuestion, error) {
	var raw []byte
	err := l.pool.QueryRow(ctx, `SELECT data FROM round_questions WHERE id=$1`, questionID).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.RoundQuestion{}, fmt.Errorf("question %s: %w", questionID, domain.ErrNotFound)
	}
	if err != nil {
		return domain.RoundQuestion{}, fmt.Errorf("load question: %w", err)
	}
	var question domain.RoundQuestion
	if err := json.Unmarshal(raw, &question); err != nil {
		return domain.RoundQuestion{}, fmt.Errorf("unmarshal question: %w", err)
	}
	return question, nil
}
