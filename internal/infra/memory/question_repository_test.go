package memory

import (
	"context"
	"testing"
	"time"

	"olympia-live-service/internal/domain"
)

func TestQuestionRepositoryCaches(t *testing.T) {
	loader := &countingLoader{
		QuestionLoader: NewStaticQuestionLoader(map[string]domain.RoundQuestion{
			"rq1": sampleQuestion(),
		}),
	}
	repo := NewQuestionRepository(loader, time.Minute)

	if _, err := repo.Question(context.Background(), "rq1"); err != nil {
		t.Fatalf("get question: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader once, got %d", loader.calls)
	}

	if _, err := repo.Question(context.Background(), "rq1"); err != nil {
		t.Fatalf("get question 2: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls %d", loader.calls)
	}
}

type countingLoader struct {
	QuestionLoader
	calls int
}

func (l *countingLoader) LoadQuestion(ctx context.Context, questionID string) (domain.RoundQuestion, error) {
	l.calls++
	return l.QuestionLoader.LoadQuestion(ctx, questionID)
}

func sampleQuestion() domain.RoundQuestion {
	return domain.RoundQuestion{
		ID:         "rq1",
		MatchID:    "m1",
		RoundType:  domain.RoundKhoiDong,
		OrderIndex: 1,
		Prompt:     "Thu do cua Viet Nam?",
	}
}
