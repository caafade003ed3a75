package redis

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"olympia-live-service/internal/domain"
	"olympia-live-service/internal/infra/memory"
)

func TestQuestionRepositoryCachesInRedis(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("run miniredis: %v", err)
	}
	defer mr.Close()

	client := newClient(mr)

	loader := &countingLoader{
		QuestionLoader: memory.NewStaticQuestionLoader(map[string]domain.RoundQuestion{
			"rq1": sampleQuestion(),
		}),
	}
	repo := NewQuestionRepository(client, loader, time.Minute)

	question, err := repo.Question(context.Background(), "rq1")
	if err != nil {
		t.Fatalf("get question: %v", err)
	}
	if question.ID != "rq1" || question.RoundType != domain.RoundVCNV {
		t.Fatalf("unexpected question: %+v", question)
	}
	if loader.calls != 1 {
		t.Fatalf("expected loader called once, got %d", loader.calls)
	}

	// Second call should hit cache, loader not incremented.
	cached, err := repo.Question(context.Background(), "rq1")
	if err != nil {
		t.Fatalf("get cached: %v", err)
	}
	if loader.calls != 1 {
		t.Fatalf("expected cache hit, loader calls=%d", loader.calls)
	}
	if cached.Metadata["tiles"] != float64(4) {
		t.Fatalf("metadata did not survive the cache round trip: %+v", cached.Metadata)
	}
}

type countingLoader struct {
	memory.QuestionLoader
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
		RoundType:  domain.RoundVCNV,
		OrderIndex: 1,
		Prompt:     "Buc tranh an sau cac o chu?",
		Metadata:   map[string]any{"tiles": 4},
	}
}

func newClient(mr *miniredis.Miniredis) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr: mr.Addr(),
	})
}
