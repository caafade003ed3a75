package memory

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"olympia-live-service/internal/domain"
)

// QuestionLoader fetches round-question reference data from a backing store.
type QuestionLoader interface {
	LoadQuestion(ctx context.Context, questionID string) (domain.RoundQuestion, error)
}

// QuestionRepository caches questions with TTL to avoid repeated store hits.
// Questions are immutable once the round begins, so a stale cache entry is
// harmless within the TTL.
type QuestionRepository struct {
	loader QuestionLoader
	ttl    time.Duration
	clock  func() time.Time
	sf     singleflight.Group
	rnd    *rand.Rand

	mu    sync.RWMutex
	cache map[string]cachedQuestion
}

type cachedQuestion struct {
	question  domain.RoundQuestion
	expiresAt time.Time
}

func NewQuestionRepository(loader QuestionLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		loader: loader,
		ttl:    ttl,
		clock:  time.Now,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
		cache:  make(map[string]cachedQuestion),
	}
}

func (r *QuestionRepository) Question(ctx context.Context, questionID string) (domain.RoundQuestion, error) {
	now := r.clock()

	r.mu.RLock()
	if entry, ok := r.cache[questionID]; ok && entry.expiresAt.After(now) {
		r.mu.RUnlock()
		return entry.question, nil
	}
	r.mu.RUnlock()

	result, err, _ := r.sf.Do(questionID, func() (interface{}, error) {
		now := r.clock()
		r.mu.RLock()
		if entry, ok := r.cache[questionID]; ok && entry.expiresAt.After(now) {
			r.mu.RUnlock()
			return entry.question, nil
		}
		r.mu.RUnlock()

		question, err := r.loader.LoadQuestion(ctx, questionID)
		if err != nil {
			return domain.RoundQuestion{}, err
		}

		r.mu.Lock()
		r.cache[questionID] = cachedQuestion{
			question:  question,
			expiresAt: now.Add(r.ttlWithJitter()),
		}
		r.mu.Unlock()
		return question, nil
	})
	if err != nil {
		return domain.RoundQuestion{}, err
	}
	return result.(domain.RoundQuestion), nil
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}

// StaticQuestionLoader serves questions from an in-memory map (tests/demos).
type StaticQuestionLoader struct {
	questions map[string]domain.RoundQuestion
}

func NewStaticQuestionLoader(questions map[string]domain.RoundQuestion) *StaticQuestionLoader {
	return &StaticQuestionLoader{questions: questions}
}

func (l *StaticQuestionLoader) LoadQuestion(_ context.Context, questionID string) (domain.RoundQuestion, error) {
	if q, ok := l.questions[questionID]; ok {
		return q, nil
	}
	return domain.RoundQuestion{}, fmt.Errorf("question %s: %w", questionID, domain.ErrNotFound)
}
