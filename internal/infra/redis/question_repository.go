package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"olympia-live-service/internal/domain"
)

// QuestionLoader fetches round-question data from the backing store.
type QuestionLoader interface {
	LoadQuestion(ctx context.Context, questionID string) (domain.RoundQuestion, error)
}

// QuestionRepository caches question JSON in Redis and falls back to a loader
// on cache miss. Questions are stored as: SET question:{id} {json} with TTL.
type QuestionRepository struct {
	client *redis.Client
	loader QuestionLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewQuestionRepository(client *redis.Client, loader QuestionLoader, ttl time.Duration) *QuestionRepository {
	return &QuestionRepository{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (r *QuestionRepository) Question(ctx context.Context, questionID string) (domain.RoundQuestion, error) {
	key := r.key(questionID)

	if raw, err := r.client.Get(ctx, key).Bytes(); err == nil {
		var question domain.RoundQuestion
		if err := json.Unmarshal(raw, &question); err == nil {
			return question, nil
		}
		// Unreadable cache entry: fall through and refill.
	}

	result, err, _ := r.sf.Do(questionID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if raw, err := r.client.Get(ctx, key).Bytes(); err == nil {
			var question domain.RoundQuestion
			if err := json.Unmarshal(raw, &question); err == nil {
				return question, nil
			}
		}

		question, err := r.loader.LoadQuestion(ctx, questionID)
		if err != nil {
			return domain.RoundQuestion{}, err
		}

		if raw, err := json.Marshal(question); err == nil {
			_ = r.client.Set(ctx, key, raw, r.ttlWithJitter()).Err()
		}
		return question, nil
	})
	if err != nil {
		return domain.RoundQuestion{}, err
	}
	return result.(domain.RoundQuestion), nil
}

func (r *QuestionRepository) key(questionID string) string {
	return "question:" + questionID
}

func (r *QuestionRepository) ttlWithJitter() time.Duration {
	if r.ttl <= 0 {
		return 0
	}
	jitterMax := int64(r.ttl) / 10
	return r.ttl + time.Duration(r.rnd.Int63n(jitterMax+1))
}
