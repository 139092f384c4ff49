package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"factzap-service/internal/app"
	"factzap-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// DailyQuestionCache stores the question of the day in Redis so every
// instance serves the same question for a given date:
// SET daily:question:{date} {question JSON}
// Cache misses fall through to the provider behind a singleflight gate.
type DailyQuestionCache struct {
	client   *redis.Client
	provider app.QuestionProvider
	ttl      time.Duration
	sf       singleflight.Group
}

func NewDailyQuestionCache(client *redis.Client, provider app.QuestionProvider, ttl time.Duration) *DailyQuestionCache {
	return &DailyQuestionCache{
		client:   client,
		provider: provider,
		ttl:      ttl,
	}
}

func (c *DailyQuestionCache) DailyQuestion(ctx context.Context, date string) (domain.Question, error) {
	key := c.key(date)

	raw, err := c.client.Get(ctx, key).Result()
	if err == nil {
		var question domain.Question
		if err := json.Unmarshal([]byte(raw), &question); err == nil {
			return question, nil
		}
	}

	result, err, _ := c.sf.Do(date, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		raw, err := c.client.Get(ctx, key).Result()
		if err == nil {
			var question domain.Question
			if err := json.Unmarshal([]byte(raw), &question); err == nil {
				return question, nil
			}
		}

		questions, err := c.provider.FetchQuestions(ctx, domain.QuizParams{Amount: 1})
		if err != nil {
			return domain.Question{}, err
		}
		if len(questions) == 0 {
			return domain.Question{}, domain.ErrNoQuestions
		}
		question := questions[0]

		if data, err := json.Marshal(question); err == nil {
			_ = c.client.Set(ctx, key, data, c.ttlWithJitter()).Err()
		}
		return question, nil
	})
	if err != nil {
		return domain.Question{}, err
	}
	return result.(domain.Question), nil
}

func (c *DailyQuestionCache) key(date string) string {
	return "daily:question:" + date
}

func (c *DailyQuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// global locked source, safe across concurrent cache fills
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(rand.Int63n(jitterMax+1))
}
