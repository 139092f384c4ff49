package memory

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"factzap-service/internal/app"
	"factzap-service/internal/domain"
	"golang.org/x/sync/singleflight"
)

// DailyQuestionCache serves the shared question of the day, fetching it once
// per date and caching it with a TTL so every user sees the same question.
type DailyQuestionCache struct {
	provider app.QuestionProvider
	ttl      time.Duration
	clock    func() time.Time
	sf       singleflight.Group

	mu    sync.RWMutex
	cache map[string]cachedQuestion
}

type cachedQuestion struct {
	question  domain.Question
	expiresAt time.Time
}

func NewDailyQuestionCache(provider app.QuestionProvider, ttl time.Duration) *DailyQuestionCache {
	return &DailyQuestionCache{
		provider: provider,
		ttl:      ttl,
		clock:    time.Now,
		cache:    make(map[string]cachedQuestion),
	}
}

func (c *DailyQuestionCache) DailyQuestion(ctx context.Context, date string) (domain.Question, error) {
	now := c.clock()

	c.mu.RLock()
	if entry, ok := c.cache[date]; ok && entry.expiresAt.After(now) {
		c.mu.RUnlock()
		return entry.question, nil
	}
	c.mu.RUnlock()

	result, err, _ := c.sf.Do(date, func() (interface{}, error) {
		now := c.clock()
		c.mu.RLock()
		if entry, ok := c.cache[date]; ok && entry.expiresAt.After(now) {
			c.mu.RUnlock()
			return entry.question, nil
		}
		c.mu.RUnlock()

		questions, err := c.provider.FetchQuestions(ctx, domain.QuizParams{Amount: 1})
		if err != nil {
			return domain.Question{}, err
		}
		if len(questions) == 0 {
			return domain.Question{}, domain.ErrNoQuestions
		}
		question := questions[0]

		c.mu.Lock()
		c.cache[date] = cachedQuestion{
			question:  question,
			expiresAt: now.Add(c.ttlWithJitter()),
		}
		c.mu.Unlock()
		return question, nil
	})
	if err != nil {
		return domain.Question{}, err
	}
	return result.(domain.Question), nil
}

func (c *DailyQuestionCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	// add up to 10% jitter to spread expirations; the global locked source
	// is safe across concurrent cache fills
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(rand.Int63n(jitterMax+1))
}

// StaticQuestionProvider is a simple provider backed by a fixed question
// list (useful for tests/demos).
type StaticQuestionProvider struct {
	questions []domain.Question
}

func NewStaticQuestionProvider(questions []domain.Question) *StaticQuestionProvider {
	return &StaticQuestionProvider{questions: questions}
}

func (p *StaticQuestionProvider) FetchQuestions(_ context.Context, params domain.QuizParams) ([]domain.Question, error) {
	if len(p.questions) == 0 {
		return nil, domain.ErrNoQuestions
	}
	amount := params.Amount
	if amount > len(p.questions) {
		amount = len(p.questions)
	}
	out := make([]domain.Question, amount)
	copy(out, p.questions[:amount])
	return out, nil
}
