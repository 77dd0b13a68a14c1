package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"

	"quiz-attempt-service/internal/domain"
)

// QuizLoader fetches quiz content from a backing store.
type QuizLoader interface {
	LoadQuiz(ctx context.Context, quizID int64) (domain.Quiz, error)
}

// QuizCatalog caches whole quizzes in Redis and falls back to a loader on cache miss.
// Each quiz is stored as JSON: SET quiz:{quizID} {json} EX ttl
type QuizCatalog struct {
	client *redis.Client
	loader QuizLoader
	ttl    time.Duration
	sf     singleflight.Group

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewQuizCatalog(client *redis.Client, loader QuizLoader, ttl time.Duration) *QuizCatalog {
	return &QuizCatalog{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *QuizCatalog) GetQuiz(ctx context.Context, quizID int64) (domain.Quiz, error) {
	if quiz, ok := c.cached(ctx, quizID); ok {
		return quiz, nil
	}

	result, err, _ := c.sf.Do(strconv.FormatInt(quizID, 10), func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		if quiz, ok := c.cached(ctx, quizID); ok {
			return quiz, nil
		}

		quiz, err := c.loader.LoadQuiz(ctx, quizID)
		if err != nil {
			return domain.Quiz{}, err
		}

		// best-effort fill; a failed write only costs another load
		if data, err := json.Marshal(quiz); err == nil {
			_ = c.client.Set(ctx, c.key(quizID), data, c.ttlWithJitter()).Err()
		}
		return quiz, nil
	})
	if err != nil {
		return domain.Quiz{}, err
	}
	return result.(domain.Quiz), nil
}

// Invalidate removes the cached quiz so the next read goes to the loader.
func (c *QuizCatalog) Invalidate(ctx context.Context, quizID int64) error {
	return c.client.Del(ctx, c.key(quizID)).Err()
}

func (c *QuizCatalog) cached(ctx context.Context, quizID int64) (domain.Quiz, bool) {
	raw, err := c.client.Get(ctx, c.key(quizID)).Bytes()
	if err != nil {
		// redis.Nil is a plain miss; other errors degrade to the loader as well
		return domain.Quiz{}, false
	}
	var quiz domain.Quiz
	if err := json.Unmarshal(raw, &quiz); err != nil {
		return domain.Quiz{}, false
	}
	return quiz, true
}

func (c *QuizCatalog) key(quizID int64) string {
	return "quiz:" + strconv.FormatInt(quizID, 10)
}

func (c *QuizCatalog) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
