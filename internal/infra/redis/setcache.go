package redis

import (
	"context"
	"encoding/json"
	"math/rand"
	"time"

	"quizroom-service/internal/domain"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// SetLoader fetches question-set content from a backing store (e.g. Postgres).
type SetLoader interface {
	LoadSet(ctx context.Context, setID string) (domain.QuestionSet, error)
}

// SetCache caches question sets in Redis and falls back to a loader on miss.
// Sets are stored as: SET qset:{setID} {json} with TTL. Unlike room state,
// set content is immutable, so a plain JSON value per key is enough.
type SetCache struct {
	client *redis.Client
	loader SetLoader
	ttl    time.Duration
	sf     singleflight.Group
	rnd    *rand.Rand
}

func NewSetCache(client *redis.Client, loader SetLoader, ttl time.Duration) *SetCache {
	return &SetCache{
		client: client,
		loader: loader,
		ttl:    ttl,
		rnd:    rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (c *SetCache) GetSet(ctx context.Context, setID string) (domain.QuestionSet, error) {
	key := c.key(setID)

	raw, err := c.client.Get(ctx, key).Bytes()
	if err == nil {
		var set domain.QuestionSet
		if uerr := json.Unmarshal(raw, &set); uerr == nil {
			return set, nil
		}
		// Unreadable cache entry, reload below.
	}

	result, err, _ := c.sf.Do(setID, func() (interface{}, error) {
		// Re-check cache in case another goroutine filled it.
		raw, err := c.client.Get(ctx, key).Bytes()
		if err == nil {
			var set domain.QuestionSet
			if uerr := json.Unmarshal(raw, &set); uerr == nil {
				return set, nil
			}
		}

		set, err := c.loader.LoadSet(ctx, setID)
		if err != nil {
			return domain.QuestionSet{}, err
		}

		if data, merr := json.Marshal(set); merr == nil {
			_ = c.client.Set(ctx, key, data, c.ttlWithJitter()).Err()
		}
		return set, nil
	})
	if err != nil {
		return domain.QuestionSet{}, err
	}
	return result.(domain.QuestionSet), nil
}

func (c *SetCache) key(setID string) string {
	return "qset:" + setID
}

func (c *SetCache) ttlWithJitter() time.Duration {
	if c.ttl <= 0 {
		return 0
	}
	jitterMax := int64(c.ttl) / 10
	return c.ttl + time.Duration(c.rnd.Int63n(jitterMax+1))
}
