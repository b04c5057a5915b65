package snapshot

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/example/chirpolly/pkg/models"
)

// RedisStore keeps one snapshot per learner under "chirpolly-srs-data:<learner>".
type RedisStore struct {
	rdb *goredis.Client
	ttl time.Duration
}

// NewRedisStore wraps a connected client. ttl 0 keeps snapshots forever.
func NewRedisStore(rdb *goredis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{rdb: rdb, ttl: ttl}
}

// DialRedis connects to addr and checks the connection.
func DialRedis(ctx context.Context, addr string) (*goredis.Client, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

// Key returns the Redis key of a learner's snapshot.
func Key(learnerID int64) string {
	return KeyPrefix + ":" + strconv.FormatInt(learnerID, 10)
}

func (s *RedisStore) Load(ctx context.Context, learnerID int64) ([]models.VocabularyItem, error) {
	raw, err := s.rdb.Get(ctx, Key(learnerID)).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load snapshot: %w", err)
	}
	return Decode(raw, "")
}

func (s *RedisStore) Save(ctx context.Context, learnerID int64, items []models.VocabularyItem) error {
	raw, err := Encode(items)
	if err != nil {
		return err
	}
	if err := s.rdb.Set(ctx, Key(learnerID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}
