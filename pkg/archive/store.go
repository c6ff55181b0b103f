// Package archive keeps finished matches in Redis so they can be looked up
// after they leave the live registry.
package archive

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/tecu23/pairing-server/pkg/game"
)

// ErrNotFound is returned for unknown or expired matches
var ErrNotFound = errors.New("archived match not found")

const (
	keyPrefix  = "match:"
	keyRecent  = "matches:recent"
	recentSize = 100
)

// Record is the stored form of a finished match
type Record struct {
	game.Summary
	PGN string `json:"pgn"`
}

// Store persists finished matches
type Store struct {
	rdb    *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewStore wraps an existing client. A zero ttl keeps records forever.
func NewStore(rdb *redis.Client, ttl time.Duration, logger *zap.Logger) *Store {
	return &Store{rdb: rdb, ttl: ttl, logger: logger}
}

// Open connects to redisURL and checks the connection
func Open(ctx context.Context, redisURL string, ttl time.Duration, logger *zap.Logger) (*Store, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, errors.New("redis url is required")
	}

	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return NewStore(rdb, ttl, logger), nil
}

func keyMatch(id string) string { return keyPrefix + strings.TrimSpace(id) }

// Save stores a finished match and indexes it as recent
func (s *Store) Save(ctx context.Context, summary game.Summary) (Record, error) {
	rec := Record{Summary: summary, PGN: BuildPGN(summary)}

	raw, err := json.Marshal(rec)
	if err != nil {
		return Record{}, err
	}

	pipe := s.rdb.TxPipeline()
	pipe.Set(ctx, keyMatch(summary.ID), raw, s.ttl)
	pipe.LPush(ctx, keyRecent, summary.ID)
	pipe.LTrim(ctx, keyRecent, 0, recentSize-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return Record{}, fmt.Errorf("save match %s: %w", summary.ID, err)
	}

	return rec, nil
}

// Get loads a finished match
func (s *Store) Get(ctx context.Context, id string) (Record, error) {
	raw, err := s.rdb.Get(ctx, keyMatch(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Record{}, ErrNotFound
	}
	if err != nil {
		return Record{}, err
	}

	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return Record{}, fmt.Errorf("decode match %s: %w", id, err)
	}

	return rec, nil
}

// Recent returns up to n of the latest finished matches, newest first.
// Expired records are skipped.
func (s *Store) Recent(ctx context.Context, n int) ([]Record, error) {
	if n <= 0 || n > recentSize {
		n = recentSize
	}

	ids, err := s.rdb.LRange(ctx, keyRecent, 0, int64(n-1)).Result()
	if err != nil {
		return nil, err
	}

	out := make([]Record, 0, len(ids))
	for _, id := range ids {
		rec, err := s.Get(ctx, id)
		if errors.Is(err, ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}

	return out, nil
}

// Ping reports whether Redis is reachable
func (s *Store) Ping(ctx context.Context) error {
	return s.rdb.Ping(ctx).Err()
}

// Close releases the client
func (s *Store) Close() error {
	return s.rdb.Close()
}
