package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Sternrassler/group-roster-client/pkg/logging"
	"github.com/Sternrassler/group-roster-client/pkg/roster"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// DefaultTTL is how long an unfinished run stays resumable.
const DefaultTTL = 24 * time.Hour

// ErrInvalidSnapshot indicates the stored snapshot could not be decoded.
var ErrInvalidSnapshot = errors.New("invalid checkpoint snapshot")

// Store persists roster snapshots in Redis.
type Store struct {
	redis  *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

var _ roster.Checkpointer = (*Store)(nil)

// NewStore creates a checkpoint store. A ttl <= 0 selects DefaultTTL.
func NewStore(redisClient *redis.Client, ttl time.Duration) *Store {
	if redisClient == nil {
		panic("redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{
		redis:  redisClient,
		ttl:    ttl,
		logger: logging.NewLogger(logging.ComponentCheckpoint),
	}
}

// TTL returns the snapshot expiry.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// Load returns the snapshot for groupID, or nil, nil if there is none.
func (s *Store) Load(ctx context.Context, groupID string) (*roster.Snapshot, error) {
	key := Key{GroupID: groupID}.String()
	data, err := s.redis.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			Operations.WithLabelValues("load", "miss").Inc()
			s.logger.Debug().Str("key", key).Msg("No checkpoint")
			return nil, nil
		}
		Operations.WithLabelValues("load", "error").Inc()
		s.logger.Debug().Err(err).Str("key", key).Msg("Checkpoint load failed")
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var snap roster.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		Operations.WithLabelValues("load", "error").Inc()
		s.logger.Debug().Err(err).Str("key", key).Msg("Checkpoint undecodable")
		return nil, fmt.Errorf("%w: %v", ErrInvalidSnapshot, err)
	}

	Operations.WithLabelValues("load", "hit").Inc()
	s.logger.Debug().Str("key", key).Int("members", len(snap.Members)).Msg("Checkpoint loaded")
	return &snap, nil
}

// Save stores snap for groupID, replacing any previous snapshot and resetting its TTL.
func (s *Store) Save(ctx context.Context, groupID string, snap roster.Snapshot) error {
	if snap.SavedAt.IsZero() {
		snap.SavedAt = time.Now()
	}
	if snap.Members == nil {
		snap.Members = []roster.Member{}
	}

	data, err := json.Marshal(snap)
	if err != nil {
		Operations.WithLabelValues("save", "error").Inc()
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	key := Key{GroupID: groupID}.String()
	if err := s.redis.Set(ctx, key, data, s.ttl).Err(); err != nil {
		Operations.WithLabelValues("save", "error").Inc()
		s.logger.Debug().Err(err).Str("key", key).Msg("Checkpoint save failed")
		return fmt.Errorf("redis set: %w", err)
	}

	Operations.WithLabelValues("save", "ok").Inc()
	s.logger.Debug().
		Str("key", key).
		Str("cursor", snap.Cursor).
		Int("members", len(snap.Members)).
		Dur("ttl", s.ttl).
		Msg("Checkpoint saved")
	return nil
}

// Delete removes the snapshot for groupID. Deleting a missing snapshot is not an error.
func (s *Store) Delete(ctx context.Context, groupID string) error {
	key := Key{GroupID: groupID}.String()
	if err := s.redis.Del(ctx, key).Err(); err != nil {
		Operations.WithLabelValues("delete", "error").Inc()
		s.logger.Debug().Err(err).Str("key", key).Msg("Checkpoint delete failed")
		return fmt.Errorf("redis del: %w", err)
	}

	Operations.WithLabelValues("delete", "ok").Inc()
	s.logger.Debug().Str("key", key).Msg("Checkpoint deleted")
	return nil
}
