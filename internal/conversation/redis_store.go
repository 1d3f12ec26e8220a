package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/wolfman30/property-match-ai/internal/dialogue"
)

// DefaultStateTTL bounds how long an idle conversation is kept in Redis.
const DefaultStateTTL = 24 * time.Hour

// RedisStore keeps one JSON snapshot per conversation.
type RedisStore struct {
	redis  *redis.Client
	ttl    time.Duration
	tracer trace.Tracer
}

// NewRedisStore wraps a redis client. A non-positive ttl uses DefaultStateTTL.
func NewRedisStore(client *redis.Client, ttl time.Duration, tracer trace.Tracer) *RedisStore {
	if client == nil {
		panic("conversation: redis client cannot be nil")
	}
	if ttl <= 0 {
		ttl = DefaultStateTTL
	}
	if tracer == nil {
		tracer = otel.Tracer("propertymatch.internal.conversation.store")
	}
	return &RedisStore{
		redis:  client,
		ttl:    ttl,
		tracer: tracer,
	}
}

// Save commits state under WATCH so a write based on a stale version fails
// with ErrStateConflict instead of overwriting a turn saved by another process.
func (s *RedisStore) Save(ctx context.Context, state *dialogue.ConversationState) error {
	if state == nil || state.ID == "" {
		return fmt.Errorf("conversation: save: %w", ErrMissingConversationID)
	}
	ctx, span := s.tracer.Start(ctx, "conversation.save_state",
		trace.WithAttributes(
			attribute.String("conversation.id", state.ID),
			attribute.Int64("conversation.version", state.Version),
		))
	defer span.End()

	next := *state
	next.Version++
	data, err := json.Marshal(&next)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("conversation: failed to marshal state: %w", err)
	}

	key := stateKey(state.ID)
	err = s.redis.Watch(ctx, func(tx *redis.Tx) error {
		stored, err := storedVersion(ctx, tx, key)
		if err != nil {
			return err
		}
		if stored != state.Version {
			return fmt.Errorf("conversation: save %s at version %d (stored %d): %w", state.ID, state.Version, stored, ErrStateConflict)
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key, data, s.ttl)
			return nil
		})
		return err
	}, key)
	switch {
	case err == nil:
	case errors.Is(err, redis.TxFailedErr):
		return fmt.Errorf("conversation: save %s: %w", state.ID, ErrStateConflict)
	case errors.Is(err, ErrStateConflict):
		return err
	default:
		span.RecordError(err)
		return fmt.Errorf("conversation: failed to persist state: %w", err)
	}

	state.Version = next.Version
	return nil
}

// storedVersion reads the version of the watched snapshot; a missing key is version zero.
func storedVersion(ctx context.Context, tx *redis.Tx, key string) (int64, error) {
	data, err := tx.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	var head struct {
		Version int64 `json:"version"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return 0, fmt.Errorf("conversation: failed to decode stored state: %w", err)
	}
	return head.Version, nil
}

func (s *RedisStore) Get(ctx context.Context, conversationID string) (*dialogue.ConversationState, error) {
	ctx, span := s.tracer.Start(ctx, "conversation.load_state",
		trace.WithAttributes(attribute.String("conversation.id", conversationID)))
	defer span.End()

	data, err := s.redis.Get(ctx, stateKey(conversationID)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrConversationNotFound
		}
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: failed to load state: %w", err)
	}

	var state dialogue.ConversationState
	if err := json.Unmarshal(data, &state); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: failed to decode state: %w", err)
	}
	return &state, nil
}

func stateKey(id string) string {
	return fmt.Sprintf("conversation_state:%s", id)
}
