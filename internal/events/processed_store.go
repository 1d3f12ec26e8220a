package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// SourceToolResult keys tool results by the id of the call they answer.
const SourceToolResult = "tool_result"

type rowQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// ProcessedStore records queue events that were already applied, in Postgres.
type ProcessedStore struct {
	db rowQuerier
}

// NewProcessedStore accepts a pgxpool.Pool or anything with the same query methods.
func NewProcessedStore(db rowQuerier) *ProcessedStore {
	if db == nil {
		panic("events: pgx pool required")
	}
	return &ProcessedStore{db: db}
}

// AlreadyProcessed checks if we've seen this event key for the source.
func (s *ProcessedStore) AlreadyProcessed(ctx context.Context, source, key string) (bool, error) {
	query := `SELECT 1 FROM processed_events WHERE source = $1 AND event_key = $2`
	var exists int
	if err := s.db.QueryRow(ctx, query, source, key).Scan(&exists); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("events: check processed: %w", err)
	}
	return true, nil
}

// MarkProcessed inserts an event key for the source, returning false if it already exists.
func (s *ProcessedStore) MarkProcessed(ctx context.Context, source, key string) (bool, error) {
	query := `
		INSERT INTO processed_events (source, event_key)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`
	ct, err := s.db.Exec(ctx, query, source, key)
	if err != nil {
		return false, fmt.Errorf("events: mark processed: %w", err)
	}
	return ct.RowsAffected() > 0, nil
}

// MemoryProcessedStore is the single-process variant used without a database.
type MemoryProcessedStore struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

func NewMemoryProcessedStore() *MemoryProcessedStore {
	return &MemoryProcessedStore{seen: make(map[string]struct{})}
}

func (s *MemoryProcessedStore) AlreadyProcessed(_ context.Context, source, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.seen[source+"\x00"+key]
	return ok, nil
}

func (s *MemoryProcessedStore) MarkProcessed(_ context.Context, source, key string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := source + "\x00" + key
	if _, ok := s.seen[k]; ok {
		return false, nil
	}
	s.seen[k] = struct{}{}
	return true, nil
}
