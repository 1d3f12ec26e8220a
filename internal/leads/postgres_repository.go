package leads

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB abstracts the pgx query interface so pgxpool and pgxmock both fit.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresRepository stores leads in the relational database.
type PostgresRepository struct {
	db DB
}

// NewPostgresRepository initializes a repo backed by a pgx pool.
func NewPostgresRepository(db DB) *PostgresRepository {
	if db == nil {
		panic("leads: pgx pool required")
	}
	return &PostgresRepository{db: db}
}

const leadColumns = `id, conversation_id, user_id, score, phase, facts, signals, created_at, updated_at`

// Upsert inserts a row, or refreshes the existing one for the conversation.
func (r *PostgresRepository) Upsert(ctx context.Context, req *CaptureRequest) (*Lead, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	facts, err := json.Marshal(req.Facts)
	if err != nil {
		return nil, fmt.Errorf("leads: encode facts: %w", err)
	}
	signals := req.Signals
	if signals == nil {
		signals = []string{}
	}

	query := `
		INSERT INTO leads (id, conversation_id, user_id, score, phase, facts, signals)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (conversation_id) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			score = EXCLUDED.score,
			phase = EXCLUDED.phase,
			facts = EXCLUDED.facts,
			signals = EXCLUDED.signals,
			updated_at = now()
		RETURNING id, created_at, updated_at
	`
	lead := &Lead{
		ConversationID: req.ConversationID,
		UserID:         req.UserID,
		Score:          req.Score,
		Phase:          req.Phase,
		Facts:          req.Facts.Clone(),
		Signals:        append([]string(nil), signals...),
	}
	if err := r.db.QueryRow(ctx, query,
		uuid.New().String(),
		req.ConversationID,
		req.UserID,
		req.Score,
		req.Phase,
		facts,
		signals,
	).Scan(&lead.ID, &lead.CreatedAt, &lead.UpdatedAt); err != nil {
		return nil, fmt.Errorf("leads: upsert failed: %w", err)
	}
	return lead, nil
}

// GetByID fetches a single lead.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE id = $1`
	lead, err := scanLead(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLeadNotFound
		}
		return nil, fmt.Errorf("leads: select failed: %w", err)
	}
	return lead, nil
}

// List returns leads at or above filter.MinScore, newest first.
func (r *PostgresRepository) List(ctx context.Context, filter ListFilter) ([]*Lead, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 50
	}
	query := `SELECT ` + leadColumns + `
		FROM leads
		WHERE score >= $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, filter.MinScore, limit, filter.Offset)
	if err != nil {
		return nil, fmt.Errorf("leads: list failed: %w", err)
	}
	defer rows.Close()

	out := []*Lead{}
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("leads: scan failed: %w", err)
		}
		out = append(out, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("leads: list failed: %w", err)
	}
	return out, nil
}

func scanLead(row pgx.Row) (*Lead, error) {
	var (
		lead  Lead
		facts []byte
	)
	if err := row.Scan(
		&lead.ID,
		&lead.ConversationID,
		&lead.UserID,
		&lead.Score,
		&lead.Phase,
		&facts,
		&lead.Signals,
		&lead.CreatedAt,
		&lead.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(facts) > 0 {
		if err := json.Unmarshal(facts, &lead.Facts); err != nil {
			return nil, fmt.Errorf("decode facts: %w", err)
		}
	}
	if lead.Signals == nil {
		lead.Signals = []string{}
	}
	return &lead, nil
}
