package leads

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Repository defines the interface for lead storage
type Repository interface {
	// Upsert records the lead for a conversation, refreshing it when the
	// conversation was captured before.
	Upsert(ctx context.Context, req *CaptureRequest) (*Lead, error)
	GetByID(ctx context.Context, id string) (*Lead, error)
	List(ctx context.Context, filter ListFilter) ([]*Lead, error)
}

// InMemoryRepository implements Repository for local runs and tests
type InMemoryRepository struct {
	mu             sync.RWMutex
	leads          map[string]*Lead
	byConversation map[string]string
	now            func() time.Time
}

// NewInMemoryRepository creates a new in-memory repository
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		leads:          make(map[string]*Lead),
		byConversation: make(map[string]string),
		now:            func() time.Time { return time.Now().UTC() },
	}
}

// Upsert stores or refreshes the lead keyed by conversation id
func (r *InMemoryRepository) Upsert(ctx context.Context, req *CaptureRequest) (*Lead, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if id, ok := r.byConversation[req.ConversationID]; ok {
		lead := r.leads[id]
		lead.UserID = req.UserID
		lead.Score = req.Score
		lead.Phase = req.Phase
		lead.Facts = req.Facts.Clone()
		lead.Signals = append([]string(nil), req.Signals...)
		lead.UpdatedAt = now
		return copyLead(lead), nil
	}

	lead := &Lead{
		ID:             uuid.New().String(),
		ConversationID: req.ConversationID,
		UserID:         req.UserID,
		Score:          req.Score,
		Phase:          req.Phase,
		Facts:          req.Facts.Clone(),
		Signals:        append([]string(nil), req.Signals...),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	r.leads[lead.ID] = lead
	r.byConversation[lead.ConversationID] = lead.ID
	return copyLead(lead), nil
}

// GetByID retrieves a lead by ID
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	lead, ok := r.leads[id]
	if !ok {
		return nil, ErrLeadNotFound
	}
	return copyLead(lead), nil
}

// List returns leads at or above filter.MinScore, newest first
func (r *InMemoryRepository) List(ctx context.Context, filter ListFilter) ([]*Lead, error) {
	r.mu.RLock()
	matched := make([]*Lead, 0, len(r.leads))
	for _, lead := range r.leads {
		if lead.Score >= filter.MinScore {
			matched = append(matched, copyLead(lead))
		}
	}
	r.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	if filter.Offset >= len(matched) {
		return []*Lead{}, nil
	}
	matched = matched[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}

func copyLead(l *Lead) *Lead {
	out := *l
	out.Facts = l.Facts.Clone()
	out.Signals = append([]string(nil), l.Signals...)
	return &out
}
