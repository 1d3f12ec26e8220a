package leads

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wolfman30/property-match-ai/internal/dialogue"
	"github.com/wolfman30/property-match-ai/pkg/logging"
)

func qualifiedState(id string, score int) *dialogue.ConversationState {
	s := dialogue.NewConversationState(id, "user-"+id, time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC))
	s.Facts.Merge(dialogue.Extract("3 bedroom house in Karen under 250k"))
	s.Phase = dialogue.PhaseDealClosure
	s.QualificationScore = score
	s.AddSignals([]dialogue.BuyingSignal{dialogue.SignalViewingRequest, dialogue.SignalViewingRequest, dialogue.SignalTimelineDiscussion})
	return s
}

func TestRequestFromState(t *testing.T) {
	req := RequestFromState(qualifiedState("c1", 85))

	assert.Equal(t, "c1", req.ConversationID)
	assert.Equal(t, "user-c1", req.UserID)
	assert.Equal(t, 85, req.Score)
	assert.Equal(t, "deal_closure", req.Phase)
	assert.Equal(t, []string{"viewing_request", "timeline_discussion"}, req.Signals)
	require.NotNil(t, req.Facts.Location)
	assert.Equal(t, "Karen", *req.Facts.Location)
}

func TestCaptureRequest_Validate(t *testing.T) {
	assert.ErrorIs(t, (&CaptureRequest{}).Validate(), ErrMissingConversationID)
	assert.ErrorIs(t, (&CaptureRequest{ConversationID: "c", Score: 101}).Validate(), ErrScoreOutOfRange)
	assert.NoError(t, (&CaptureRequest{ConversationID: "c", Score: 100}).Validate())
}

func TestInMemoryRepository_UpsertIsKeyedByConversation(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryRepository()

	first, err := repo.Upsert(ctx, RequestFromState(qualifiedState("c1", 75)))
	require.NoError(t, err)
	assert.NotEmpty(t, first.ID)

	second, err := repo.Upsert(ctx, RequestFromState(qualifiedState("c1", 90)))
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, 90, second.Score)
	assert.Equal(t, first.CreatedAt, second.CreatedAt)

	got, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 90, got.Score)

	got.Signals[0] = "mutated"
	again, err := repo.GetByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "viewing_request", again.Signals[0])

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrLeadNotFound)

	_, err = repo.Upsert(ctx, &CaptureRequest{})
	assert.ErrorIs(t, err, ErrMissingConversationID)
}

func TestInMemoryRepository_List(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryRepository()
	base := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)
	tick := 0
	repo.now = func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Minute)
	}

	for i, score := range []int{70, 40, 95} {
		_, err := repo.Upsert(ctx, RequestFromState(qualifiedState(string(rune('a'+i)), score)))
		require.NoError(t, err)
	}

	all, err := repo.List(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"c", "b", "a"}, []string{all[0].ConversationID, all[1].ConversationID, all[2].ConversationID})

	hot, err := repo.List(ctx, ListFilter{MinScore: 70})
	require.NoError(t, err)
	require.Len(t, hot, 2)
	assert.Equal(t, "c", hot[0].ConversationID)

	page, err := repo.List(ctx, ListFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "b", page[0].ConversationID)

	empty, err := repo.List(ctx, ListFilter{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestService_CaptureQualified(t *testing.T) {
	ctx := context.Background()
	repo := NewInMemoryRepository()
	svc := NewService(repo, logging.Default())

	require.NoError(t, svc.CaptureQualified(ctx, qualifiedState("c1", 80)))
	require.NoError(t, svc.CaptureQualified(ctx, qualifiedState("c1", 85)))

	leads, err := repo.List(ctx, ListFilter{})
	require.NoError(t, err)
	require.Len(t, leads, 1)
	assert.Equal(t, 85, leads[0].Score)

	assert.ErrorIs(t, svc.CaptureQualified(ctx, nil), ErrMissingConversationID)
}
