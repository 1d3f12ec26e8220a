package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/wolfman30/property-match-ai/internal/dialogue"
	"github.com/wolfman30/property-match-ai/pkg/logging"
)

func TestWorkerFeedsToolResultsToEngine(t *testing.T) {
	queue := newScriptedQueue()
	service := &recordingService{}
	sink := &recordingSink{}
	worker := NewWorker(service, queue, logging.Default(),
		WithWorkerCount(1), WithReceiveBatchSize(1), WithReceiveWaitSeconds(0), WithReplySink(sink))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	worker.Start(ctx)

	body, _ := json.Marshal(ToolResultMessage{
		ID:             "res-1",
		ConversationID: "conv-1",
		CallID:         "call-1",
		Tool:           dialogue.ToolSearchProperties,
		Properties:     []dialogue.Property{{ID: "p1"}, {ID: "p2"}},
	})
	queue.enqueue(QueueMessage{ID: "msg-1", Body: string(body), ReceiptHandle: "rh-1"})

	waitFor(func() bool { return sink.count() > 0 }, time.Second, t)
	cancel()
	worker.Wait()

	reqs := service.requests()
	if len(reqs) != 1 {
		t.Fatalf("expected 1 ProcessMessage call, got %d", len(reqs))
	}
	got := reqs[0]
	if got.ConversationID != "conv-1" || got.Message != "" {
		t.Fatalf("unexpected request %#v", got)
	}
	if got.ToolResult == nil || got.ToolResult.CallID != "call-1" || len(got.ToolResult.Properties) != 2 {
		t.Fatalf("unexpected tool result %#v", got.ToolResult)
	}
	if queue.deletedCount() != 1 {
		t.Fatalf("expected delete to be invoked once, got %d", queue.deletedCount())
	}
}

func TestWorkerDropsUndecodableMessages(t *testing.T) {
	queue := newScriptedQueue()
	service := &recordingService{}
	worker := NewWorker(service, queue, logging.Default(), WithWorkerCount(1), WithReceiveWaitSeconds(0))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	worker.Start(ctx)

	queue.enqueue(QueueMessage{ID: "bad", Body: "{", ReceiptHandle: "rh-bad"})
	queue.enqueue(QueueMessage{ID: "orphan", Body: `{"call_id":"c"}`, ReceiptHandle: "rh-orphan"})

	waitFor(func() bool { return queue.deletedCount() == 2 }, time.Second, t)
	cancel()
	worker.Wait()

	if n := len(service.requests()); n != 0 {
		t.Fatalf("expected no engine calls, got %d", n)
	}
}

func TestWorkerLeavesFailedResultsForRedelivery(t *testing.T) {
	queue := newScriptedQueue()
	service := &recordingService{err: errors.New("store unavailable")}
	worker := NewWorker(service, queue, logging.Default(), WithWorkerCount(1), WithReceiveWaitSeconds(0))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	worker.Start(ctx)

	body, _ := json.Marshal(ToolResultMessage{ConversationID: "conv-1", CallID: "call-1"})
	queue.enqueue(QueueMessage{ID: "msg-1", Body: string(body), ReceiptHandle: "rh-1"})

	waitFor(func() bool { return len(service.requests()) == 1 }, time.Second, t)
	cancel()
	worker.Wait()

	if queue.deletedCount() != 0 {
		t.Fatalf("expected failed message to stay on the queue")
	}
}

func TestWorkerSkipsDuplicateToolResults(t *testing.T) {
	queue := newScriptedQueue()
	service := &recordingService{}
	dedupe := &mapDeduper{seen: map[string]bool{}}
	worker := NewWorker(service, queue, logging.Default(),
		WithWorkerCount(1), WithReceiveWaitSeconds(0), WithResultDeduper(dedupe))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	worker.Start(ctx)

	body, _ := json.Marshal(ToolResultMessage{ConversationID: "conv-1", CallID: "call-1"})
	queue.enqueue(QueueMessage{ID: "first", Body: string(body), ReceiptHandle: "rh-1"})
	queue.enqueue(QueueMessage{ID: "redelivered", Body: string(body), ReceiptHandle: "rh-2"})

	waitFor(func() bool { return queue.deletedCount() == 2 }, time.Second, t)
	cancel()
	worker.Wait()

	if n := len(service.requests()); n != 1 {
		t.Fatalf("expected the result to be applied once, got %d", n)
	}
	if !dedupe.has("call-1") {
		t.Fatalf("expected call-1 to be recorded")
	}
}

func TestWorkerWithEngineAndMemoryQueue(t *testing.T) {
	store := NewMemoryStore()
	engine := NewEngine(store, nil, logging.Default())
	queue := NewMemoryQueue(8)
	worker := NewWorker(engine, queue, logging.Default(), WithWorkerCount(2), WithReceiveWaitSeconds(1))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	worker.Start(ctx)

	for _, msg := range []string{"hello", "I'm looking for a 3 bedroom apartment", "In Parklands, under 100k"} {
		if _, err := engine.ProcessMessage(ctx, MessageRequest{ConversationID: "conv-1", Message: msg}); err != nil {
			t.Fatalf("process %q: %v", msg, err)
		}
	}
	before, err := store.Get(ctx, "conv-1")
	if err != nil || before.Phase != dialogue.PhaseSearchExecution {
		t.Fatalf("expected search_execution before the result, got %v (%v)", before, err)
	}

	if err := NewResultPublisher(queue).PublishResult(ctx, ToolResultMessage{
		ConversationID: "conv-1",
		CallID:         "call-1",
		Tool:           dialogue.ToolSearchProperties,
		Properties:     []dialogue.Property{{ID: "p9", Title: "Parklands Court", Location: "Parklands", Bedrooms: 3}},
	}); err != nil {
		t.Fatalf("publish result: %v", err)
	}

	waitFor(func() bool {
		state, err := store.Get(context.Background(), "conv-1")
		return err == nil && state.Phase == dialogue.PhaseResultsPresentation
	}, 2*time.Second, t)
	cancel()
	worker.Wait()

	state, _ := store.Get(context.Background(), "conv-1")
	if len(state.PropertiesShown) != 1 || state.PropertiesShown[0] != "p9" {
		t.Fatalf("expected p9 to be recorded as shown, got %v", state.PropertiesShown)
	}
}

func TestWorkerAcknowledgesResultsTheEngineAlreadyApplied(t *testing.T) {
	store := NewMemoryStore()
	engine := NewEngine(store, nil, logging.Default())
	if _, err := engine.ProcessMessage(context.Background(), MessageRequest{ConversationID: "conv-1", Message: "hello"}); err != nil {
		t.Fatalf("seed conversation: %v", err)
	}

	queue := newScriptedQueue()
	sink := &recordingSink{}
	worker := NewWorker(engine, queue, logging.Default(),
		WithWorkerCount(2), WithReceiveWaitSeconds(0), WithReplySink(sink))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	worker.Start(ctx)

	body, _ := json.Marshal(ToolResultMessage{ConversationID: "conv-1", CallID: "call-1", Tool: dialogue.ToolSearchProperties})
	queue.enqueue(QueueMessage{ID: "first", Body: string(body), ReceiptHandle: "rh-1"})
	queue.enqueue(QueueMessage{ID: "redelivered", Body: string(body), ReceiptHandle: "rh-2"})

	waitFor(func() bool { return queue.deletedCount() == 2 }, 2*time.Second, t)
	cancel()
	worker.Wait()

	if n := sink.count(); n != 1 {
		t.Fatalf("expected one reply, got %d", n)
	}
	state, err := store.Get(context.Background(), "conv-1")
	if err != nil {
		t.Fatalf("load state: %v", err)
	}
	tools := 0
	for _, turn := range state.Turns {
		if turn.Role == dialogue.RoleTool {
			tools++
		}
	}
	if tools != 1 {
		t.Fatalf("expected the result to be applied once, got %d tool turns", tools)
	}
}

func TestWorkerOptionsClamp(t *testing.T) {
	w := NewWorker(&recordingService{}, newScriptedQueue(), nil,
		WithWorkerCount(0), WithReceiveWaitSeconds(99), WithReceiveBatchSize(50))
	if w.cfg.workers != defaultWorkerCount {
		t.Fatalf("expected default worker count, got %d", w.cfg.workers)
	}
	if w.cfg.receiveWaitSecs != maxWaitSeconds {
		t.Fatalf("expected wait clamp to %d, got %d", maxWaitSeconds, w.cfg.receiveWaitSecs)
	}
	if w.cfg.receiveBatchSize != maxReceiveBatchSize {
		t.Fatalf("expected batch clamp to %d, got %d", maxReceiveBatchSize, w.cfg.receiveBatchSize)
	}
}

type recordingService struct {
	mu   sync.Mutex
	reqs []MessageRequest
	err  error
}

func (s *recordingService) StartConversation(context.Context, StartRequest) (*Response, error) {
	return &Response{}, nil
}

func (s *recordingService) ProcessMessage(_ context.Context, req MessageRequest) (*Response, error) {
	s.mu.Lock()
	s.reqs = append(s.reqs, req)
	s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return &Response{ConversationID: req.ConversationID, Phase: dialogue.PhaseResultsPresentation}, nil
}

func (s *recordingService) GetState(context.Context, string) (*dialogue.ConversationState, error) {
	return nil, ErrConversationNotFound
}

func (s *recordingService) Export(context.Context, string) (dialogue.ConversationRecord, error) {
	return dialogue.ConversationRecord{}, ErrConversationNotFound
}

func (s *recordingService) Complete(context.Context, string) (*Response, error) {
	return nil, ErrInvalidTransition
}

func (s *recordingService) requests() []MessageRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]MessageRequest(nil), s.reqs...)
}

type mapDeduper struct {
	mu   sync.Mutex
	seen map[string]bool
}

func (d *mapDeduper) AlreadyProcessed(_ context.Context, source, key string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.seen[source+"/"+key], nil
}

func (d *mapDeduper) MarkProcessed(_ context.Context, source, key string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	k := source + "/" + key
	if d.seen[k] {
		return false, nil
	}
	d.seen[k] = true
	return true, nil
}

func (d *mapDeduper) has(callID string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.seen[dedupeSource+"/"+callID]
}

type recordingSink struct {
	mu    sync.Mutex
	resps []*Response
}

func (s *recordingSink) Deliver(_ context.Context, resp *Response) error {
	s.mu.Lock()
	s.resps = append(s.resps, resp)
	s.mu.Unlock()
	return nil
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.resps)
}

type scriptedQueue struct {
	ch       chan QueueMessage
	delMutex sync.Mutex
	deleted  int
}

func newScriptedQueue() *scriptedQueue {
	return &scriptedQueue{ch: make(chan QueueMessage, 10)}
}

func (s *scriptedQueue) enqueue(msg QueueMessage) {
	s.ch <- msg
}

func (s *scriptedQueue) Send(ctx context.Context, body string) error {
	s.ch <- QueueMessage{Body: body}
	return nil
}

func (s *scriptedQueue) Receive(ctx context.Context, maxMessages int, waitSeconds int) ([]QueueMessage, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case msg := <-s.ch:
		return []QueueMessage{msg}, nil
	}
}

func (s *scriptedQueue) Delete(ctx context.Context, receiptHandle string) error {
	s.delMutex.Lock()
	s.deleted++
	s.delMutex.Unlock()
	return nil
}

func (s *scriptedQueue) deletedCount() int {
	s.delMutex.Lock()
	defer s.delMutex.Unlock()
	return s.deleted
}

func waitFor(cond func() bool, timeout time.Duration, t *testing.T) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("condition not met within %s", timeout)
}
