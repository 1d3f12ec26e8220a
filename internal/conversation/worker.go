package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/wolfman30/property-match-ai/internal/dialogue"
	"github.com/wolfman30/property-match-ai/pkg/logging"
)

// ReplySink receives the engine's reply to a tool result so it can be
// delivered to the user's channel.
type ReplySink interface {
	Deliver(ctx context.Context, resp *Response) error
}

// ResultDeduper remembers tool calls whose results were already applied so a
// redelivered message is acknowledged without loading the conversation. The
// engine still rejects a repeated call id under the conversation lock.
type ResultDeduper interface {
	AlreadyProcessed(ctx context.Context, source, key string) (bool, error)
	MarkProcessed(ctx context.Context, source, key string) (bool, error)
}

// dedupeSource namespaces tool result keys in the deduper.
const dedupeSource = "tool_result"

// Worker consumes tool results and feeds them back into the engine as turns.
type Worker struct {
	processor Service
	queue     Queue
	replies   ReplySink
	dedupe    ResultDeduper
	logger    *logging.Logger

	cfg workerConfig
	wg  sync.WaitGroup
}

type workerConfig struct {
	workers          int
	receiveWaitSecs  int
	receiveBatchSize int
	replies          ReplySink
	dedupe           ResultDeduper
}

const (
	defaultWorkerCount   = 2
	defaultWaitSeconds   = 2
	defaultBatchSize     = 5
	maxWaitSeconds       = 20
	maxReceiveBatchSize  = 10
	deleteTimeoutSeconds = 5
	maxReceiveBackoff    = 5 * time.Second
)

// WorkerOption customizes worker behavior.
type WorkerOption func(*workerConfig)

// WithWorkerCount sets the number of concurrent consumer goroutines.
func WithWorkerCount(count int) WorkerOption {
	return func(cfg *workerConfig) {
		if count > 0 {
			cfg.workers = count
		}
	}
}

// WithReceiveWaitSeconds sets the long-poll wait duration.
func WithReceiveWaitSeconds(seconds int) WorkerOption {
	return func(cfg *workerConfig) {
		if seconds < 0 {
			return
		}
		if seconds > maxWaitSeconds {
			seconds = maxWaitSeconds
		}
		cfg.receiveWaitSecs = seconds
	}
}

// WithReceiveBatchSize sets how many messages to fetch per poll.
func WithReceiveBatchSize(size int) WorkerOption {
	return func(cfg *workerConfig) {
		if size <= 0 {
			return
		}
		if size > maxReceiveBatchSize {
			size = maxReceiveBatchSize
		}
		cfg.receiveBatchSize = size
	}
}

// WithReplySink wires delivery of the replies produced by tool results.
func WithReplySink(sink ReplySink) WorkerOption {
	return func(cfg *workerConfig) {
		cfg.replies = sink
	}
}

// WithResultDeduper skips tool results whose call id was already applied.
func WithResultDeduper(d ResultDeduper) WorkerOption {
	return func(cfg *workerConfig) {
		cfg.dedupe = d
	}
}

// NewWorker constructs a tool-result consumer around the provided processor.
func NewWorker(processor Service, queue Queue, logger *logging.Logger, opts ...WorkerOption) *Worker {
	if processor == nil {
		panic("conversation: processor cannot be nil")
	}
	if queue == nil {
		panic("conversation: queue cannot be nil")
	}
	if logger == nil {
		logger = logging.Default()
	}

	cfg := workerConfig{
		workers:          defaultWorkerCount,
		receiveWaitSecs:  defaultWaitSeconds,
		receiveBatchSize: defaultBatchSize,
	}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &Worker{
		processor: processor,
		queue:     queue,
		replies:   cfg.replies,
		dedupe:    cfg.dedupe,
		logger:    logger,
		cfg:       cfg,
	}
}

// Start launches worker goroutines until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	for i := 0; i < w.cfg.workers; i++ {
		w.wg.Add(1)
		go w.run(ctx, i+1)
	}
}

// Wait blocks until all worker goroutines exit.
func (w *Worker) Wait() {
	w.wg.Wait()
}

func (w *Worker) run(ctx context.Context, workerID int) {
	defer w.wg.Done()
	w.logger.Debug("tool result worker started", "worker_id", workerID)

	backoff := time.Second
	for {
		select {
		case <-ctx.Done():
			w.logger.Debug("tool result worker stopping", "worker_id", workerID)
			return
		default:
		}

		messages, err := w.queue.Receive(ctx, w.cfg.receiveBatchSize, w.cfg.receiveWaitSecs)
		if err != nil {
			if errors.Is(err, context.Canceled) || ctx.Err() != nil {
				return
			}
			w.logger.Error("failed to receive tool results", "error", err, "worker_id", workerID)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
			}
			if backoff < maxReceiveBackoff {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		for _, msg := range messages {
			w.handleMessage(ctx, msg)
		}
	}
}

func (w *Worker) handleMessage(ctx context.Context, msg QueueMessage) {
	var payload ToolResultMessage
	if err := json.Unmarshal([]byte(msg.Body), &payload); err != nil {
		w.logger.Error("failed to decode tool result", "error", err, "msg_id", msg.ID)
		w.deleteMessage(context.Background(), msg.ReceiptHandle)
		return
	}
	if payload.ConversationID == "" {
		w.logger.Error("dropping tool result without conversation id", "msg_id", msg.ID, "call_id", payload.CallID)
		w.deleteMessage(context.Background(), msg.ReceiptHandle)
		return
	}

	if w.dedupe != nil && payload.CallID != "" {
		seen, err := w.dedupe.AlreadyProcessed(ctx, dedupeSource, payload.CallID)
		if err != nil {
			w.logger.Error("failed to check tool result history", "error", err, "call_id", payload.CallID)
			return
		}
		if seen {
			w.logger.Info("skipping duplicate tool result", "msg_id", msg.ID, "call_id", payload.CallID)
			w.deleteMessage(context.Background(), msg.ReceiptHandle)
			return
		}
	}

	w.logger.Info("worker processing tool result",
		"msg_id", msg.ID,
		"conversation_id", payload.ConversationID,
		"call_id", payload.CallID,
		"tool", payload.Tool,
		"properties", len(payload.Properties),
	)

	resp, err := w.processor.ProcessMessage(ctx, MessageRequest{
		ConversationID: payload.ConversationID,
		UserID:         payload.UserID,
		ToolResult: &dialogue.ToolResult{
			Tool:       payload.Tool,
			CallID:     payload.CallID,
			Properties: payload.Properties,
		},
	})
	if errors.Is(err, ErrToolResultApplied) {
		w.logger.Info("skipping duplicate tool result", "msg_id", msg.ID, "call_id", payload.CallID)
		w.markProcessed(ctx, payload.CallID)
		w.deleteMessage(context.Background(), msg.ReceiptHandle)
		return
	}
	if err != nil {
		// left on the queue so it is redelivered after the visibility timeout
		w.logger.Error("tool result processing failed", "error", err, "conversation_id", payload.ConversationID, "call_id", payload.CallID)
		return
	}

	w.markProcessed(ctx, payload.CallID)

	if w.replies != nil {
		if err := w.replies.Deliver(ctx, resp); err != nil {
			w.logger.Warn("failed to deliver reply", "error", err, "conversation_id", resp.ConversationID)
		}
	}
	w.deleteMessage(context.Background(), msg.ReceiptHandle)
}

func (w *Worker) markProcessed(ctx context.Context, callID string) {
	if w.dedupe == nil || callID == "" {
		return
	}
	if _, err := w.dedupe.MarkProcessed(ctx, dedupeSource, callID); err != nil {
		w.logger.Warn("failed to record tool result", "error", err, "call_id", callID)
	}
}

func (w *Worker) deleteMessage(ctx context.Context, receiptHandle string) {
	if receiptHandle == "" {
		return
	}
	deleteCtx, cancel := context.WithTimeout(ctx, deleteTimeoutSeconds*time.Second)
	defer cancel()

	if err := w.queue.Delete(deleteCtx, receiptHandle); err != nil {
		w.logger.Error("failed to delete tool result", "error", err)
	}
}

// LogReplySink writes replies to the structured log. It stands in for a
// channel adapter when the worker runs without one.
type LogReplySink struct {
	logger *logging.Logger
}

// NewLogReplySink creates a sink that logs each reply.
func NewLogReplySink(logger *logging.Logger) *LogReplySink {
	if logger == nil {
		logger = logging.Default()
	}
	return &LogReplySink{logger: logger}
}

// Deliver logs the reply.
func (s *LogReplySink) Deliver(_ context.Context, resp *Response) error {
	if resp == nil {
		return nil
	}
	s.logger.Info("assistant reply",
		"conversation_id", resp.ConversationID,
		"phase", resp.Phase,
		"ready_to_close", resp.ReadyToClose,
		"message", resp.Message,
	)
	return nil
}
