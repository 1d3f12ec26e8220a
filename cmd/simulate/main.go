// Command simulate runs a scripted buyer conversation through the full tool
// round trip in one process: engine, request queue, a catalog-backed tool
// backend, result queue and worker.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"

	"github.com/wolfman30/property-match-ai/internal/app/bootstrap"
	appconfig "github.com/wolfman30/property-match-ai/internal/config"
	"github.com/wolfman30/property-match-ai/internal/conversation"
	"github.com/wolfman30/property-match-ai/internal/dialogue"
	"github.com/wolfman30/property-match-ai/internal/events"
	"github.com/wolfman30/property-match-ai/internal/leads"
	"github.com/wolfman30/property-match-ai/pkg/logging"
)

var defaultScript = []string{
	"Hello",
	"I'm looking to rent a 2 bedroom apartment in Kilimani",
	"My budget is under 90k",
	"Can I schedule a viewing this weekend?",
}

func main() {
	_ = godotenv.Load()
	cfg := appconfig.Load()

	timeout := flag.Duration("reply-timeout", 5*time.Second, "how long to wait for a tool result to come back")
	flag.Parse()

	script := defaultScript
	if flag.NArg() > 0 {
		script = flag.Args()
	}

	logger := logging.NewWithWriter(cfg.LogLevel, "text", os.Stderr)
	result, err := run(context.Background(), script, os.Stdout, logger, *timeout)
	if err != nil {
		logger.Error("simulation failed", "error", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stdout, "\nfinal phase: %s, score: %d, leads captured: %d\n",
		result.State.Phase, result.State.QualificationScore, len(result.Leads))
}

// simulation is what a run leaves behind.
type simulation struct {
	State *dialogue.ConversationState
	Leads []*leads.Lead
}

// transcript serializes writes from the main loop and the worker's reply sink.
type transcript struct {
	mu      sync.Mutex
	out     io.Writer
	replies chan struct{}
}

func (t *transcript) printf(format string, args ...any) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.out, format, args...)
}

func (t *transcript) Deliver(_ context.Context, resp *conversation.Response) error {
	t.printf("agent [%s]: %s\n", resp.Phase, resp.Message)
	select {
	case t.replies <- struct{}{}:
	default:
	}
	return nil
}

func run(ctx context.Context, script []string, out io.Writer, logger *logging.Logger, replyTimeout time.Duration) (*simulation, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	requests := conversation.NewMemoryQueue(16)
	results := conversation.NewMemoryQueue(16)
	store := conversation.NewMemoryStore()
	repo := leads.NewInMemoryRepository()

	engine, err := bootstrap.BuildEngine(bootstrap.EngineDeps{
		Store:    store,
		Leads:    repo,
		Requests: requests,
	}, logger)
	if err != nil {
		return nil, err
	}

	log := &transcript{out: out, replies: make(chan struct{}, 1)}
	backend := &toolBackend{
		requests: requests,
		results:  conversation.NewResultPublisher(results),
		catalog:  demoCatalog(),
		logger:   logger,
	}
	worker := conversation.NewWorker(engine, results, logger,
		conversation.WithWorkerCount(1),
		conversation.WithReceiveWaitSeconds(1),
		conversation.WithReplySink(log),
		conversation.WithResultDeduper(events.NewMemoryProcessedStore()),
	)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		backend.run(ctx)
	}()
	worker.Start(ctx)
	defer func() {
		cancel()
		worker.Wait()
		wg.Wait()
	}()

	const conversationID = "simulated-buyer"
	start, err := engine.StartConversation(ctx, conversation.StartRequest{ConversationID: conversationID, UserID: "demo-user"})
	if err != nil {
		return nil, err
	}
	log.printf("agent [%s]: %s\n", start.Phase, start.Message)

	for _, line := range script {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		log.printf("buyer: %s\n", line)
		resp, err := engine.ProcessMessage(ctx, conversation.MessageRequest{ConversationID: conversationID, Message: line})
		if err != nil {
			return nil, fmt.Errorf("process %q: %w", line, err)
		}
		log.printf("agent [%s]: %s\n", resp.Phase, resp.Message)

		if len(resp.ToolCalls) == 0 {
			continue
		}
		select {
		case <-log.replies:
		case <-time.After(replyTimeout):
			return nil, fmt.Errorf("no tool result within %s", replyTimeout)
		}
	}

	state, err := engine.GetState(ctx, conversationID)
	if err != nil {
		return nil, err
	}
	captured, err := repo.List(ctx, leads.ListFilter{})
	if err != nil {
		return nil, err
	}
	return &simulation{State: state, Leads: captured}, nil
}
