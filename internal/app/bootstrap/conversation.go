package bootstrap

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/service/sqs"

	appconfig "github.com/wolfman30/property-match-ai/internal/config"
	"github.com/wolfman30/property-match-ai/internal/conversation"
	"github.com/wolfman30/property-match-ai/internal/leads"
	"github.com/wolfman30/property-match-ai/internal/observability/metrics"
	"github.com/wolfman30/property-match-ai/pkg/logging"
)

// SQSClient is the slice of the SQS API the tool queues need.
type SQSClient interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

// ToolQueues holds the two halves of the tool round trip. Either may be nil
// when the process does not use it.
type ToolQueues struct {
	Requests conversation.Queue
	Results  conversation.Queue
}

// BuildToolQueues returns the SQS-backed tool queues when TOOL_QUEUE=sqs and
// an empty ToolQueues otherwise; in that mode tool calls only travel in HTTP
// responses.
func BuildToolQueues(cfg *appconfig.Config, client SQSClient) (ToolQueues, error) {
	if cfg == nil {
		return ToolQueues{}, fmt.Errorf("bootstrap: config is required")
	}
	switch cfg.ToolQueue {
	case "", "none":
		return ToolQueues{}, nil
	case "sqs":
	default:
		return ToolQueues{}, fmt.Errorf("bootstrap: unsupported TOOL_QUEUE %q", cfg.ToolQueue)
	}
	if client == nil {
		return ToolQueues{}, fmt.Errorf("bootstrap: sqs client is required")
	}

	var queues ToolQueues
	if url := strings.TrimSpace(cfg.ToolRequestQueueURL); url != "" {
		queues.Requests = conversation.NewSQSQueue(client, url)
	}
	if url := strings.TrimSpace(cfg.ToolResultQueueURL); url != "" {
		queues.Results = conversation.NewSQSQueue(client, url)
	}
	if queues.Requests == nil && queues.Results == nil {
		return ToolQueues{}, fmt.Errorf("bootstrap: TOOL_QUEUE=sqs needs TOOL_REQUEST_QUEUE_URL or TOOL_RESULT_QUEUE_URL")
	}
	return queues, nil
}

// EngineDeps are the collaborators BuildEngine wires into the engine.
type EngineDeps struct {
	Store    conversation.Store
	Leads    leads.Repository
	Metrics  *metrics.DialogueMetrics
	Requests conversation.Queue
}

// BuildEngine assembles the dialogue engine with lead capture, metrics and,
// when a request queue is present, tool call publishing.
func BuildEngine(deps EngineDeps, logger *logging.Logger) (*conversation.Engine, error) {
	if deps.Store == nil {
		return nil, fmt.Errorf("bootstrap: conversation store is required")
	}
	if logger == nil {
		logger = logging.Default()
	}

	var opts []conversation.EngineOption
	if deps.Leads != nil {
		opts = append(opts, conversation.WithLeadRecorder(leads.NewService(deps.Leads, logger)))
		logger.Info("lead capture wired into dialogue engine")
	}
	if deps.Metrics != nil {
		opts = append(opts, conversation.WithMetrics(deps.Metrics))
	}
	if deps.Requests != nil {
		opts = append(opts, conversation.WithToolPublisher(conversation.NewPublisher(deps.Requests, logger)))
		logger.Info("tool calls will be published to the request queue")
	}
	return conversation.NewEngine(deps.Store, conversation.NewTemplateResponder(), logger, opts...), nil
}
