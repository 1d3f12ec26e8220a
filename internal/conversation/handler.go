package conversation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"

	"github.com/go-chi/chi/v5"

	"github.com/wolfman30/property-match-ai/internal/dialogue"
	"github.com/wolfman30/property-match-ai/pkg/logging"
)

// DefaultMaxMessageChars bounds inbound message text.
const DefaultMaxMessageChars = 2000

// Handler wires HTTP requests to the conversation engine.
type Handler struct {
	service         Service
	logger          *logging.Logger
	maxMessageChars int
}

// NewHandler creates a conversation handler. A non-positive maxMessageChars
// uses DefaultMaxMessageChars.
func NewHandler(service Service, maxMessageChars int, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	if maxMessageChars <= 0 {
		maxMessageChars = DefaultMaxMessageChars
	}
	return &Handler{
		service:         service,
		logger:          logger,
		maxMessageChars: maxMessageChars,
	}
}

type messageBody struct {
	UserID     string               `json:"user_id"`
	Message    string               `json:"message"`
	ToolResult *dialogue.ToolResult `json:"tool_result,omitempty"`
}

// Start handles POST /conversations/start.
func (h *Handler) Start(w http.ResponseWriter, r *http.Request) {
	var req StartRequest
	if err := h.decode(r, &req); err != nil && !errors.Is(err, io.EOF) {
		h.logger.Warn("failed to decode start request", "error", err)
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.service.StartConversation(r.Context(), req)
	if err != nil {
		h.writeServiceError(w, err, "failed to start conversation")
		return
	}
	h.writeJSON(w, http.StatusCreated, resp)
}

// Message handles POST /conversations/{id}/messages.
func (h *Handler) Message(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var body messageBody
	if err := h.decode(r, &body); err != nil {
		h.logger.Warn("failed to decode message request", "error", err, "conversation_id", id)
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if n := utf8.RuneCountInString(body.Message); n > h.maxMessageChars {
		h.writeError(w, http.StatusBadRequest, fmt.Sprintf("message exceeds %d characters", h.maxMessageChars))
		return
	}

	resp, err := h.service.ProcessMessage(r.Context(), MessageRequest{
		ConversationID: id,
		UserID:         body.UserID,
		Message:        body.Message,
		ToolResult:     body.ToolResult,
	})
	if err != nil {
		h.writeServiceError(w, err, "failed to process message")
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// Complete handles POST /conversations/{id}/complete.
func (h *Handler) Complete(w http.ResponseWriter, r *http.Request) {
	resp, err := h.service.Complete(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err, "failed to complete conversation")
		return
	}
	h.writeJSON(w, http.StatusOK, resp)
}

// Get handles GET /conversations/{id}.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	state, err := h.service.GetState(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err, "failed to load conversation")
		return
	}
	h.writeJSON(w, http.StatusOK, state)
}

// Export handles GET /admin/conversations/{id}/export.
func (h *Handler) Export(w http.ResponseWriter, r *http.Request) {
	record, err := h.service.Export(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeServiceError(w, err, "failed to export conversation")
		return
	}
	h.writeJSON(w, http.StatusOK, record)
}

func (h *Handler) decode(r *http.Request, v any) error {
	// generous envelope for tool results; message length is checked separately
	limit := int64(h.maxMessageChars)*4 + 1<<20
	dec := json.NewDecoder(io.LimitReader(r.Body, limit))
	return dec.Decode(v)
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, ErrConversationNotFound):
		h.writeError(w, http.StatusNotFound, "conversation not found")
	case errors.Is(err, ErrInvalidTransition), errors.Is(err, ErrConversationExists),
		errors.Is(err, ErrStateConflict), errors.Is(err, ErrToolResultApplied):
		h.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrEmptyMessage), errors.Is(err, ErrMissingConversationID):
		h.writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error(msg, "error", err)
		h.writeError(w, http.StatusInternalServerError, msg)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, msg string) {
	h.writeJSON(w, status, map[string]string{"error": strings.TrimPrefix(msg, "conversation: ")})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}
