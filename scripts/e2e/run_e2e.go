// Package main runs end-to-end scenarios against a running API server started
// with TOOL_QUEUE=none, acting as both the buyer and the tool backend.
//
// Scenarios:
//   - Rental search through info gathering, results and a viewing request
//   - Direct viewing request that captures a lead
//   - Surveyor request routed to the surveyor tool
//   - Validation of empty and oversized messages
//
// Usage:
//
//	ADMIN_JWT_SECRET=... API_BASE_URL=... go run scripts/e2e/run_e2e.go [scenario-name]
//	ADMIN_JWT_SECRET=... API_BASE_URL=... go run scripts/e2e/run_e2e.go rental-search
package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wolfman30/property-match-ai/internal/conversation"
	"github.com/wolfman30/property-match-ai/internal/dialogue"
	httpmiddleware "github.com/wolfman30/property-match-ai/internal/http/middleware"
	"github.com/wolfman30/property-match-ai/internal/leads"
)

var (
	apiBase    string
	adminToken string
	client     = &http.Client{Timeout: 15 * time.Second}
)

type scenario struct {
	Name string
	Fn   func(t *T)
}

// T is a lightweight test context for a single scenario.
type T struct {
	passed int
	failed int
	name   string
}

func (t *T) check(name string, ok bool) {
	if ok {
		fmt.Printf("    PASS: %s\n", name)
		t.passed++
	} else {
		fmt.Printf("    FAIL: %s\n", name)
		t.failed++
	}
}

func (t *T) fatalf(format string, args ...any) {
	fmt.Printf("    FATAL: "+format+"\n", args...)
	t.failed++
}

func call(method, path string, body any, token string) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return 0, nil, err
		}
		reader = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, apiBase+path, reader)
	if err != nil {
		return 0, nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := client.Do(req)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()
	out, err := io.ReadAll(resp.Body)
	return resp.StatusCode, out, err
}

func start(t *T) string {
	id := "e2e-" + uuid.NewString()
	status, body, err := call(http.MethodPost, "/conversations/start", conversation.StartRequest{ConversationID: id, UserID: "e2e-buyer"}, "")
	if err != nil || status != http.StatusCreated {
		t.fatalf("start conversation: status=%d err=%v body=%s", status, err, body)
		return ""
	}
	return id
}

func send(t *T, id string, payload map[string]any) *conversation.Response {
	status, body, err := call(http.MethodPost, "/conversations/"+id+"/messages", payload, "")
	if err != nil || status != http.StatusOK {
		t.fatalf("send %v: status=%d err=%v body=%s", payload, status, err, body)
		return nil
	}
	var resp conversation.Response
	if err := json.Unmarshal(body, &resp); err != nil {
		t.fatalf("decode reply: %v", err)
		return nil
	}
	fmt.Printf("    buyer: %v\n    agent [%s]: %s\n", payload["message"], resp.Phase, resp.Message)
	return &resp
}

func say(t *T, id, text string) *conversation.Response {
	return send(t, id, map[string]any{"message": text})
}

func leadFor(t *T, id string) *leads.Lead {
	if adminToken == "" {
		return nil
	}
	status, body, err := call(http.MethodGet, "/admin/leads?limit=100", nil, adminToken)
	if err != nil || status != http.StatusOK {
		t.fatalf("list leads: status=%d err=%v", status, err)
		return nil
	}
	var list leads.ListLeadsResponse
	if err := json.Unmarshal(body, &list); err != nil {
		t.fatalf("decode leads: %v", err)
		return nil
	}
	for _, lead := range list.Leads {
		if lead.ConversationID == id {
			return lead
		}
	}
	return nil
}

func rentalSearch(t *T) {
	id := start(t)
	if id == "" {
		return
	}
	if r := say(t, id, "Hi there"); r != nil {
		t.check("greeting moves to intent detection", r.Phase == dialogue.PhaseIntentDetection)
	}
	r := say(t, id, "I'm looking to rent a 2 bedroom apartment in Kilimani")
	if r == nil {
		return
	}
	t.check("missing budget keeps gathering info", r.Phase == dialogue.PhaseInfoGathering)
	t.check("agent asks about budget", strings.Contains(strings.ToLower(r.Message), "budget"))

	r = say(t, id, "Under 90k please")
	if r == nil {
		return
	}
	t.check("complete facts trigger a search", r.Phase == dialogue.PhaseSearchExecution)
	t.check("one search_properties call emitted", len(r.ToolCalls) == 1 && r.ToolCalls[0].Tool == dialogue.ToolSearchProperties)
	if len(r.ToolCalls) == 0 {
		return
	}

	r = send(t, id, map[string]any{"tool_result": dialogue.ToolResult{
		Tool:   dialogue.ToolSearchProperties,
		CallID: r.ToolCalls[0].ID,
		Properties: []dialogue.Property{
			{ID: "e2e-1", Title: "Kilimani Garden Apartments", Price: "85000", Location: "Kilimani", Bedrooms: 2, PropertyType: "apartment"},
		},
	}})
	if r == nil {
		return
	}
	t.check("results are presented", r.Phase == dialogue.PhaseResultsPresentation)
	t.check("listing title appears in reply", strings.Contains(r.Message, "Kilimani Garden Apartments"))

	r = say(t, id, "Can I schedule a viewing this weekend?")
	if r == nil {
		return
	}
	t.check("viewing request closes the deal", r.Phase == dialogue.PhaseDealClosure && r.ReadyToClose)
	if adminToken != "" {
		t.check("lead captured", leadFor(t, id) != nil)
	}
}

func directViewing(t *T) {
	id := start(t)
	if id == "" {
		return
	}
	say(t, id, "Hello")
	r := say(t, id, "When can I see the property?")
	if r == nil {
		return
	}
	t.check("viewing intent jumps to deal closure", r.Phase == dialogue.PhaseDealClosure)
	status, _, err := call(http.MethodPost, "/conversations/"+id+"/complete", nil, "")
	t.check("conversation completes", err == nil && status == http.StatusOK)
}

func surveyor(t *T) {
	id := start(t)
	if id == "" {
		return
	}
	say(t, id, "Hi")
	r := say(t, id, "Can you arrange a surveyor to inspect my plot?")
	if r == nil {
		return
	}
	t.check("surveyor tool requested", len(r.ToolCalls) == 1 && r.ToolCalls[0].Tool == dialogue.ToolRequestSurveyor)
}

func validation(t *T) {
	id := start(t)
	if id == "" {
		return
	}
	status, _, err := call(http.MethodPost, "/conversations/"+id+"/messages", map[string]any{"message": "   "}, "")
	t.check("blank message rejected", err == nil && status == http.StatusBadRequest)
	status, _, err = call(http.MethodPost, "/conversations/"+id+"/messages", map[string]any{"message": strings.Repeat("a", 10000)}, "")
	t.check("oversized message rejected", err == nil && status == http.StatusBadRequest)
	status, _, err = call(http.MethodPost, "/conversations/start", conversation.StartRequest{ConversationID: id}, "")
	t.check("duplicate start conflicts", err == nil && status == http.StatusConflict)
}

func main() {
	apiBase = strings.TrimRight(os.Getenv("API_BASE_URL"), "/")
	if apiBase == "" {
		apiBase = "http://localhost:8080"
	}
	if secret := os.Getenv("ADMIN_JWT_SECRET"); secret != "" {
		token, err := httpmiddleware.IssueAdminToken(secret, "e2e@propertymatch.local", 10*time.Minute)
		if err != nil {
			fmt.Printf("issue admin token: %v\n", err)
			os.Exit(1)
		}
		adminToken = token
	}

	scenarios := []scenario{
		{"rental-search", rentalSearch},
		{"direct-viewing", directViewing},
		{"surveyor", surveyor},
		{"validation", validation},
	}
	filter := ""
	if len(os.Args) > 1 {
		filter = os.Args[1]
	}

	var passed, failed int
	for _, s := range scenarios {
		if filter != "" && s.Name != filter {
			continue
		}
		fmt.Printf("\n=== %s ===\n", s.Name)
		t := &T{name: s.Name}
		s.Fn(t)
		passed += t.passed
		failed += t.failed
	}

	fmt.Printf("\n%d passed, %d failed\n", passed, failed)
	if failed > 0 {
		os.Exit(1)
	}
}
