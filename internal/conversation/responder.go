package conversation

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/wolfman30/property-match-ai/internal/dialogue"
	"github.com/wolfman30/property-match-ai/internal/messaging/templates"
)

// Responder turns a response plan into outgoing text.
type Responder interface {
	Respond(ctx context.Context, plan dialogue.ResponsePlan) (string, error)
}

// TemplateResponder renders plans from a fixed category to template table.
type TemplateResponder struct {
	renderer  templates.Renderer
	templates map[dialogue.Category]string
	questions map[string]string
	objection map[string]string
}

const descriptionPreview = 100

var defaultTemplates = map[dialogue.Category]string{
	dialogue.CategoryGreeting:      "Hello! Welcome to Property Match, your AI property matchmaker. I'm here to help you find your perfect property. What brings you here today?",
	dialogue.CategoryClarifyIntent: "I'm here to help! Are you looking to buy or rent a property? Or do you need help with something else?",
	dialogue.CategoryAskMissing:    "{{.Question}}",
	dialogue.CategorySearching:     "{{if eq .Tool \"request_surveyor\"}}Let me find a qualified surveyor for you...{{else if eq .Tool \"tenant_assistant\"}}Let me look into that for you...{{else}}Let me search for the perfect properties for you...{{end}}",
	dialogue.CategoryAwaitResults:  "I'm still pulling the latest listings together. I'll share them as soon as they're in!",
	dialogue.CategoryNoResults: "I couldn't find exact matches right now. But don't worry! " +
		"Would you like to broaden the location or adjust the budget range? " +
		"I can also let you know when new properties that match your needs become available.",
	dialogue.CategoryPresentation: `Great news! I found {{len .Properties}} properties that match your needs!
{{range $i, $p := .Properties}}{{if $i}}
---{{end}}
{{$p.Title}} - {{$p.Price}}
{{$p.Location}} | {{$p.Bedrooms}}BR | {{$p.PropertyType}}
{{$p.Summary}}{{if $p.ExactMatch}}
Perfect match: exactly {{$p.Bedrooms}} bedrooms as you wanted!{{end}}
{{end}}
Which one catches your eye? I can show you more details!`,
	dialogue.CategoryFollowUp: "Would you like more details on any of these, or shall I refine the search?",
	dialogue.CategoryDetails: "{{with .Featured}}Here's more on {{.Title}} in {{.Location}}: {{.Bedrooms}}BR {{.PropertyType}} at {{.Price}}. {{.Summary}} " +
		"Would you like to arrange a viewing?{{else}}Which property would you like to know more about? Share its name or id and I'll pull up the details.{{end}}",
	dialogue.CategoryObjection: "{{.Objection}}",
	dialogue.CategoryCloser: "{{with .Featured}}This property ticks all your boxes! Properties like this in {{.Location}} get booked quickly. " +
		"Would you like to schedule a viewing? I have slots available Tuesday and Thursday this week. Which works better for you?" +
		"{{else}}I can tell you're interested! Let's make this happen. When would you like to view the property? I can arrange it for as soon as tomorrow!{{end}}",
	dialogue.CategoryCompleted: "You're all set! Your viewing request is confirmed and an agent will be in touch shortly.",
	dialogue.CategoryFallback:  "I'm here to help! What would you like to know?",
}

var defaultQuestions = map[string]string{
	dialogue.FactLocation:     "Where would you love to live?",
	dialogue.FactBudgetMax:    "What's your budget range? This helps me show you the best matches!",
	dialogue.FactPropertyType: "Are you looking for an apartment, house, villa, or something else?",
	"bedrooms":                "How many bedrooms do you need?",
	"transaction_type":        "Are you looking to buy or rent?",
}

var defaultObjections = map[string]string{
	dialogue.ObjectionPrice: "I understand your concern about the price. Properties in this area hold their value well " +
		"and similar listings are often priced higher. Would you like to see comparable properties in the area?",
	dialogue.ObjectionThinking: "I completely understand, this is a big decision! Can I ask what specifically you're considering? " +
		"That way I can give you the information you need. Is it the location, the price, or something else?",
	dialogue.ObjectionMoreOptions: "Of course! Let me pull up a few more similar options. The first property we looked at really stands out, " +
		"but it's worth comparing.",
	dialogue.ObjectionGeneral: "I hear you. What would help you make a decision?",
}

// NewTemplateResponder returns a responder with the built-in templates.
func NewTemplateResponder() *TemplateResponder {
	return &TemplateResponder{
		templates: defaultTemplates,
		questions: defaultQuestions,
		objection: defaultObjections,
	}
}

type propertyView struct {
	Title        string
	Price        string
	Location     string
	Bedrooms     string
	PropertyType string
	Summary      string
	ExactMatch   bool
}

type responseData struct {
	Question   string
	Objection  string
	Tool       string
	Properties []propertyView
	Featured   *propertyView
}

// Respond renders the template for the plan's category.
func (r *TemplateResponder) Respond(_ context.Context, plan dialogue.ResponsePlan) (string, error) {
	tmpl, ok := r.templates[plan.Category]
	if !ok {
		tmpl = r.templates[dialogue.CategoryFallback]
	}

	data := responseData{
		Question:  r.question(plan.MissingField),
		Objection: r.objectionReply(plan.ObjectionKind),
	}
	if len(plan.ToolCalls) > 0 {
		data.Tool = plan.ToolCalls[0].Tool
	}
	for _, p := range plan.Properties {
		data.Properties = append(data.Properties, viewOf(p, plan.Facts.Bedrooms))
	}
	if plan.Featured != nil {
		v := viewOf(*plan.Featured, plan.Facts.Bedrooms)
		data.Featured = &v
	}

	out, err := r.renderer.Render(string(plan.Category), tmpl, data)
	if err != nil {
		return "", fmt.Errorf("conversation: render %s: %w", plan.Category, err)
	}
	return strings.TrimSpace(out), nil
}

func (r *TemplateResponder) question(field string) string {
	if field == "" {
		return ""
	}
	if q, ok := r.questions[field]; ok {
		return q
	}
	return fmt.Sprintf("Could you tell me more about your %s?", strings.ReplaceAll(field, "_", " "))
}

func (r *TemplateResponder) objectionReply(kind string) string {
	if q, ok := r.objection[kind]; ok {
		return q
	}
	return r.objection[dialogue.ObjectionGeneral]
}

func viewOf(p dialogue.Property, wantBedrooms *int) propertyView {
	v := propertyView{
		Title:        orDefault(p.Title, "Property"),
		Price:        orDefault(string(p.Price), "N/A"),
		Location:     orDefault(p.Location, "N/A"),
		Bedrooms:     "?",
		PropertyType: orDefault(p.PropertyType, "Property"),
		Summary:      preview(p.Description),
	}
	if p.Bedrooms > 0 {
		v.Bedrooms = fmt.Sprintf("%d", p.Bedrooms)
	}
	v.ExactMatch = wantBedrooms != nil && *wantBedrooms > 0 && p.Bedrooms == *wantBedrooms
	return v
}

func preview(desc string) string {
	desc = strings.TrimSpace(desc)
	if desc == "" {
		return ""
	}
	if utf8.RuneCountInString(desc) <= descriptionPreview {
		return desc
	}
	runes := []rune(desc)
	return string(runes[:descriptionPreview]) + "..."
}

func orDefault(v, fallback string) string {
	if strings.TrimSpace(v) == "" {
		return fallback
	}
	return v
}
