package templates

import (
	"bytes"
	"fmt"
	"sync"
	"text/template"
)

// Renderer renders the small text templates behind assistant replies. Parsed
// templates are cached by name and text, so the zero value is ready to use and
// safe for concurrent callers.
type Renderer struct {
	mu    sync.RWMutex
	cache map[string]*template.Template
}

// Render compiles the provided template text with strict missing-key semantics.
func (r *Renderer) Render(name, tmpl string, data any) (string, error) {
	if tmpl == "" {
		return "", fmt.Errorf("templates: template text required")
	}
	t, err := r.lookup(name, tmpl)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("templates: execute: %w", err)
	}
	return buf.String(), nil
}

func (r *Renderer) lookup(name, tmpl string) (*template.Template, error) {
	key := name + "\x00" + tmpl

	r.mu.RLock()
	t, ok := r.cache[key]
	r.mu.RUnlock()
	if ok {
		return t, nil
	}

	t, err := template.New(name).Option("missingkey=error").Parse(tmpl)
	if err != nil {
		return nil, fmt.Errorf("templates: parse: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.cache == nil {
		r.cache = make(map[string]*template.Template)
	}
	r.cache[key] = t
	return t, nil
}

func (r *Renderer) cached() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.cache)
}
