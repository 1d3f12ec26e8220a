package templates

import (
	"sync"
	"testing"
)

func TestRendererRender(t *testing.T) {
	var r Renderer
	out, err := r.Render("greet", "Hello {{.Name}}", map[string]string{"Name": "Wanjiru"})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if out != "Hello Wanjiru" {
		t.Fatalf("unexpected output %q", out)
	}
	if _, err := r.Render("bad", "Hello {{.Missing}}", map[string]string{"Name": "x"}); err == nil {
		t.Fatalf("expected error for missing key")
	}
	if _, err := r.Render("empty", "", nil); err == nil {
		t.Fatalf("expected error for empty template")
	}
	if _, err := r.Render("broken", "{{if}}", nil); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestRendererCachesParsedTemplates(t *testing.T) {
	var r Renderer
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			out, err := r.Render("listing", "{{.Title}} - {{.Price}}", struct{ Title, Price string }{"Ivy Court", "95,000"})
			if err != nil || out != "Ivy Court - 95,000" {
				t.Errorf("render %d: %q %v", i, out, err)
			}
		}(i)
	}
	wg.Wait()

	if _, err := r.Render("listing", "{{.Title}}", struct{ Title string }{"Other"}); err != nil {
		t.Fatalf("render changed text: %v", err)
	}
	if got := r.cached(); got != 2 {
		t.Fatalf("expected 2 cached templates, got %d", got)
	}
}
