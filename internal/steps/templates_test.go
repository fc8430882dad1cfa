package steps

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
)

func TestParseFrontMatter(t *testing.T) {
	tests := []struct {
		name     string
		src      string
		wantVars map[string]interface{}
		wantBody string
	}{
		{
			name:     "no front matter",
			src:      "<p>hi</p>",
			wantVars: map[string]interface{}{},
			wantBody: "<p>hi</p>",
		},
		{
			name:     "yaml block",
			src:      "---\ntemplate: main\ntitle: Hello\n---\n<p>hi</p>",
			wantVars: map[string]interface{}{"template": "main", "title": "Hello"},
			wantBody: "<p>hi</p>",
		},
		{
			name:     "windows line endings",
			src:      "---\r\ntitle: Hi\r\n---\r\nbody",
			wantVars: map[string]interface{}{"title": "Hi"},
			wantBody: "body",
		},
		{
			name:     "unterminated block is body",
			src:      "---\ntitle: x\n<p>",
			wantVars: map[string]interface{}{},
			wantBody: "---\ntitle: x\n<p>",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			page, err := ParseFrontMatter(tt.src)
			if err != nil {
				t.Fatalf("ParseFrontMatter() error = %v", err)
			}
			if page.Body != tt.wantBody {
				t.Errorf("Body = %q, want %q", page.Body, tt.wantBody)
			}
			if len(page.Vars) != len(tt.wantVars) {
				t.Fatalf("Vars = %v, want %v", page.Vars, tt.wantVars)
			}
			for k, v := range tt.wantVars {
				if page.Vars[k] != v {
					t.Errorf("Vars[%s] = %v, want %v", k, page.Vars[k], v)
				}
			}
		})
	}
}

func TestParseFrontMatter_InvalidYAML(t *testing.T) {
	if _, err := ParseFrontMatter("---\n: : :\n  - [\n---\nbody"); err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestRenderer_Render(t *testing.T) {
	dir := t.TempDir()
	templates := filepath.Join(dir, "templates")
	partials := filepath.Join(dir, "partials")
	writeFile(t, filepath.Join(templates, "main.html"), `<html><title>{{.title}}</title><body>{{partial "nav"}}{{.Contents}}</body></html>`)
	writeFile(t, filepath.Join(partials, "nav.html"), `<nav>{{.title}}</nav>`)
	writeFile(t, filepath.Join(partials, "footer.htm"), `<footer/>`)

	r, err := LoadRenderer(templates, partials)
	if err != nil {
		t.Fatalf("LoadRenderer() error = %v", err)
	}

	out, err := r.Render("slide.html", "---\ntemplate: main.html\ntitle: Intro\n---\n<p>body</p>{{partial \"footer\"}}")
	if err != nil {
		t.Fatalf("Render() error = %v", err)
	}
	want := `<html><title>Intro</title><body><nav>Intro</nav><p>body</p><footer/></body></html>`
	if out != want {
		t.Errorf("Render() = %q\nwant %q", out, want)
	}

	plain, err := r.Render("plain.html", "<p>{{partial \"footer\"}}</p>")
	if err != nil || plain != "<p><footer/></p>" {
		t.Errorf("Render(plain) = %q, %v", plain, err)
	}
}

func TestRenderer_Errors(t *testing.T) {
	r, err := LoadRenderer(filepath.Join(t.TempDir(), "none"), filepath.Join(t.TempDir(), "none"))
	if err != nil {
		t.Fatalf("LoadRenderer() with missing dirs error = %v", err)
	}
	if _, err := r.Render("x.html", "---\ntemplate: missing\n---\nbody"); err == nil || !strings.Contains(err.Error(), "unknown template") {
		t.Errorf("Render(missing template) error = %v", err)
	}
	if _, err := r.Render("x.html", `{{partial "ghost"}}`); err == nil {
		t.Error("Render(missing partial) should fail")
	}
}

func TestTemplatesAction(t *testing.T) {
	env := testEnv(t)
	writeFile(t, filepath.Join(env.TemplatesPath(), "layout.html"), "<main>{{.Contents}}</main>")
	writeFile(t, filepath.Join(env.SourcePath(), "intro", "intro.html"), "---\ntemplate: layout\n---\nhello")
	writeFile(t, filepath.Join(env.SourcePath(), "intro", "popup.htm"), "raw")

	if err := New(Deps{}).Templates(context.Background(), env, 3); err != nil {
		t.Fatalf("Templates() error = %v", err)
	}
	if got := readFile(t, filepath.Join(env.OutputPath(), "intro", "intro.html")); got != "<main>hello</main>" {
		t.Errorf("intro.html = %q", got)
	}
	if got := readFile(t, filepath.Join(env.OutputPath(), "intro", "popup.htm")); got != "raw" {
		t.Errorf("popup.htm = %q", got)
	}
}
