package steps

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	"go.yaml.in/yaml/v3"

	"github.com/ShayCichocki/velveeva/internal/build"
)

const frontMatterDelim = "---"

// Page is a slide HTML file split into front matter and body.
type Page struct {
	Vars map[string]interface{}
	Body string
}

// ParseFrontMatter splits an optional YAML block delimited by "---" lines
// from the start of src.
func ParseFrontMatter(src string) (Page, error) {
	normalized := strings.ReplaceAll(src, "\r\n", "\n")
	if !strings.HasPrefix(normalized, frontMatterDelim+"\n") {
		return Page{Vars: map[string]interface{}{}, Body: src}, nil
	}

	rest := normalized[len(frontMatterDelim)+1:]
	end := strings.Index(rest, "\n"+frontMatterDelim+"\n")
	if end < 0 {
		return Page{Vars: map[string]interface{}{}, Body: src}, nil
	}

	vars := map[string]interface{}{}
	if err := yaml.Unmarshal([]byte(rest[:end]), &vars); err != nil {
		return Page{}, fmt.Errorf("front matter: %w", err)
	}
	if vars == nil {
		vars = map[string]interface{}{}
	}
	return Page{Vars: vars, Body: rest[end+len(frontMatterDelim)+2:]}, nil
}

// Renderer renders slide pages with layouts and partials.
type Renderer struct {
	layouts  map[string]string
	partials map[string]string
}

// LoadRenderer reads the *.htm* files of the layout and partial directories.
// Missing directories are treated as empty.
func LoadRenderer(templatesDir, partialsDir string) (*Renderer, error) {
	layouts, err := loadHTMLFiles(templatesDir)
	if err != nil {
		return nil, err
	}
	partials, err := loadHTMLFiles(partialsDir)
	if err != nil {
		return nil, err
	}
	return &Renderer{layouts: layouts, partials: partials}, nil
}

func loadHTMLFiles(dir string) (map[string]string, error) {
	out := map[string]string{}
	matches, err := filepath.Glob(filepath.Join(dir, "*.htm*"))
	if err != nil {
		return nil, err
	}
	for _, m := range matches {
		data, err := os.ReadFile(m)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", m, err)
		}
		out[filepath.Base(m)] = string(data)
	}
	return out, nil
}

// lookup finds name exactly or with an .html/.htm extension added.
func lookup(files map[string]string, name string) (string, bool) {
	for _, candidate := range []string{name, name + ".html", name + ".htm"} {
		if src, ok := files[candidate]; ok {
			return src, true
		}
	}
	return "", false
}

// Render renders one page. When the front matter names a template, the
// rendered body is passed to that layout as .Contents.
func (r *Renderer) Render(name, src string) (string, error) {
	page, err := ParseFrontMatter(src)
	if err != nil {
		return "", fmt.Errorf("%s: %w", name, err)
	}
	data := page.Vars

	body, err := r.execute(name, page.Body, data)
	if err != nil {
		return "", err
	}

	layoutName, _ := data["template"].(string)
	if layoutName == "" {
		return body, nil
	}
	layout, ok := lookup(r.layouts, layoutName)
	if !ok {
		return "", fmt.Errorf("%s: unknown template %q", name, layoutName)
	}
	data["Contents"] = body
	return r.execute(layoutName, layout, data)
}

func (r *Renderer) execute(name, src string, data map[string]interface{}) (string, error) {
	var depth int
	var partial func(string) (string, error)
	funcs := template.FuncMap{}
	partial = func(p string) (string, error) {
		psrc, ok := lookup(r.partials, p)
		if !ok {
			return "", fmt.Errorf("unknown partial %q", p)
		}
		depth++
		defer func() { depth-- }()
		if depth > 16 {
			return "", fmt.Errorf("partial %q nested too deeply", p)
		}
		t, err := template.New(p).Funcs(funcs).Parse(psrc)
		if err != nil {
			return "", err
		}
		var buf bytes.Buffer
		if err := t.Execute(&buf, data); err != nil {
			return "", err
		}
		return buf.String(), nil
	}
	funcs["partial"] = partial

	t, err := template.New(name).Funcs(funcs).Parse(src)
	if err != nil {
		return "", fmt.Errorf("parse %s: %w", name, err)
	}
	var buf bytes.Buffer
	if err := t.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

// Templates renders the top-level HTML files of every slide into the build.
func (s *Steps) Templates(_ context.Context, env *build.Environment, _ int) error {
	r, err := LoadRenderer(env.TemplatesPath(), env.PartialsPath())
	if err != nil {
		return err
	}
	slides, err := slideDirs(env.SourcePath())
	if err != nil {
		return err
	}

	for _, name := range slides {
		files, err := filepath.Glob(filepath.Join(env.SourcePath(), name, "*.htm*"))
		if err != nil {
			return err
		}
		dst := filepath.Join(env.OutputPath(), name)
		if err := os.MkdirAll(dst, 0755); err != nil {
			return err
		}
		for _, f := range files {
			src, err := os.ReadFile(f)
			if err != nil {
				return err
			}
			out, err := r.Render(filepath.Base(f), string(src))
			if err != nil {
				return fmt.Errorf("slide %s: %w", name, err)
			}
			if err := os.WriteFile(filepath.Join(dst, filepath.Base(f)), []byte(out), 0644); err != nil {
				return err
			}
		}
	}
	return nil
}
