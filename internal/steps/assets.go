package steps

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/ShayCichocki/velveeva/internal/build"
)

// Globals copies the global includes into every slide of the build.
func (s *Steps) Globals(_ context.Context, env *build.Environment, _ int) error {
	src := env.GlobalsPath()
	if _, err := os.Stat(src); os.IsNotExist(err) {
		return nil
	}

	slides, err := slideDirs(env.SourcePath())
	if err != nil {
		return err
	}
	skip := func(rel string, _ fs.DirEntry) bool { return s.deps.Ignore.Match(rel) }
	for _, name := range slides {
		dst := filepath.Join(env.OutputPath(), name)
		if err := copyTree(src, dst, skip); err != nil {
			return fmt.Errorf("inject globals into %s: %w", name, err)
		}
	}
	return nil
}

// Locals copies each slide's own assets into the build. Top-level HTML
// files are left to the template renderer.
func (s *Steps) Locals(_ context.Context, env *build.Environment, _ int) error {
	slides, err := slideDirs(env.SourcePath())
	if err != nil {
		return err
	}
	skip := func(rel string, d fs.DirEntry) bool {
		if s.deps.Ignore.Match(rel) {
			return true
		}
		return !d.IsDir() && !strings.Contains(rel, "/") && isHTML(rel)
	}
	for _, name := range slides {
		src := filepath.Join(env.SourcePath(), name)
		dst := filepath.Join(env.OutputPath(), name)
		if err := copyTree(src, dst, skip); err != nil {
			return fmt.Errorf("copy assets of %s: %w", name, err)
		}
	}
	return nil
}

func isHTML(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".html" || ext == ".htm"
}
