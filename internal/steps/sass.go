package steps

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ShayCichocki/velveeva/internal/build"
)

// Sass compiles every stylesheet of each slide, and of the global includes,
// into the slide's build folder. Partials (names starting with "_") are only
// imported, never compiled on their own.
func (s *Steps) Sass(ctx context.Context, env *build.Environment, _ int) error {
	slides, err := slideDirs(env.SourcePath())
	if err != nil {
		return err
	}

	type job struct{ in, out string }
	var jobs []job

	globals, err := stylesheets(env.GlobalsPath())
	if err != nil {
		return err
	}
	for _, name := range slides {
		dstRoot := filepath.Join(env.OutputPath(), name)
		for _, rel := range globals {
			jobs = append(jobs, job{in: filepath.Join(env.GlobalsPath(), rel), out: cssPath(dstRoot, rel)})
		}

		srcRoot := filepath.Join(env.SourcePath(), name)
		local, err := stylesheets(srcRoot)
		if err != nil {
			return err
		}
		for _, rel := range local {
			jobs = append(jobs, job{in: filepath.Join(srcRoot, rel), out: cssPath(dstRoot, rel)})
		}
	}

	if len(jobs) == 0 {
		return nil
	}
	if env.Tools.Sass == "" {
		return fmt.Errorf("no sass command configured for %d stylesheets", len(jobs))
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.deps.Workers)
	for _, j := range jobs {
		g.Go(func() error {
			if err := os.MkdirAll(filepath.Dir(j.out), 0755); err != nil {
				return err
			}
			cmd := build.ExpandCommand(env.Tools.Sass, env, map[string]string{"in": j.in, "out": j.out})
			out, err := s.deps.Runner.RunShell(gctx, env.Root, cmd)
			if err != nil {
				return fmt.Errorf("sass %s: %w: %s", j.in, err, strings.TrimSpace(string(out)))
			}
			return nil
		})
	}
	return g.Wait()
}

// stylesheets returns compilable .scss/.sass files under root relative to it.
func stylesheets(root string) ([]string, error) {
	if _, err := os.Stat(root); os.IsNotExist(err) {
		return nil, nil
	}
	files, err := walkFiles(root, ".scss", ".sass")
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	var rels []string
	for _, f := range files {
		if strings.HasPrefix(filepath.Base(f), "_") {
			continue
		}
		rel, err := filepath.Rel(root, f)
		if err != nil {
			return nil, err
		}
		rels = append(rels, rel)
	}
	return rels, nil
}

func cssPath(root, rel string) string {
	return filepath.Join(root, strings.TrimSuffix(rel, filepath.Ext(rel))+".css")
}
