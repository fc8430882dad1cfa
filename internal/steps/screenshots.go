package steps

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/ShayCichocki/velveeva/internal/build"
	"github.com/ShayCichocki/velveeva/internal/slide"
)

// Screenshots renders every HTML slide of the build at each configured
// size. The image for size s of slide x is written to x/x<s.Suffix>.
func (s *Steps) Screenshots(ctx context.Context, env *build.Environment, _ int) error {
	if env.Tools.Screenshot == "" {
		return fmt.Errorf("no screenshot command configured")
	}
	slides, err := slide.Discover(env.OutputPath())
	if err != nil {
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.deps.Workers)
	for _, sl := range slides {
		if !sl.IsHTML() {
			continue
		}
		for _, size := range env.Screenshots {
			out := filepath.Join(sl.Dir, sl.Name+size.Suffix)
			vars := map[string]string{
				"in":     sl.Main,
				"url":    "file://" + filepath.ToSlash(sl.Main),
				"out":    out,
				"width":  strconv.Itoa(size.Width),
				"height": strconv.Itoa(size.Height),
				"name":   size.Name,
			}
			g.Go(func() error {
				cmd := build.ExpandCommand(env.Tools.Screenshot, env, vars)
				output, err := s.deps.Runner.RunShell(gctx, env.Root, cmd)
				if err != nil {
					return fmt.Errorf("screenshot %s (%s): %w: %s", sl.Name, size.Name, err, strings.TrimSpace(string(output)))
				}
				return nil
			})
		}
	}
	return g.Wait()
}
