package steps

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ShayCichocki/velveeva/internal/build"
)

// Nuke removes the output and temp directories.
func Nuke(_ context.Context, env *build.Environment, _ int) error {
	for _, dir := range []string{env.OutputPath(), env.TempPath()} {
		if err := guardRoot(env, dir); err != nil {
			return err
		}
		if err := os.RemoveAll(dir); err != nil {
			return fmt.Errorf("remove %s: %w", dir, err)
		}
	}
	return nil
}

// Scaffold creates the source, output and temp directories.
func Scaffold(_ context.Context, env *build.Environment, _ int) error {
	for _, dir := range []string{env.SourcePath(), env.OutputPath(), env.TempPath()} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create %s: %w", dir, err)
		}
	}
	return nil
}

// guardRoot refuses to delete the project root or the source directory.
func guardRoot(env *build.Environment, dir string) error {
	clean := filepath.Clean(dir)
	for _, protected := range []string{env.Path("."), env.SourcePath()} {
		if clean == filepath.Clean(protected) {
			return fmt.Errorf("refusing to remove %s", dir)
		}
	}
	return nil
}
