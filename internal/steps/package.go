package steps

import (
	"archive/zip"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"github.com/ShayCichocki/velveeva/internal/build"
)

// Package zips every slide folder of the build into the zips directory.
// Each archive holds the folder itself, so x.zip contains x/x.html.
func (s *Steps) Package(ctx context.Context, env *build.Environment, _ int) error {
	slides, err := builtSlideDirs(env)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(env.ZipsPath(), 0755); err != nil {
		return fmt.Errorf("create %s: %w", env.ZipsPath(), err)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.deps.Workers)
	for _, name := range slides {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			dst := filepath.Join(env.ZipsPath(), name+".zip")
			return ZipDir(filepath.Join(env.OutputPath(), name), dst, s.deps.Ignore)
		})
	}
	return g.Wait()
}

// ZipDir writes dir to dst with entries prefixed by dir's base name.
func ZipDir(dir, dst string, ignore *Ignore) (err error) {
	f, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s: %w", dst, err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	zw := zip.NewWriter(f)
	base := filepath.Base(dir)
	walkErr := filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}
		if ignore.Match(filepath.ToSlash(rel)) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			return nil
		}

		info, err := d.Info()
		if err != nil {
			return err
		}
		hdr, err := zip.FileInfoHeader(info)
		if err != nil {
			return err
		}
		hdr.Name = filepath.ToSlash(filepath.Join(base, rel))
		hdr.Method = zip.Deflate

		w, err := zw.CreateHeader(hdr)
		if err != nil {
			return err
		}
		in, err := os.Open(p)
		if err != nil {
			return err
		}
		defer in.Close()
		_, err = io.Copy(w, in)
		return err
	})
	if walkErr != nil {
		zw.Close()
		return fmt.Errorf("zip %s: %w", dir, walkErr)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("zip %s: %w", dir, err)
	}
	return nil
}
