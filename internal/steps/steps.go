// Package steps holds the concrete build actions and the compiled-in task
// and goal tables that bind them to the planner.
package steps

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ShayCichocki/velveeva/internal/build"
	iexec "github.com/ShayCichocki/velveeva/internal/exec"
)

// Deps are the collaborators shared by the actions.
type Deps struct {
	// Runner executes external tools (sass, screenshots).
	Runner iexec.CommandRunner
	// Dial opens publish connections.
	Dial Dialer
	// Workers bounds per-action concurrency, e.g. how many slides are zipped at once.
	Workers int
	// Ignore filters files out of copies and packages.
	Ignore *Ignore
}

func (d Deps) withDefaults() Deps {
	if d.Runner == nil {
		d.Runner = iexec.NewRunner()
	}
	if d.Dial == nil {
		d.Dial = DialFTP
	}
	if d.Workers < 1 {
		d.Workers = build.DefaultWorkers
	}
	if d.Ignore == nil {
		d.Ignore = DefaultIgnore()
	}
	return d
}

// slideDirs lists the slide folder names directly under dir, skipping
// folders that start with "_" or ".".
func slideDirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", dir, err)
	}
	var names []string
	for _, e := range entries {
		if !e.IsDir() || e.Name()[0] == '_' || e.Name()[0] == '.' {
			continue
		}
		names = append(names, e.Name())
	}
	sort.Strings(names)
	return names, nil
}

// builtSlideDirs lists the slide folders of the build output, leaving out
// the zips and control file directories wherever they are configured.
func builtSlideDirs(env *build.Environment) ([]string, error) {
	names, err := slideDirs(env.OutputPath())
	if err != nil {
		return nil, err
	}
	skip := make(map[string]bool)
	for _, d := range []string{env.Dirs.ZipsDir, env.Dirs.CtlsDir} {
		if top := topDir(d); top != "" {
			skip[top] = true
		}
	}
	out := names[:0]
	for _, n := range names {
		if !skip[n] {
			out = append(out, n)
		}
	}
	return out, nil
}

// topDir returns the first element of a relative directory path.
func topDir(dir string) string {
	clean := filepath.ToSlash(filepath.Clean(dir))
	if clean == "." || clean == "" {
		return ""
	}
	return strings.SplitN(clean, "/", 2)[0]
}

// copyTree copies src into dst, creating directories as needed. skip is
// consulted with each path relative to src; matching files and directories
// are not copied.
func copyTree(src, dst string, skip func(rel string, d fs.DirEntry) bool) error {
	return filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		if rel != "." && skip != nil && skip(filepath.ToSlash(rel), d) {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		target := filepath.Join(dst, rel)
		if d.IsDir() {
			return os.MkdirAll(target, 0755)
		}
		return copyFile(p, target)
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Chtimes(dst, info.ModTime(), info.ModTime())
}

// walkFiles returns files under root whose names have one of exts.
func walkFiles(root string, exts ...string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != root && d.Name()[0] == '_' && filepath.Dir(p) == root {
				return filepath.SkipDir
			}
			return nil
		}
		ext := filepath.Ext(p)
		for _, e := range exts {
			if ext == e {
				files = append(files, p)
				break
			}
		}
		return nil
	})
	return files, err
}
