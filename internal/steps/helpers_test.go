package steps

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"

	"github.com/ShayCichocki/velveeva/internal/build"
)

// fakeRunner records shell commands and fails those containing failOn.
type fakeRunner struct {
	mu       sync.Mutex
	commands []string
	failOn   string
}

func (f *fakeRunner) Run(ctx context.Context, workDir, name string, args ...string) ([]byte, error) {
	return f.RunShell(ctx, workDir, name+" "+strings.Join(args, " "))
}

func (f *fakeRunner) RunShell(_ context.Context, _ string, command string) ([]byte, error) {
	f.mu.Lock()
	f.commands = append(f.commands, command)
	f.mu.Unlock()
	if f.failOn != "" && strings.Contains(command, f.failOn) {
		return []byte("tool exploded"), errors.New("exit status 1")
	}
	return nil, nil
}

func (f *fakeRunner) LookPath(name string) (string, error) {
	return "/usr/bin/" + name, nil
}

func (f *fakeRunner) sorted() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := append([]string(nil), f.commands...)
	sort.Strings(out)
	return out
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read %s: %v", path, err)
	}
	return string(data)
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// testEnv returns an environment rooted in a fresh temp dir using the
// default directory layout.
func testEnv(t *testing.T) *build.Environment {
	t.Helper()
	return &build.Environment{
		Root:    t.TempDir(),
		Name:    "deck",
		Version: "abcd...wxyz",
		Dirs: build.Dirs{
			SourceDir:    "src",
			OutputDir:    "build",
			GlobalsDir:   "global_includes",
			TemplatesDir: "partials/full_templates",
			PartialsDir:  "partials/sections",
			TempDir:      "temp",
			ZipsDir:      "_zips",
			CtlsDir:      "_ctls",
		},
		Remote: build.Remote{Server: "ftp.example.com", Username: "me@example.com", Password: "pw"},
		Tools: build.Tools{
			Sass:       "sass {in} {out}",
			Screenshot: "shoot --size {width}x{height} {in} {out}",
		},
		Screenshots: []build.ScreenshotSize{
			{Name: "full", Width: 1024, Height: 768, Suffix: "-full.jpg"},
			{Name: "thumb", Width: 200, Height: 150, Suffix: "-thumb.jpg"},
		},
	}
}

// fakeConn records FTP operations.
type fakeConn struct {
	mu        sync.Mutex
	cwd       string
	dirs      map[string]bool
	stored    map[string]string
	ops       []string
	quit      bool
	storeFail string
}

func newFakeConn(dirs ...string) *fakeConn {
	c := &fakeConn{cwd: "/home", dirs: map[string]bool{}, stored: map[string]string{}}
	for _, d := range dirs {
		c.dirs[d] = true
	}
	return c
}

func (c *fakeConn) ChangeDir(p string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.ops = append(c.ops, "cd "+p)
	if !c.dirs[p] {
		return errors.New("550 no such directory")
	}
	c.cwd = p
	return nil
}

func (c *fakeConn) Stor(p string, r io.Reader) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.storeFail != "" && p == c.storeFail {
		return errors.New("552 storage exceeded")
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	full := c.cwd + "/" + p
	c.ops = append(c.ops, "put "+full)
	c.stored[full] = string(data)
	return nil
}

func (c *fakeConn) Quit() error {
	c.quit = true
	return nil
}
