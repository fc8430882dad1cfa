package build

import (
	"path/filepath"
)

// Environment is the read-only configuration shared by every action in a run.
// It is built once before planning and never modified afterwards; actions
// running in the same stage read it concurrently.
type Environment struct {
	// Root is the project root. Relative directories resolve against it.
	Root string
	// Name is the project name.
	Name string
	// Version is stamped into control files.
	Version string
	// Verbose enables chatty action output.
	Verbose bool

	Dirs        Dirs
	Remote      Remote
	Hooks       Hooks
	Tools       Tools
	Screenshots []ScreenshotSize
}

// Dirs holds the project directory layout.
// ZipsDir and CtlsDir are relative to OutputDir.
type Dirs struct {
	SourceDir    string
	OutputDir    string
	GlobalsDir   string
	TemplatesDir string
	PartialsDir  string
	TempDir      string
	ZipsDir      string
	CtlsDir      string
}

// Remote holds the content platform credentials.
type Remote struct {
	Server   string
	Username string
	Password string
	Email    string
}

// Hooks holds optional shell commands run around the build.
type Hooks struct {
	Pre  string
	Post string
}

// Tools holds command templates for external tools.
type Tools struct {
	Sass       string
	Screenshot string
}

// ScreenshotSize describes one screenshot rendition of a slide.
type ScreenshotSize struct {
	Name   string
	Width  int
	Height int
	Suffix string
}

// Path resolves p against the project root. Absolute paths are returned unchanged.
func (e *Environment) Path(p string) string {
	if filepath.IsAbs(p) || e.Root == "" {
		return filepath.Clean(p)
	}
	return filepath.Join(e.Root, p)
}

// SourcePath returns the absolute slide source directory.
func (e *Environment) SourcePath() string { return e.Path(e.Dirs.SourceDir) }

// OutputPath returns the absolute build output directory.
func (e *Environment) OutputPath() string { return e.Path(e.Dirs.OutputDir) }

// GlobalsPath returns the absolute global includes directory.
func (e *Environment) GlobalsPath() string { return e.Path(e.Dirs.GlobalsDir) }

// TemplatesPath returns the absolute layout templates directory.
func (e *Environment) TemplatesPath() string { return e.Path(e.Dirs.TemplatesDir) }

// PartialsPath returns the absolute partials directory.
func (e *Environment) PartialsPath() string { return e.Path(e.Dirs.PartialsDir) }

// TempPath returns the absolute scratch directory.
func (e *Environment) TempPath() string { return e.Path(e.Dirs.TempDir) }

// ZipsPath returns the directory packaged slides are written to.
func (e *Environment) ZipsPath() string {
	return filepath.Join(e.OutputPath(), e.Dirs.ZipsDir)
}

// CtlsPath returns the directory control files are written to.
func (e *Environment) CtlsPath() string {
	return filepath.Join(e.OutputPath(), e.Dirs.CtlsDir)
}

// HasRemote reports whether publish credentials are configured.
func (e *Environment) HasRemote() bool {
	return e.Remote.Server != "" && e.Remote.Username != ""
}
