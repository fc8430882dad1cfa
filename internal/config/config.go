// Package config loads VELVEEVA-config.json and turns it into the build
// environment. It supports a project-level file, built-in defaults and
// VELVEEVA_-prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/viper"

	"github.com/ShayCichocki/velveeva/internal/build"
)

// FileName is the project configuration file name.
const FileName = "VELVEEVA-config.json"

// EnvPrefix prefixes environment overrides, e.g. VELVEEVA_VEEVA_PASSWORD.
const EnvPrefix = "VELVEEVA"

// ErrNotFound is returned when no configuration file can be located.
var ErrNotFound = errors.New("no " + FileName + " found")

// Config holds all configuration for a project.
type Config struct {
	Main  MainConfig                  `mapstructure:"main" json:"MAIN"`
	SS    map[string]ScreenshotConfig `mapstructure:"ss" json:"SS"`
	Veeva VeevaConfig                 `mapstructure:"veeva" json:"VEEVA"`
	Hooks HooksConfig                 `mapstructure:"hooks" json:"HOOKS"`
	Tools ToolsConfig                 `mapstructure:"tools" json:"TOOLS"`
	Build BuildConfig                 `mapstructure:"build" json:"BUILD"`

	// path is the file the config was read from, empty for defaults.
	path string
}

// MainConfig holds the project name and directory layout.
type MainConfig struct {
	Name         string `mapstructure:"name" json:"name"`
	SourceDir    string `mapstructure:"source_dir" json:"source_dir"`
	OutputDir    string `mapstructure:"output_dir" json:"output_dir"`
	GlobalsDir   string `mapstructure:"globals_dir" json:"globals_dir"`
	TemplatesDir string `mapstructure:"templates_dir" json:"templates_dir"`
	PartialsDir  string `mapstructure:"partials_dir" json:"partials_dir"`
	TempDir      string `mapstructure:"temp_dir" json:"temp_dir"`
	ZipsDir      string `mapstructure:"zips_dir" json:"zips_dir"`
	CtlsDir      string `mapstructure:"ctls_dir" json:"ctls_dir"`
}

// ScreenshotConfig holds one screenshot rendition. Name is the file suffix.
type ScreenshotConfig struct {
	Width  int    `mapstructure:"width" json:"width"`
	Height int    `mapstructure:"height" json:"height"`
	Name   string `mapstructure:"name" json:"name"`
}

// VeevaConfig holds the content platform credentials.
type VeevaConfig struct {
	Server   string `mapstructure:"server" json:"server"`
	Username string `mapstructure:"username" json:"username"`
	Password string `mapstructure:"password" json:"password"`
	Email    string `mapstructure:"email" json:"email,omitempty"`
}

// HooksConfig holds optional shell commands run before and after a build.
type HooksConfig struct {
	Pre  string `mapstructure:"pre" json:"pre,omitempty"`
	Post string `mapstructure:"post" json:"post,omitempty"`
}

// ToolsConfig holds command templates for external tools.
type ToolsConfig struct {
	Sass       string `mapstructure:"sass" json:"sass"`
	Screenshot string `mapstructure:"screenshot" json:"screenshot"`
}

// BuildConfig holds executor settings.
type BuildConfig struct {
	Workers int `mapstructure:"workers" json:"workers"`
}

// Path returns the file the configuration was loaded from.
func (c *Config) Path() string {
	return c.path
}

// Root returns the project root: the directory holding the config file, or
// the working directory for a default config.
func (c *Config) Root() string {
	if c.path != "" {
		return filepath.Dir(c.path)
	}
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}
	return wd
}

// Load reads the configuration. An explicit path must exist; with an empty
// path the working directory and its parents are searched for FileName.
// Environment variables take precedence over the file, which takes
// precedence over built-in defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = findProjectConfig()
		if path == "" {
			return nil, ErrNotFound
		}
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from a specific path.
func LoadFromPath(path string) (*Config, error) {
	v := newViper()

	v.SetConfigFile(path)
	v.SetConfigType("json")
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg, err := unmarshal(v)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	cfg.path = abs
	return cfg, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func unmarshal(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}
	if len(cfg.SS) == 0 {
		cfg.SS = defaultScreenshots()
	}

	// Expand ${VAR} references in credentials and hooks
	cfg.Veeva.Server = expandEnv(cfg.Veeva.Server)
	cfg.Veeva.Username = expandEnv(cfg.Veeva.Username)
	cfg.Veeva.Password = expandEnv(cfg.Veeva.Password)
	cfg.Veeva.Email = expandEnv(cfg.Veeva.Email)
	cfg.Hooks.Pre = expandEnv(cfg.Hooks.Pre)
	cfg.Hooks.Post = expandEnv(cfg.Hooks.Post)

	return cfg, nil
}

// setDefaults configures default values.
func setDefaults(v *viper.Viper) {
	v.SetDefault("main.name", "")
	v.SetDefault("main.source_dir", "./src")
	v.SetDefault("main.output_dir", "./build")
	v.SetDefault("main.globals_dir", "./global_includes")
	v.SetDefault("main.templates_dir", "./partials/full_templates")
	v.SetDefault("main.partials_dir", "./partials/sections")
	v.SetDefault("main.temp_dir", "./temp")
	v.SetDefault("main.zips_dir", "_zips")
	v.SetDefault("main.ctls_dir", "_ctls")

	v.SetDefault("veeva.server", "")
	v.SetDefault("veeva.username", "")
	v.SetDefault("veeva.password", "")
	v.SetDefault("veeva.email", "")

	v.SetDefault("hooks.pre", "")
	v.SetDefault("hooks.post", "")

	v.SetDefault("tools.sass", "sass --no-source-map {in} {out}")
	v.SetDefault("tools.screenshot", "chromium --headless --hide-scrollbars --window-size={width},{height} --screenshot={out} {in}")

	v.SetDefault("build.workers", build.DefaultWorkers)
}

func defaultScreenshots() map[string]ScreenshotConfig {
	return map[string]ScreenshotConfig{
		"full":  {Width: 1024, Height: 768, Name: "-full.jpg"},
		"thumb": {Width: 200, Height: 150, Name: "-thumb.jpg"},
	}
}

// findProjectConfig searches for FileName in the current directory and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, FileName)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}

	return ""
}

// expandEnv expands ${VAR} references in a string.
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Default returns a Config with default values.
func Default() *Config {
	v := newViper()
	cfg, err := unmarshal(v)
	if err != nil {
		// Defaults always decode.
		panic(err)
	}
	return cfg
}

// Environment builds the immutable build environment rooted at root.
// An empty root uses the config's own root.
func (c *Config) Environment(root string, version string, verbose bool) *build.Environment {
	if root == "" {
		root = c.Root()
	}
	name := c.Main.Name
	if name == "" {
		name = filepath.Base(root)
	}

	env := &build.Environment{
		Root:    root,
		Name:    name,
		Version: version,
		Verbose: verbose,
		Dirs: build.Dirs{
			SourceDir:    c.Main.SourceDir,
			OutputDir:    c.Main.OutputDir,
			GlobalsDir:   c.Main.GlobalsDir,
			TemplatesDir: c.Main.TemplatesDir,
			PartialsDir:  c.Main.PartialsDir,
			TempDir:      c.Main.TempDir,
			ZipsDir:      c.Main.ZipsDir,
			CtlsDir:      c.Main.CtlsDir,
		},
		Remote: build.Remote{
			Server:   c.Veeva.Server,
			Username: c.Veeva.Username,
			Password: c.Veeva.Password,
			Email:    c.Veeva.Email,
		},
		Hooks: build.Hooks{Pre: c.Hooks.Pre, Post: c.Hooks.Post},
		Tools: build.Tools{Sass: c.Tools.Sass, Screenshot: c.Tools.Screenshot},
	}

	names := make([]string, 0, len(c.SS))
	for k := range c.SS {
		names = append(names, k)
	}
	sort.Strings(names)
	for _, k := range names {
		s := c.SS[k]
		env.Screenshots = append(env.Screenshots, build.ScreenshotSize{
			Name: k, Width: s.Width, Height: s.Height, Suffix: s.Name,
		})
	}
	return env
}
