package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/ShayCichocki/velveeva/internal/config"
	"github.com/ShayCichocki/velveeva/internal/state"
)

var (
	initForce       bool
	initProjectName string
	initNoGitignore bool
)

var initCmd = &cobra.Command{
	Use:   "init [directory]",
	Short: "Initialize a velveeva project",
	Long: `Initialize a directory for use with velveeva.

This command:
  - Writes a default VELVEEVA-config.json
  - Creates the source, globals, partials and templates folders
  - Adds build output and velveeva state to .gitignore

The directory argument is optional and defaults to the current directory.
Credentials can be filled in later or supplied through VELVEEVA_VEEVA_*
environment variables.

Examples:
  velveeva init              # Initialize current directory
  velveeva init ./deck       # Initialize specific directory
  velveeva init --force      # Overwrite an existing config`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		dir := "."
		if len(args) > 0 {
			dir = args[0]
		}
		return initProject(cmd.OutOrStdout(), dir, initProjectName, initForce, !initNoGitignore)
	},
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing config file")
	initCmd.Flags().StringVar(&initProjectName, "project-name", "", "Project name (defaults to the directory name)")
	initCmd.Flags().BoolVar(&initNoGitignore, "no-gitignore", false, "Leave .gitignore untouched")
}

// initProject writes a default config in dir and scaffolds the project folders.
func initProject(w io.Writer, dir, name string, force, gitignore bool) error {
	absPath, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolving absolute path: %w", err)
	}
	if err := os.MkdirAll(absPath, 0755); err != nil {
		return fmt.Errorf("creating directory %s: %w", absPath, err)
	}

	fmt.Fprintf(w, "Initializing velveeva in %s...\n\n", absPath)

	cfg := config.Default()
	if name == "" {
		name = filepath.Base(absPath)
	}
	cfg.Main.Name = name

	cfgPath := filepath.Join(absPath, config.FileName)
	if err := config.Write(cfgPath, cfg, force); err != nil {
		fprintStatus(w, "✗", err.Error(), colorError)
		if !force {
			fmt.Fprintln(w, "Use --force to overwrite.")
		}
		return &silentError{err: err}
	}
	fprintStatus(w, "✔", "Wrote "+config.FileName, colorOK)

	for _, d := range []string{cfg.Main.SourceDir, cfg.Main.GlobalsDir, cfg.Main.PartialsDir, cfg.Main.TemplatesDir} {
		if err := os.MkdirAll(filepath.Join(absPath, d), 0755); err != nil {
			return fmt.Errorf("creating %s: %w", d, err)
		}
		fprintStatus(w, "✔", "Created "+filepath.Clean(d)+"/", colorOK)
	}

	if gitignore {
		entries := []string{cleanEntry(cfg.Main.OutputDir), cleanEntry(cfg.Main.TempDir), state.DirName + "/"}
		if err := updateGitignore(absPath, entries); err != nil {
			return fmt.Errorf("updating .gitignore: %w", err)
		}
		fprintStatus(w, "✔", "Updated .gitignore", colorOK)
	}

	fmt.Fprintf(w, "\n%s Project %s is ready.\n\n", color.GreenString("✔"), name)
	fmt.Fprintln(w, "Next steps:")
	fmt.Fprintln(w, "  1. Add slides under "+filepath.Clean(cfg.Main.SourceDir)+"/<slide>/<slide>.html")
	fmt.Fprintln(w, "  2. Fill in the VEEVA section of "+config.FileName+" to publish")
	fmt.Fprintln(w, "  3. Run: velveeva go")
	return nil
}

// cleanEntry turns a configured directory into a .gitignore line.
func cleanEntry(dir string) string {
	return strings.TrimPrefix(filepath.ToSlash(filepath.Clean(dir)), "./") + "/"
}

// updateGitignore appends missing entries under a velveeva heading.
func updateGitignore(repoPath string, entries []string) error {
	gitignorePath := filepath.Join(repoPath, ".gitignore")

	var existingContent string
	if data, err := os.ReadFile(gitignorePath); err == nil {
		existingContent = string(data)
	}

	existing := make(map[string]bool)
	for _, line := range strings.Split(existingContent, "\n") {
		existing[strings.TrimSpace(line)] = true
	}

	var missing []string
	for _, e := range entries {
		if !existing[e] {
			missing = append(missing, e)
		}
	}
	if len(missing) == 0 {
		return nil
	}

	var newContent strings.Builder
	newContent.WriteString(existingContent)
	if len(existingContent) > 0 && !strings.HasSuffix(existingContent, "\n") {
		newContent.WriteString("\n")
	}
	if len(existingContent) > 0 {
		newContent.WriteString("\n")
	}
	newContent.WriteString("# velveeva\n")
	for _, e := range missing {
		newContent.WriteString(e + "\n")
	}

	return os.WriteFile(gitignorePath, []byte(newContent.String()), 0644)
}
