package main

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/ShayCichocki/velveeva/internal/build"
	"github.com/ShayCichocki/velveeva/internal/steps"
	"github.com/ShayCichocki/velveeva/internal/tui"
)

var planFormat string

var planCmd = &cobra.Command{
	Use:   "plan [goal...]",
	Short: "Print the build plan for goals",
	Long: `Compile the requested goals into stages and print the plan without
running anything. With no goals the default goals are planned.

Formats:
  text   stages with their tasks and messages (default)
  yaml   machine-readable plan
  json   machine-readable plan`,
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog, err := steps.NewCatalog(steps.Deps{})
		if err != nil {
			return err
		}
		plan, unknown, err := catalog.Plan(args)
		for _, g := range unknown {
			fprintStatus(cmd.ErrOrStderr(), "⚠", fmt.Sprintf("Unknown goal %q ignored", g), colorWarn)
		}
		if err != nil {
			return err
		}
		return writePlan(cmd.OutOrStdout(), plan, tui.TaskMessages(plan, catalog.Registry), planFormat)
	},
}

func init() {
	planCmd.Flags().StringVarP(&planFormat, "format", "f", "text", "Output format: text, yaml or json")
}

// writePlan encodes plan to w in format.
func writePlan(w io.Writer, plan *build.Plan, messages map[build.TaskID]string, format string) error {
	switch format {
	case "", "text":
		_, err := fmt.Fprint(w, tui.RenderPlan(plan, messages))
		return err
	case "yaml", "yml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(plan); err != nil {
			return fmt.Errorf("encode plan: %w", err)
		}
		return enc.Close()
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(plan); err != nil {
			return fmt.Errorf("encode plan: %w", err)
		}
		return nil
	default:
		return fmt.Errorf("unknown format %q (want text, yaml or json)", format)
	}
}
