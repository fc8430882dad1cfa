package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
	"go.yaml.in/yaml/v3"

	"github.com/ShayCichocki/velveeva/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key]",
	Short: "Show configuration",
	Long: `Show the resolved project configuration.

Without arguments, every key is listed. With a dotted key such as
MAIN.source_dir or SS.full.width, only that value is printed; a section
name prints the whole section. Keys are case-insensitive.

Values include defaults and VELVEEVA_* environment overrides. The Veeva
password is always masked.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		if len(args) == 0 {
			return displayAllConfig(cmd.OutOrStdout(), cfg)
		}
		return displayConfigKey(cmd.OutOrStdout(), cfg, args[0])
	},
}

// displayAllConfig prints every leaf key as "key: value".
func displayAllConfig(w io.Writer, cfg *config.Config) error {
	masked := cfg.Masked()
	keys, err := masked.Keys()
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "# %s\n", cfg.Path())
	for _, k := range keys {
		v, err := masked.Lookup(k)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s: %v\n", k, v)
	}
	return nil
}

// displayConfigKey prints a single value, or a section as YAML.
func displayConfigKey(w io.Writer, cfg *config.Config, key string) error {
	v, err := cfg.Masked().Lookup(key)
	if err != nil {
		return err
	}
	if section, ok := v.(map[string]interface{}); ok {
		out, err := yaml.Marshal(section)
		if err != nil {
			return fmt.Errorf("encode section: %w", err)
		}
		fmt.Fprint(w, strings.TrimRight(string(out), "\n")+"\n")
		return nil
	}
	fmt.Fprintln(w, v)
	return nil
}
