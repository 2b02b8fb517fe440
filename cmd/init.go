package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/conneroisu/concat/internal/config"
)

var initCmd = &cobra.Command{
	Use:     "init [dir]",
	Aliases: []string{"i"},
	Short:   "Write a starter .concat.yml",
	Long: `Write a starter .concat.yml into dir, or the current directory. The file
defines one bundle concatenating every script under src/ and an HTML page
loading it.

Examples:
  concat init                     # Initialize the current directory
  concat init web --force         # Overwrite web/.concat.yml`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

var initForce bool

func init() {
	rootCmd.AddCommand(initCmd)

	initCmd.Flags().BoolVar(&initForce, "force", false, "Overwrite an existing configuration file")
}

// starterProject is the configuration written by init.
func starterProject() *config.Project {
	return &config.Project{
		Context: config.DefaultContext,
		Output:  config.DefaultOutput,
		HTML:    &config.HTMLConfig{Filename: config.DefaultHTMLFilename},
		Bundles: []config.Options{{
			Name:          "vendor",
			FileName:      "[name].[hash:8].js",
			FilesToConcat: []string{"src/**/*.js"},
			SourceMap:     true,
		}},
	}
}

func runInit(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) == 1 {
		dir = args[0]
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	path := filepath.Join(dir, ".concat.yml")
	if _, err := os.Stat(path); err == nil && !initForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", path)
	}

	data, err := starterProject().Marshal()
	if err != nil {
		return fmt.Errorf("failed to render configuration: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write configuration: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)

	return nil
}
