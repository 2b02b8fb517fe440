package cmd

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/conneroisu/concat/internal/host"
)

var buildCmd = &cobra.Command{
	Use:     "build",
	Aliases: []string{"b"},
	Short:   "Run one build pass",
	Long: `Run one build pass for every bundle in the configuration and write the
artifacts, source maps and HTML page to the output directory.

Examples:
  concat build                    # Build using .concat.yml
  concat build --output public    # Build to a specific output directory
  concat build --clean            # Remove the output directory first`,
	RunE: runBuild,
}

var buildClean bool

func init() {
	rootCmd.AddCommand(buildCmd)

	addProjectFlags(buildCmd)
	buildCmd.Flags().BoolVar(&buildClean, "clean", false, "Remove the output directory before building")
}

func runBuild(cmd *cobra.Command, args []string) error {
	h, err := newHost(cmd)
	if err != nil {
		return err
	}

	if buildClean {
		if err := os.RemoveAll(h.OutputDir()); err != nil {
			return fmt.Errorf("failed to clean output directory: %w", err)
		}
	}

	result, err := h.Build(contextOf(cmd))
	if err != nil {
		return err
	}

	printResult(cmd.OutOrStdout(), result)

	return nil
}

// newHost loads the project and creates a host logging at the configured
// level.
func newHost(cmd *cobra.Command) (*host.Host, error) {
	project, err := loadProject(cmd)
	if err != nil {
		return nil, err
	}

	logger, err := newLogger()
	if err != nil {
		return nil, err
	}

	return host.New(project, host.Options{Logger: logger})
}

func printResult(w io.Writer, result *host.Result) {
	if len(result.Assets) == 0 {
		fmt.Fprintf(w, "Nothing changed (%s)\n", result.Duration.Round(time.Millisecond))

		return
	}

	for _, asset := range result.Assets {
		fmt.Fprintf(w, "  %-40s %s\n", asset.Name, humanize.Bytes(uint64(asset.Size)))
	}
	fmt.Fprintf(w, "Built %d assets in %s\n", len(result.Assets), result.Duration.Round(time.Millisecond))
}
