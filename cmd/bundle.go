package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/evanw/esbuild/pkg/api"
	"github.com/spf13/cobra"

	"github.com/conneroisu/concat/internal/esbuildhost"
	"github.com/conneroisu/concat/internal/host"
)

var bundleCmd = &cobra.Command{
	Use:   "bundle <entry>...",
	Short: "Run esbuild with concat passes attached",
	Long: `Bundle the entry points with esbuild into the output directory. After a
successful esbuild build every configured concat bundle is built into the
same directory. The generated page references the concat artifacts and
html.scripts only; list the esbuild outputs under html.scripts to load them
from the page as well.

Examples:
  concat bundle src/app.js                # Bundle into the configured output
  concat bundle src/app.js --minify       # Minify the esbuild bundle`,
	Args: cobra.MinimumNArgs(1),
	RunE: runBundle,
}

var (
	bundleMinify    bool
	bundleSourceMap bool
)

func init() {
	rootCmd.AddCommand(bundleCmd)

	addProjectFlags(bundleCmd)
	bundleCmd.Flags().BoolVar(&bundleMinify, "minify", false, "Minify the esbuild bundle")
	bundleCmd.Flags().BoolVar(&bundleSourceMap, "sourcemap", false, "Write esbuild source maps")
}

func runBundle(cmd *cobra.Command, args []string) error {
	h, err := newHost(cmd)
	if err != nil {
		return err
	}

	logger, err := newLogger()
	if err != nil {
		return err
	}

	entries := make([]string, len(args))
	for i, arg := range args {
		if entries[i], err = filepath.Abs(arg); err != nil {
			return fmt.Errorf("invalid entry point %s: %w", arg, err)
		}
	}

	var last *host.Result
	plugin := esbuildhost.NewPlugin(h,
		esbuildhost.WithContext(contextOf(cmd)),
		esbuildhost.WithLogger(logger),
		esbuildhost.WithReport(func(result *host.Result, _ error) { last = result }),
	)

	opts := api.BuildOptions{
		EntryPoints:       entries,
		Bundle:            true,
		Write:             true,
		Outdir:            h.OutputDir(),
		AbsWorkingDir:     h.ContextDir(),
		MinifyWhitespace:  bundleMinify,
		MinifyIdentifiers: bundleMinify,
		MinifySyntax:      bundleMinify,
		LogLevel:          api.LogLevelWarning,
		Plugins:           []api.Plugin{plugin},
	}
	if bundleSourceMap {
		opts.Sourcemap = api.SourceMapLinked
	}

	result := api.Build(opts)
	if len(result.Errors) > 0 {
		return fmt.Errorf("bundle failed with %d error(s): %s", len(result.Errors), result.Errors[0].Text)
	}

	out := cmd.OutOrStdout()
	for _, f := range result.OutputFiles {
		rel, err := filepath.Rel(h.OutputDir(), f.Path)
		if err != nil {
			rel = f.Path
		}
		fmt.Fprintf(out, "  %-40s %s\n", rel, humanize.Bytes(uint64(len(f.Contents))))
	}
	if last != nil {
		printResult(out, last)
	}

	return nil
}
