package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/conneroisu/concat/internal/host"
)

var watchCmd = &cobra.Command{
	Use:     "watch",
	Aliases: []string{"w"},
	Short:   "Rebuild whenever an input changes",
	Long: `Run a build pass, then watch every file the bundles depend on and run
another pass after each batch of changes. New files matching a glob are
picked up. Failed passes are reported and watching continues.

Examples:
  concat watch                    # Watch using .concat.yml
  concat watch --debounce 500ms   # Wait longer before rebuilding`,
	RunE: runWatch,
}

var watchDebounce time.Duration

func init() {
	rootCmd.AddCommand(watchCmd)

	addProjectFlags(watchCmd)
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 100*time.Millisecond, "Delay grouping rapid changes into one pass")
}

func runWatch(cmd *cobra.Command, args []string) error {
	h, err := newHost(cmd)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(contextOf(cmd), os.Interrupt, syscall.SIGTERM)
	defer stop()

	out := cmd.OutOrStdout()
	errOut := cmd.ErrOrStderr()

	err = h.Watch(ctx, watchDebounce, func(result *host.Result, err error) {
		if err != nil {
			fmt.Fprintf(errOut, "Build failed: %v\n", err)

			return
		}
		printResult(out, result)
	})
	if err != nil {
		return err
	}

	m := h.Metrics()
	fmt.Fprintf(out, "%d passes (%.0f%% succeeded), average %s, %s written, cache hit rate %.0f%%\n",
		m.TotalPasses, m.SuccessRate(), m.AverageDuration.Round(time.Millisecond),
		humanize.Bytes(uint64(m.BytesWritten)), m.CacheHitRate())

	return nil
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}

	return context.Background()
}
