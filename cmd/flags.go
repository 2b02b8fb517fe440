package cmd

import (
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// bindFlag binds the flag name of flags to the viper key. Flags are looked up
// once at init time, so a typo panics on start rather than being ignored.
func bindFlag(flags *pflag.FlagSet, key, name string) {
	flag := flags.Lookup(name)
	if flag == nil {
		panic("unknown flag " + name)
	}
	if err := viper.BindPFlag(key, flag); err != nil {
		panic(err)
	}
}

// addProjectFlags adds the flags that override project settings. Several
// commands share the keys, so the flags are bound when the command runs.
func addProjectFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("output", "o", "", "Output directory (overrides the config file)")
	cmd.Flags().String("context", "", "Context directory inputs are resolved against")

	cmd.PreRun = func(cmd *cobra.Command, _ []string) {
		bindFlag(cmd.Flags(), "output", "output")
		bindFlag(cmd.Flags(), "context", "context")
	}
}
