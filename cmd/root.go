// Package cmd provides the command-line host for concat plugins.
//
// Configuration System:
//
//	Settings are read from several sources, highest priority first:
//	1. Command-line flags (--config, --output, etc.)
//	2. CONCAT_CONFIG_FILE environment variable - custom config file path
//	3. Individual environment variables (CONCAT_OUTPUT, CONCAT_CONTEXT, ...)
//	4. Configuration files (.concat.yml)
//
// Relative context directories in a configuration file are resolved against
// the directory holding the file.
package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/conneroisu/concat/internal/config"
	"github.com/conneroisu/concat/internal/logging"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "concat",
	Short: "Concatenate script files into build artifacts",
	Long: `concat joins lists of script files into single, optionally minified and
content-hashed artifacts, and injects them into a generated HTML page.

Quick Start:
  concat init                     Write a starter .concat.yml
  concat build                    Run one build pass
  concat watch                    Rebuild whenever an input changes
  concat bundle src/app.js        Run esbuild with concat passes attached
  concat config show              Print the resolved configuration`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .concat.yml, can also use CONCAT_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().String("log-format", "text", "log format (text, json)")
}

// initConfig selects the configuration file and enables CONCAT_ environment
// overrides. A missing file is not an error here; commands that need a
// project report it when loading.
func initConfig() {
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else if envConfigFile := os.Getenv("CONCAT_CONFIG_FILE"); envConfigFile != "" {
		viper.SetConfigFile(envConfigFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigType("yaml")
		viper.SetConfigName(".concat")
	}

	bindFlag(rootCmd.PersistentFlags(), "log-level", "log-level")
	bindFlag(rootCmd.PersistentFlags(), "log-format", "log-format")
	config.SetDefaults(viper.GetViper())

	viper.SetEnvPrefix("CONCAT")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// loadProject decodes the project from viper. A relative context taken from
// the configuration file is anchored at the file's directory.
func loadProject(cmd *cobra.Command) (*config.Project, error) {
	project, err := config.Load()
	if err != nil {
		return nil, err
	}

	used := viper.ConfigFileUsed()
	fromFile := !cmd.Flags().Changed("context")
	if _, ok := os.LookupEnv("CONCAT_CONTEXT"); ok {
		fromFile = false
	}
	if used != "" && fromFile && !filepath.IsAbs(project.Context) {
		project.Context = filepath.Join(filepath.Dir(used), project.Context)
	}

	return project, nil
}

// newLogger builds the logger selected by --log-level and --log-format.
func newLogger() (logging.Logger, error) {
	level, err := logging.ParseLevel(viper.GetString("log-level"))
	if err != nil {
		return nil, err
	}

	format := viper.GetString("log-format")
	if format != "text" && format != "json" {
		return nil, fmt.Errorf("unsupported log format: %s (supported: text, json)", format)
	}

	cfg := logging.DefaultConfig()
	cfg.Level = level
	cfg.Format = format

	return logging.NewLogger(cfg), nil
}
