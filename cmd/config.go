package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/conneroisu/concat/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect concat configuration",
	Long: `Inspect the configuration concat would build with.

Examples:
  concat config show                       # Print the resolved configuration
  concat config validate                   # Validate the current configuration
  concat config validate --file other.yml  # Validate a specific file`,
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the resolved configuration as YAML",
	Long: `Print the configuration after defaults, environment variables and flags
are applied. Every bundle is shown with its defaults filled in.`,
	RunE: runConfigShow,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate configuration file",
	RunE:  runConfigValidate,
}

var configFile string

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configValidateCmd)

	configValidateCmd.Flags().StringVar(&configFile, "file", "", "Configuration file to validate (default is the loaded one)")
}

func runConfigShow(cmd *cobra.Command, args []string) error {
	project, err := loadProject(cmd)
	if err != nil {
		return err
	}

	data, err := project.Marshal()
	if err != nil {
		return fmt.Errorf("failed to render configuration: %w", err)
	}
	_, err = cmd.OutOrStdout().Write(data)

	return err
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	var (
		project *config.Project
		err     error
	)
	if configFile != "" {
		project, err = config.ParseFile(configFile)
	} else {
		project, err = loadProject(cmd)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Configuration is valid: %d bundle(s)\n", len(project.Bundles))
	for _, bundle := range project.Bundles {
		fmt.Fprintf(cmd.OutOrStdout(), "  %s: %d input(s) -> %s%s\n",
			bundle.Name, len(bundle.FilesToConcat), bundle.OutputPath, bundle.FileName)
	}

	return nil
}
