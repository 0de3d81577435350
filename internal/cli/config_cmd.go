package cli

import (
	"fmt"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/lucasnoah/reviewloop/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect and validate the loop configuration",
}

var configValidateCmd = &cobra.Command{
	Use:   "validate [path]",
	Short: "Validate a loop config file",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) == 1 {
			path = args[0]
		}
		cfg, err := loadConfig(path)
		if err != nil {
			return err
		}
		errs := config.Validate(cfg)
		if len(errs) == 0 {
			fmt.Fprintf(cmd.OutOrStdout(), "Config for loop %q is valid (%d workers).\n",
				cfg.Loop.Name, len(cfg.Loop.Workers))
			return nil
		}
		for _, e := range errs {
			fmt.Fprintf(cmd.ErrOrStderr(), "config: %s\n", e)
		}
		return fmt.Errorf("invalid config: %d error(s)", len(errs))
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show [path]",
	Short: "Print the effective config after defaults are applied",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := ""
		if len(args) == 1 {
			path = args[0]
		}
		cfg, err := loadConfig(path)
		if err != nil {
			return err
		}
		data, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}
		fmt.Fprint(cmd.OutOrStdout(), string(data))
		return nil
	},
}

func init() {
	configCmd.AddCommand(configValidateCmd)
	configCmd.AddCommand(configShowCmd)
}
