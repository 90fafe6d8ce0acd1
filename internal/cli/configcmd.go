package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func (a *App) newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect the effective configuration",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "check",
		Short: "Validate the configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.loadConfig(); err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, "configuration ok")
			return nil
		},
	}, &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := a.loadConfig()
			if err != nil {
				return err
			}
			redacted := *cfg
			if redacted.Providers.OncoKBToken != "" {
				redacted.Providers.OncoKBToken = "***"
			}
			if redacted.Providers.NCBIAPIKey != "" {
				redacted.Providers.NCBIAPIKey = "***"
			}
			if redacted.Cache.RedisPassword != "" {
				redacted.Cache.RedisPassword = "***"
			}
			return a.printJSON(redacted)
		},
	})
	return cmd
}
