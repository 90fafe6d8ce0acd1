package cli

import (
	"fmt"
	"strings"

	"github.com/Keksclan/oncoannot/tumor"
	"github.com/spf13/cobra"
)

func (a *App) newTumorsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tumors",
		Short: "Query the tumor vocabulary",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "suggest QUERY",
		Short: "Suggest canonical tumor names",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, s := range tumor.Suggest(strings.Join(args, " ")) {
				fmt.Fprintln(a.stdout, s)
			}
			return nil
		},
	}, &cobra.Command{
		Use:   "biomarkers TUMOR",
		Short: "List the biomarkers relevant to a tumor",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, b := range tumor.Biomarkers(strings.Join(args, " ")) {
				fmt.Fprintln(a.stdout, b)
			}
			return nil
		},
	}, &cobra.Command{
		Use:   "validate TUMOR",
		Short: "Validate a tumor type and print its canonical name",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			canonical, err := tumor.Validate(strings.Join(args, " "))
			if err != nil {
				return err
			}
			fmt.Fprintln(a.stdout, canonical)
			return nil
		},
	})
	return cmd
}
