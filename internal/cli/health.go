package cli

import (
	"context"
	"errors"

	"github.com/Keksclan/oncoannot/health"
	"github.com/Keksclan/oncoannot/internal/app"
	"github.com/Keksclan/oncoannot/rpc"
	"github.com/spf13/cobra"
)

func (a *App) newHealthCmd() *cobra.Command {
	var remote string
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Check the cache and every source",
		Long:  "Ping the cache backend and each external source and print the report. Exits non-zero when the cache is down.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.health(cmd.Context(), remote)
		},
	}
	cmd.Flags().StringVar(&remote, "remote", "", "Ask a running server at this address")
	return cmd
}

func (a *App) health(ctx context.Context, remote string) error {
	var rep health.Report
	var err error
	if remote != "" {
		err = withClient(remote, func(c *rpc.Client) error {
			var cerr error
			rep, cerr = c.Check(ctx)
			return cerr
		})
	} else {
		err = a.local(ctx, func(svc *app.App) error {
			rep = svc.Health.Check(ctx)
			return nil
		})
	}
	if err != nil {
		return err
	}
	if err := a.printJSON(rep); err != nil {
		return err
	}
	if !rep.OK {
		return errors.New("unhealthy")
	}
	return nil
}
