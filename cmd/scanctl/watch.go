package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/mxscan/scankit/connectivity"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Monitor connectivity and replay the queue whenever the server comes back",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		monitor := connectivity.New(cmd.Context(), app.gateway, app.log,
			func(ctx context.Context) {
				if remaining := app.gateway.Sweep(ctx); remaining > 0 {
					app.log.Warn("%d submission(s) still pending after sweep", remaining)
				}
			},
			connectivity.WithInterval(app.cfg.ProbeIntervalDuration()))
		defer monitor.Close()

		monitor.Check()
		app.log.Info("watching connectivity every %s, press ctrl-c to stop", app.cfg.ProbeInterval)
		<-cmd.Context().Done()
		fmt.Println()
		return nil
	},
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Probe the collaborator API",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		if app.gateway.Health(cmd.Context()) {
			fmt.Println("ok")
			return nil
		}
		fmt.Println("unreachable")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(healthCmd)
}
