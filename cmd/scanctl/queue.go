package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var drainCmd = &cobra.Command{
	Use:   "drain",
	Short: "Replay all queued submissions now",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		before := app.outbox.Len(cmd.Context())
		if before == 0 {
			fmt.Println("queue is empty")
			return nil
		}
		remaining := app.gateway.Sweep(cmd.Context())
		fmt.Printf("delivered %d of %d queued submission(s), %d remaining\n",
			before-remaining, before, remaining)
		return nil
	},
}

var queueCmd = &cobra.Command{
	Use:   "queue",
	Short: "Show submissions waiting for delivery",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		items := app.outbox.Items(cmd.Context())
		if len(items) == 0 {
			fmt.Println("queue is empty")
			return nil
		}
		for i, item := range items {
			fmt.Printf("%d. %s  %x  enqueued %s\n", i+1, item.Path,
				item.Fingerprint(), item.EnqueuedAt.Format("2006-01-02 15:04:05"))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(drainCmd)
	rootCmd.AddCommand(queueCmd)
}
