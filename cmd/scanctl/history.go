package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recently submitted scans",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		entries := app.journal.Recent(cmd.Context(), historyLimit)
		if len(entries) == 0 {
			fmt.Println("no scans recorded yet")
			return nil
		}
		for _, e := range entries {
			marker := " "
			if e.Queued {
				marker = "Q"
			}
			fmt.Printf("%s %s  %-12s qty=%-4d photos=%d  %s\n",
				marker, e.At.Format("2006-01-02 15:04"), e.Status, e.FactQty, e.Photos, e.PlaceName)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum entries to show")
	rootCmd.AddCommand(historyCmd)
}
