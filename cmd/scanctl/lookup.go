package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var lookupCmd = &cobra.Command{
	Use:   "lookup CODE",
	Short: "Resolve a scanned place code to its reference record",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		rec, err := app.gateway.Lookup(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		fmt.Printf("%s (id %d)\n", rec.PlaceName, rec.PlaceCod)
		fmt.Printf("  type:     %s\n", rec.MXType)
		if rec.Category != "" {
			fmt.Printf("  category: %s\n", rec.Category)
		}
		fmt.Printf("  location: floor %d, row %d, section %d, shelf %d, cell %d\n",
			rec.Floor, rec.RowNum, rec.Section, rec.Shelf, rec.Cell)
		if rec.UpdatedAt != "" {
			fmt.Printf("  updated:  %s\n", rec.UpdatedAt)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(lookupCmd)
}
