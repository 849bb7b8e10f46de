// scanctl is the field-worker scanning client: look up place codes,
// submit scan results with photos, and manage the offline queue.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/mxscan/scankit/logger"
)

var (
	configPath string
	badgeFlag  string
)

var rootCmd = &cobra.Command{
	Use:           "scanctl",
	Short:         "Warehouse scanning client",
	Long:          "scanctl looks up storage locations, submits scan results and replays submissions queued while offline.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logger.NewConsoleLogger().Fatal("%s", err)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "scankit.yaml", "path to the configuration file")
	rootCmd.PersistentFlags().StringVar(&badgeFlag, "badge", "", "operator badge (overrides configuration)")
}
