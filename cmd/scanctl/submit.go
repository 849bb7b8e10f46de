package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/mxscan/scankit/history"
	"github.com/mxscan/scankit/photo"
	"github.com/mxscan/scankit/place"
)

var (
	submitStatus  string
	submitQty     int
	submitComment string
	submitReason  string
	submitPhotos  []string
)

var submitCmd = &cobra.Command{
	Use:   "submit CODE",
	Short: "Submit a scan result for a place, optionally with photos",
	Long: `Submit reports the outcome of scanning one storage location. Photos are
compressed to fit the upload budget before sending. If the server is
unreachable the submission is queued locally and replayed on the next
sweep.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()
		ctx := cmd.Context()

		status := place.ScanStatus(submitStatus)
		if !status.Valid() {
			return errors.Newf("unknown status %q (want ok, discrepancy, missing or broken)", submitStatus)
		}
		if app.cfg.Badge == "" {
			return errors.New("no operator badge configured (set badge in config or pass --badge)")
		}

		rec, err := app.gateway.Lookup(ctx, args[0])
		if err != nil {
			return err
		}

		var encoded []string
		if len(submitPhotos) > 0 {
			encoded, err = compressPhotoFiles(ctx, app, submitPhotos)
			if err != nil {
				return err
			}
		}

		sub := place.Submission{
			ClientID:          uuid.NewString(),
			Badge:             app.cfg.Badge,
			PlaceCod:          rec.PlaceCod,
			FactQty:           submitQty,
			Status:            status,
			Comment:           submitComment,
			DiscrepancyReason: submitReason,
			Photos:            encoded,
			ScannedAt:         time.Now(),
		}
		outcome, err := app.gateway.Submit(ctx, sub)
		if err != nil {
			return err
		}

		app.journal.Append(ctx, history.Entry{
			ClientID:  sub.ClientID,
			PlaceCod:  rec.PlaceCod,
			PlaceName: rec.PlaceName,
			Status:    status,
			FactQty:   submitQty,
			Photos:    len(encoded),
			Queued:    outcome.Queued,
			At:        sub.ScannedAt,
		})

		if outcome.Queued {
			fmt.Printf("server unreachable — scan queued locally (%d pending)\n", outcome.Pending)
			return nil
		}
		fmt.Printf("scan for %s recorded\n", rec.PlaceName)
		return nil
	},
}

// compressPhotoFiles runs every attached photo through the pipeline. An
// unreadable or undecodable file fails the submission outright: the
// operator attached it on purpose, so silently dropping it would be
// worse than asking for a retake.
func compressPhotoFiles(ctx context.Context, app *app, paths []string) ([]string, error) {
	raws := make([][]byte, len(paths))
	for i, p := range paths {
		buf, err := os.ReadFile(p)
		if err != nil {
			return nil, errors.Wrapf(err, "reading photo %s", p)
		}
		raws[i] = buf
	}
	outcomes := app.photos.CompressAll(ctx, raws)
	encoded := make([]string, 0, len(outcomes))
	for i, o := range outcomes {
		if o.Err != nil {
			if errors.Is(o.Err, photo.ErrUndecodable) {
				return nil, errors.Wrapf(o.Err, "photo %s", paths[i])
			}
			return nil, o.Err
		}
		if !o.Result.WithinBudget {
			app.log.Warn("photo %s exceeds the upload budget even at minimum quality (%d bytes), attaching anyway",
				paths[i], len(o.Result.Bytes))
		}
		encoded = append(encoded, o.Result.DataURL())
	}
	return encoded, nil
}

func init() {
	submitCmd.Flags().StringVarP(&submitStatus, "status", "s", "", "scan outcome: ok, discrepancy, missing or broken")
	submitCmd.Flags().IntVarP(&submitQty, "qty", "q", 0, "counted item quantity")
	submitCmd.Flags().StringVar(&submitComment, "comment", "", "free-form comment")
	submitCmd.Flags().StringVar(&submitReason, "reason", "", "discrepancy reason")
	submitCmd.Flags().StringSliceVarP(&submitPhotos, "photo", "p", nil, "photo file to attach (repeatable)")
	submitCmd.MarkFlagRequired("status")
	rootCmd.AddCommand(submitCmd)
}
