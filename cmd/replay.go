package main

import (
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/shortsale-cli/internal/model"
)

var (
	replaySince  string
	replayDryRun bool
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Re-send outreach for ledger rows in a time range",
	Long:  "Renders and sends the outreach message again for every local ledger row at or after --since, over the configured notify channel. Use after a gateway outage. Rows without a contact for the channel are skipped.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("replay"); err != nil {
			return err
		}

		var since time.Time
		if replaySince != "" {
			t, err := time.Parse(time.RFC3339, replaySince)
			if err != nil {
				return eris.Wrap(err, "parse --since")
			}
			since = t
		}

		st, err := initStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		rows, err := st.ListLedgerRows(ctx, since)
		if err != nil {
			return err
		}

		notifier, err := initNotifier()
		if err != nil {
			return err
		}

		var sent, failed int
		for _, row := range rows {
			lead := model.Lead{
				Listing: model.Listing{
					ID:        row.ID,
					Address:   row.Address,
					AgentName: row.AgentName,
					DetailURL: row.DetailURL,
				},
				Contact: model.Contact{
					Phone: row.Phone,
					Email: row.Email,
				},
			}

			if replayDryRun {
				zap.L().Info("would re-send",
					zap.String("listing_id", row.ID),
					zap.String("phone", row.Phone),
					zap.String("email", row.Email),
				)
				continue
			}

			if err := notifier.Notify(ctx, lead); err != nil {
				failed++
				zap.L().Warn("replay send failed",
					zap.String("listing_id", row.ID),
					zap.Error(err),
				)
				continue
			}
			sent++
		}

		zap.L().Info("replay complete",
			zap.Int("rows", len(rows)),
			zap.Int("sent", sent),
			zap.Int("failed", failed),
		)
		if failed > 0 {
			return eris.Errorf("replay: %d of %d rows failed", failed, len(rows))
		}
		return nil
	},
}

func init() {
	replayCmd.Flags().StringVar(&replaySince, "since", "", "only rows at or after this RFC3339 timestamp")
	replayCmd.Flags().BoolVar(&replayDryRun, "dry-run", false, "log what would be sent without sending")
	rootCmd.AddCommand(replayCmd)
}
