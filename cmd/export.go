package main

import (
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"github.com/tealeg/xlsx/v2"
	"go.uber.org/zap"

	"github.com/sells-group/shortsale-cli/internal/model"
)

var (
	exportOut   string
	exportSince string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the local ledger to an XLSX workbook",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("export"); err != nil {
			return err
		}

		var since time.Time
		if exportSince != "" {
			t, err := time.Parse(time.RFC3339, exportSince)
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

		if err := writeLedgerXLSX(rows, exportOut); err != nil {
			return err
		}

		zap.L().Info("ledger exported",
			zap.Int("rows", len(rows)),
			zap.String("path", exportOut),
		)
		return nil
	},
}

func writeLedgerXLSX(rows []model.LedgerRow, path string) error {
	f := xlsx.NewFile()
	sheet, err := f.AddSheet("Ledger")
	if err != nil {
		return eris.Wrap(err, "export: add sheet")
	}

	header := sheet.AddRow()
	for _, h := range []string{"ID", "Timestamp", "Address", "Agent", "Phone", "Email", "Detail URL"} {
		header.AddCell().Value = h
	}

	for _, row := range rows {
		r := sheet.AddRow()
		r.AddCell().Value = row.ID
		r.AddCell().Value = row.Timestamp.Format(time.RFC3339)
		r.AddCell().Value = row.Address
		r.AddCell().Value = row.AgentName
		r.AddCell().Value = row.Phone
		r.AddCell().Value = row.Email
		r.AddCell().Value = row.DetailURL
	}

	if err := f.Save(path); err != nil {
		return eris.Wrap(err, "export: save workbook")
	}
	return nil
}

func init() {
	exportCmd.Flags().StringVar(&exportOut, "out", "ledger.xlsx", "output file path")
	exportCmd.Flags().StringVar(&exportSince, "since", "", "only rows at or after this RFC3339 timestamp")
	rootCmd.AddCommand(exportCmd)
}
