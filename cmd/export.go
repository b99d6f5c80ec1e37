package main

import (
	"context"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/provider-cli/internal/report"
	"github.com/sells-group/provider-cli/internal/store"
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export stored providers to a CSV or XLSX report",
	RunE: func(cmd *cobra.Command, _ []string) error {
		output, _ := cmd.Flags().GetString("output")
		statusFlag, _ := cmd.Flags().GetString("status")
		limit, _ := cmd.Flags().GetInt("limit")
		return runExport(cmd.Context(), output, statusFlag, limit)
	},
}

func runExport(ctx context.Context, output, statusFlag string, limit int) error {
	if output == "" {
		return eris.New("export: --output is required")
	}
	status, err := parseStatus(statusFlag)
	if err != nil {
		return err
	}

	st, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer st.Close() //nolint:errcheck

	providers, err := st.ListProviders(ctx, store.ProviderFilter{Status: status, Limit: limit})
	if err != nil {
		return eris.Wrap(err, "export")
	}
	if err := report.WriteFile(output, report.StoredRows(providers)); err != nil {
		return err
	}

	zap.L().Info("export complete", zap.String("path", output), zap.Int("providers", len(providers)))
	return nil
}

func init() {
	exportCmd.Flags().String("output", "", "report path (.csv or .xlsx)")
	exportCmd.Flags().String("status", "", "only export providers with this final status")
	exportCmd.Flags().Int("limit", 10000, "max number of providers to export")
	rootCmd.AddCommand(exportCmd)
}
