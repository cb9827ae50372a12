package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/avs-dob-pipeline/internal/app"
	"github.com/joseph-ayodele/avs-dob-pipeline/internal/export"
	"github.com/joseph-ayodele/avs-dob-pipeline/internal/repository"
)

func newReportCommand() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Write an XLSX report of processing-log rows and LLM cost",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, nil, func(ctx context.Context, a *app.App) error {
				svc := export.NewService(
					repository.NewOCRLogRepository(a.DB, a.Logger),
					repository.NewAPICostRepository(a.DB, a.Logger),
					a.Logger,
				)
				data, err := svc.ReportXLSX(ctx)
				if err != nil {
					return err
				}
				if err := os.WriteFile(out, data, 0o644); err != nil {
					return fmt.Errorf("write %s: %w", out, err)
				}
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (%d bytes)\n", out, len(data))
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "avs-report.xlsx", "Output XLSX path")
	return cmd
}
