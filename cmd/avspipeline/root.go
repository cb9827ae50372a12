package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/avs-dob-pipeline/internal/app"
	"github.com/joseph-ayodele/avs-dob-pipeline/internal/pipeline"
)

const service = "avspipeline"

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "avspipeline",
		Short:         "Age verification DOB extraction pipeline",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.AddCommand(newStageCommand(pipeline.StageIntake, "Queue unresolved documents of unverified users for OCR"))
	rootCmd.AddCommand(newStageCommand(pipeline.StageOCR, "Recognize text in queued images"))
	rootCmd.AddCommand(newStageCommand(pipeline.StageDOB, "Extract dates of birth from recognized text"))
	rootCmd.AddCommand(newAllCommand())
	rootCmd.AddCommand(newMigrateCommand())
	rootCmd.AddCommand(newReportCommand())

	return rootCmd
}

// withApp loads and validates configuration for stages, opens the database and
// hands the result to fn. Configuration errors surface before any I/O.
func withApp(cmd *cobra.Command, stages []string, fn func(context.Context, *app.App) error) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, logger, err := app.LoadConfig(service)
	if err != nil {
		return err
	}
	if err := app.Validate(cfg, stages...); err != nil {
		return err
	}
	a, err := app.Open(ctx, service, cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}
