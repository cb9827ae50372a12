package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/avs-dob-pipeline/internal/app"
	"github.com/joseph-ayodele/avs-dob-pipeline/internal/pipeline"
)

func newStageCommand(stage, short string) *cobra.Command {
	return &cobra.Command{
		Use:   stage,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStages(cmd, stage)
		},
	}
}

func newAllCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "all",
		Short: "Run intake, ocr and dob in order, stopping at the first fatal error",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStages(cmd, pipeline.StageIntake, pipeline.StageOCR, pipeline.StageDOB)
		},
	}
}

func runStages(cmd *cobra.Command, stages ...string) error {
	return withApp(cmd, stages, func(ctx context.Context, a *app.App) error {
		reports, err := a.RunStages(ctx, stages...)
		if len(reports) > 0 {
			pipeline.RenderReports(cmd.OutOrStdout(), reports)
		}
		return err
	})
}
