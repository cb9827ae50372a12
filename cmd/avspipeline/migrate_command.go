package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/avs-dob-pipeline/internal/app"
	"github.com/joseph-ayodele/avs-dob-pipeline/internal/repository"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the ocr_logs and ocr_api_cost tables if missing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, nil, func(ctx context.Context, a *app.App) error {
				return repository.EnsureSchema(ctx, a.DB, a.Logger)
			})
		},
	}
}
