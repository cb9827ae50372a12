package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

// Main is the body of the single-stage entry points: no arguments, all
// settings from the environment. It returns the process exit code.
func Main(service string, stages ...string) int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, logger, err := LoadConfig(service)
	if err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		return ExitCode(err)
	}
	if err := Validate(cfg, stages...); err != nil {
		logger.Error("config.invalid", "error", err)
		return ExitCode(err)
	}

	a, err := Open(ctx, service, cfg, logger)
	if err != nil {
		logger.Error("startup.failed", "error", err)
		return ExitCode(err)
	}
	defer a.Close()

	reports, err := a.RunStages(ctx, stages...)
	for _, r := range reports {
		logger.Info("stage.summary",
			"stage", r.Stage,
			"run_id", r.RunID,
			"selected", r.Selected,
			"succeeded", r.Succeeded,
			"skipped", r.Skipped,
			"failed", r.Failed,
			"cost", r.Cost,
			"duration_ms", r.Duration.Milliseconds(),
		)
	}
	if err != nil {
		logger.Error("run.failed", "error", err)
	}
	return ExitCode(err)
}
