// Package app wires configuration, the database and the stages together for
// the command-line entry points.
package app

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"time"

	"github.com/joseph-ayodele/avs-dob-pipeline/internal/common"
	"github.com/joseph-ayodele/avs-dob-pipeline/internal/observability/logging"
	"github.com/joseph-ayodele/avs-dob-pipeline/internal/observability/metrics"
	"github.com/joseph-ayodele/avs-dob-pipeline/internal/pipeline"
	"github.com/joseph-ayodele/avs-dob-pipeline/internal/repository"
)

// PushJob is the Pushgateway job every entry point pushes under.
const PushJob = "avs_pipeline"

type App struct {
	Cfg     *common.Config
	Logger  *slog.Logger
	DB      *repository.DB
	Metrics *metrics.StageMetrics
}

// LoadConfig reads ENV_FILE (default .env) and the environment, then installs
// the JSON logger as the slog default.
func LoadConfig(service string) (*common.Config, *slog.Logger, error) {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := common.LoadEnvFile(envFile); err != nil {
		return nil, nil, err
	}
	cfg := common.LoadConfig()
	logger := logging.NewJSONLogger(service, cfg.Runtime.LogLevel)
	slog.SetDefault(logger)
	return cfg, logger, nil
}

// Validate checks the configuration every named stage needs. With no stages
// only the database settings are checked.
func Validate(cfg *common.Config, stages ...string) error {
	if len(stages) == 0 {
		return cfg.ValidateDatabase()
	}
	for _, st := range stages {
		var err error
		switch st {
		case pipeline.StageIntake:
			err = cfg.ValidateIntake()
		case pipeline.StageOCR:
			err = cfg.ValidateOCR()
		case pipeline.StageDOB:
			err = cfg.ValidateDOB()
		default:
			err = common.NewAppError("CONFIG_ERROR", "unknown stage "+st, common.ErrConfig)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Open connects to the database. The caller owns Close.
func Open(ctx context.Context, service string, cfg *common.Config, logger *slog.Logger) (*App, error) {
	db, err := repository.Open(ctx, repository.ConfigFrom(cfg.Database), logger)
	if err != nil {
		return nil, err
	}
	return &App{
		Cfg:     cfg,
		Logger:  logger,
		DB:      db,
		Metrics: metrics.NewStageMetrics(service),
	}, nil
}

// Close pushes the run metrics when a Pushgateway is configured and releases
// the database.
func (a *App) Close() {
	if url := a.Cfg.Runtime.PushgatewayURL; url != "" {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := a.Metrics.Push(ctx, url, PushJob); err != nil {
			a.Logger.Warn("metrics.push.failed", "url", url, "error", err)
		} else {
			a.Logger.Debug("metrics.push.ok", "url", url)
		}
	}
	repository.Close(a.DB, a.Logger)
}

// ExitCode maps a run error onto the process exit status: 2 for configuration
// errors, 1 for anything else.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, common.ErrConfig):
		return 2
	default:
		return 1
	}
}
