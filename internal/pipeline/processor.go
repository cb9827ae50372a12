package pipeline

import (
	"context"
	"log/slog"
)

// Runner is one stage run.
type Runner interface {
	Run(ctx context.Context) (StageReport, error)
}

// Processor runs intake, OCR and DOB in order, the sequence a scheduler would
// run. A fatal error in one stage stops the sequence.
type Processor struct {
	Logger *slog.Logger
	Stages []Runner
}

func NewProcessor(logger *slog.Logger, stages ...Runner) *Processor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Processor{Logger: logger, Stages: stages}
}

// RunAll returns the reports of every stage that ran, including the one that
// failed.
func (p *Processor) RunAll(ctx context.Context) ([]StageReport, error) {
	reports := make([]StageReport, 0, len(p.Stages))
	for _, st := range p.Stages {
		rep, err := st.Run(ctx)
		reports = append(reports, rep)
		if err != nil {
			p.Logger.Error("processor.stage.failed", "stage", rep.Stage, "run_id", rep.RunID, "err", err)
			return reports, err
		}
		p.Logger.Info("processor.stage.ok", "stage", rep.Stage, "run_id", rep.RunID, "succeeded", rep.Succeeded)
	}
	return reports, nil
}
