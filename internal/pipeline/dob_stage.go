package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/avs-dob-pipeline/internal/common"
	"github.com/joseph-ayodele/avs-dob-pipeline/internal/entity"
	"github.com/joseph-ayodele/avs-dob-pipeline/internal/llm"
	"github.com/joseph-ayodele/avs-dob-pipeline/internal/ocr"
	"github.com/joseph-ayodele/avs-dob-pipeline/internal/repository"
)

const maxReasonLen = 500

type DOBConfig struct {
	TokenCost float64 // price per 1000 prompt tokens
	Model     string  // informational, logged with every attempt
}

// DOBStage asks the LLM for the date of birth in each OCR'd row. The estimated
// cost is recorded before every request, so failed requests are paid for too.
type DOBStage struct {
	Cfg       DOBConfig
	Logs      repository.OCRLogRepository
	Costs     repository.APICostRepository
	Completer llm.ChatCompleter
	Tokens    llm.TokenCounter
	Recorder  Recorder
	Logger    *slog.Logger
	now       func() time.Time
}

func NewDOBStage(cfg DOBConfig, logs repository.OCRLogRepository, costs repository.APICostRepository, completer llm.ChatCompleter, tokens llm.TokenCounter, rec Recorder, logger *slog.Logger) *DOBStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &DOBStage{
		Cfg:       cfg,
		Logs:      logs,
		Costs:     costs,
		Completer: completer,
		Tokens:    tokens,
		Recorder:  orNop(rec),
		Logger:    logger,
		now:       time.Now,
	}
}

// Run processes every row with OCR text and status '0'. A single LLM failure
// marks only that row failed; an open circuit breaker stops the run and leaves
// the remaining rows at '0'.
func (s *DOBStage) Run(ctx context.Context) (StageReport, error) {
	start := s.now()
	ctx = common.WithStage(common.WithRunID(ctx), StageDOB)
	log := common.LoggerFrom(ctx, s.Logger)
	rep := newReport(StageDOB, common.RunIDFromContext(ctx))

	finish := func(err error) (StageReport, error) {
		rep.Err = err
		rep.Duration = s.now().Sub(start)
		s.Recorder.Finished(StageDOB, rep.Duration, err != nil)
		log.Info("dob.run.finished",
			"selected", rep.Selected,
			"extracted", rep.Succeeded,
			"skipped", rep.TotalSkipped(),
			"failed", rep.TotalFailed(),
			"cost", rep.Cost,
			"duration_ms", rep.Duration.Milliseconds(),
		)
		return *rep, err
	}

	rows, err := s.Logs.ListAwaitingDOB(ctx)
	if err != nil {
		log.Error("dob.run.query_failed", "error", err)
		return finish(err)
	}
	rep.Selected = len(rows)
	log.Info("dob.run.started", "awaiting", len(rows), "model", s.Cfg.Model)

	gate, _ := s.Completer.(llm.Gate)
	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return finish(err)
		}
		if gate != nil {
			if err := gate.Ready(); err != nil {
				log.Error("dob.run.aborted", "reason", "llm endpoint failing", "error", err)
				return finish(err)
			}
		}
		if err := s.processOne(ctx, log.With("log_id", row.ID, "doc_id", row.DocID), rep, row); err != nil {
			log.Error("dob.run.aborted", "error", err)
			return finish(err)
		}
	}
	return finish(nil)
}

// processOne returns an error only when the run must stop.
func (s *DOBStage) processOne(ctx context.Context, log *slog.Logger, rep *StageReport, row entity.OCRLog) error {
	text := row.Text()
	if ocr.Blank(text) {
		rep.skip(SkipBlankText)
		s.Recorder.Row(StageDOB, OutcomeSkipped)
		log.Warn("dob.row.skipped", "reason", "completed row without text")
		return nil
	}

	messages := llm.BuildDOBMessages(text)
	tokens, err := s.Tokens.Count(messages)
	if err != nil {
		kind := rep.fail(err)
		s.Recorder.Row(StageDOB, kind)
		log.Error("dob.row.token_count_failed", "error", err)
		return nil
	}
	cost := llm.EstimateCost(tokens, s.Cfg.TokenCost)
	if _, err := s.Costs.Insert(ctx, row.ID, cost); err != nil {
		// no cost record, no request: the row stays at '0'
		kind := rep.fail(err)
		s.Recorder.Row(StageDOB, kind)
		log.Error("dob.cost.record_failed", "tokens", tokens, "cost", cost, "error", err)
		return nil
	}
	rep.Cost += cost
	s.Recorder.Cost(cost)
	log.Info("dob.cost.recorded", "tokens", tokens, "cost", cost)

	outcome, callErr := s.extract(ctx, messages)
	if common.IsKind(callErr, common.ErrCircuitOpen) {
		return callErr
	}

	if err := s.Logs.SaveDOBOutcome(ctx, row.ID, outcome); err != nil {
		kind := rep.fail(err)
		s.Recorder.Row(StageDOB, kind)
		log.Error("dob.row.save_failed", "status", string(outcome.Status), "error", err)
		return nil
	}

	if outcome.Succeeded() {
		rep.Succeeded++
		s.Recorder.Row(StageDOB, OutcomeSucceeded)
		log.Info("dob.row.extracted")
		return nil
	}
	kind := rep.fail(callErr)
	s.Recorder.Row(StageDOB, kind)
	log.Warn("dob.row.failed", "kind", kind, "reason", outcome.Reason)
	return nil
}

// extract calls the LLM and validates the answer. The error is the reason the
// outcome is a failure, or nil on success.
func (s *DOBStage) extract(ctx context.Context, messages []llm.Message) (entity.DOBOutcome, error) {
	comp, err := s.Completer.Complete(ctx, messages)
	if err != nil {
		if !common.IsKind(err, common.ErrLLM) && !common.IsKind(err, common.ErrCircuitOpen) {
			err = common.KindError(common.ErrLLM, "chat completion", err)
		}
		return entity.DOBFailed(reason(err)), err
	}
	dob, err := llm.ValidateDOB(comp.Content)
	if err != nil {
		return entity.DOBFailed(reason(err)), err
	}
	return entity.DOBExtracted(dob), nil
}

func reason(err error) string {
	return common.Truncate(err.Error(), maxReasonLen, "")
}
