package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/avs-dob-pipeline/constants"
	"github.com/joseph-ayodele/avs-dob-pipeline/internal/common"
	"github.com/joseph-ayodele/avs-dob-pipeline/internal/entity"
	"github.com/joseph-ayodele/avs-dob-pipeline/internal/repository"
)

// Locator maps a stored document URL onto an existing file on disk.
type Locator interface {
	Locate(docURL string) (string, error)
}

// IntakeStage turns unresolved documents of unverified users into pending
// ocr_logs rows.
type IntakeStage struct {
	Docs     repository.DocumentRepository
	Logs     repository.OCRLogRepository
	Locator  Locator
	Policy   constants.IntakePolicy
	Recorder Recorder
	Logger   *slog.Logger
	now      func() time.Time
}

func NewIntakeStage(docs repository.DocumentRepository, logs repository.OCRLogRepository, loc Locator, policy constants.IntakePolicy, rec Recorder, logger *slog.Logger) *IntakeStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &IntakeStage{
		Docs:     docs,
		Logs:     logs,
		Locator:  loc,
		Policy:   policy,
		Recorder: orNop(rec),
		Logger:   logger,
		now:      time.Now,
	}
}

// Run reads the candidate snapshot once and inserts one row per document that
// exists on disk and is not logged yet. Only a failed snapshot query or a
// cancelled context stops the run.
func (s *IntakeStage) Run(ctx context.Context) (StageReport, error) {
	start := s.now()
	ctx = common.WithStage(common.WithRunID(ctx), StageIntake)
	log := common.LoggerFrom(ctx, s.Logger)
	rep := newReport(StageIntake, common.RunIDFromContext(ctx))

	finish := func(err error) (StageReport, error) {
		rep.Err = err
		rep.Duration = s.now().Sub(start)
		s.Recorder.Finished(StageIntake, rep.Duration, err != nil)
		log.Info("intake.run.finished",
			"selected", rep.Selected,
			"inserted", rep.Succeeded,
			"skipped", rep.TotalSkipped(),
			"failed", rep.TotalFailed(),
			"duration_ms", rep.Duration.Milliseconds(),
		)
		return *rep, err
	}

	docs, err := s.Docs.ListCandidates(ctx)
	if err != nil {
		log.Error("intake.run.query_failed", "error", err)
		return finish(err)
	}
	selected := SelectDocuments(docs, s.Policy)
	rep.Selected = len(selected)
	if dropped := len(docs) - len(selected); dropped > 0 {
		rep.Skipped[SkipPolicy] += dropped
	}
	log.Info("intake.run.started", "candidates", len(docs), "selected", len(selected), "policy", string(s.Policy))

	for _, doc := range selected {
		if err := ctx.Err(); err != nil {
			return finish(err)
		}
		s.processOne(ctx, log.With("doc_id", doc.ID, "user_id", doc.UserID), rep, doc)
	}
	return finish(nil)
}

func (s *IntakeStage) processOne(ctx context.Context, log *slog.Logger, rep *StageReport, doc entity.Document) {
	diskPath, err := s.Locator.Locate(doc.URL)
	if err != nil {
		kind := rep.fail(err)
		s.Recorder.Row(StageIntake, kind)
		event := "intake.row.file_missing"
		if common.IsKind(err, common.ErrInvalidInput) {
			event = "intake.row.invalid_url"
		}
		log.Warn(event, "doc_url", doc.URL, "path", diskPath, "error", err)
		return
	}

	exists, err := s.Logs.Exists(ctx, doc.ID, doc.UserID)
	if err != nil {
		kind := rep.fail(err)
		s.Recorder.Row(StageIntake, kind)
		log.Error("intake.row.duplicate_check_failed", "error", err)
		return
	}
	if exists {
		rep.skip(SkipDuplicate)
		s.Recorder.Row(StageIntake, OutcomeSkipped)
		log.Info("intake.row.duplicate", "reason", common.ErrDuplicate.Error())
		return
	}

	row := entity.NewOCRLog(doc, doc.URL, diskPath, s.now().UTC())
	if err := s.Logs.Create(ctx, row); err != nil {
		kind := rep.fail(err)
		s.Recorder.Row(StageIntake, kind)
		log.Error("intake.row.insert_failed", "error", err)
		return
	}
	rep.Succeeded++
	s.Recorder.Row(StageIntake, OutcomeSucceeded)
	log.Info("intake.row.inserted", "path", diskPath, "file_type", doc.FileType)
}

// SelectDocuments applies the intake policy to candidates ordered by user then
// newest document first. most_recent keeps the first document seen per user.
func SelectDocuments(docs []entity.Document, policy constants.IntakePolicy) []entity.Document {
	if p, _ := constants.ParseIntakePolicy(string(policy)); p == constants.IntakeAll {
		return docs
	}
	out := make([]entity.Document, 0, len(docs))
	seen := make(map[int64]struct{}, len(docs))
	for _, d := range docs {
		if _, ok := seen[d.UserID]; ok {
			continue
		}
		seen[d.UserID] = struct{}{}
		out = append(out, d)
	}
	return out
}
