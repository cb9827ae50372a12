package pipeline

import (
	"context"
	"log/slog"
	"time"

	"github.com/joseph-ayodele/avs-dob-pipeline/internal/common"
	"github.com/joseph-ayodele/avs-dob-pipeline/internal/entity"
	"github.com/joseph-ayodele/avs-dob-pipeline/internal/ocr"
	"github.com/joseph-ayodele/avs-dob-pipeline/internal/repository"
)

// TextExtractor produces OCR text for an image on disk.
type TextExtractor interface {
	Extract(ctx context.Context, path, fileType string) (ocr.ExtractionResult, error)
}

// PathResolver maps a stored public URL onto a disk path without checking it.
type PathResolver interface {
	Resolve(docURL string) (string, error)
}

type OCRStage struct {
	Logs      repository.OCRLogRepository
	Extractor TextExtractor
	Resolver  PathResolver // used when a row has no file_disk_path
	Recorder  Recorder
	Logger    *slog.Logger
	now       func() time.Time
}

func NewOCRStage(logs repository.OCRLogRepository, tx TextExtractor, resolver PathResolver, rec Recorder, logger *slog.Logger) *OCRStage {
	if logger == nil {
		logger = slog.Default()
	}
	return &OCRStage{Logs: logs, Extractor: tx, Resolver: resolver, Recorder: orNop(rec), Logger: logger, now: time.Now}
}

// Run recognizes every pending image row and marks it completed. Rows that fail
// or yield no text stay pending for the next run.
func (s *OCRStage) Run(ctx context.Context) (StageReport, error) {
	start := s.now()
	ctx = common.WithStage(common.WithRunID(ctx), StageOCR)
	log := common.LoggerFrom(ctx, s.Logger)
	rep := newReport(StageOCR, common.RunIDFromContext(ctx))

	finish := func(err error) (StageReport, error) {
		rep.Err = err
		rep.Duration = s.now().Sub(start)
		s.Recorder.Finished(StageOCR, rep.Duration, err != nil)
		log.Info("ocr.run.finished",
			"selected", rep.Selected,
			"completed", rep.Succeeded,
			"skipped", rep.TotalSkipped(),
			"failed", rep.TotalFailed(),
			"duration_ms", rep.Duration.Milliseconds(),
		)
		return *rep, err
	}

	rows, err := s.Logs.ListPendingImages(ctx)
	if err != nil {
		log.Error("ocr.run.query_failed", "error", err)
		return finish(err)
	}
	rep.Selected = len(rows)
	log.Info("ocr.run.started", "pending", len(rows))

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return finish(err)
		}
		if err := s.processOne(ctx, log.With("log_id", row.ID, "doc_id", row.DocID), rep, row); err != nil {
			log.Error("ocr.run.aborted", "error", err)
			return finish(err)
		}
	}
	return finish(nil)
}

// processOne returns an error only when the run must stop: a missing OCR
// helper fails every row the same way, so it ends the run as a config error.
func (s *OCRStage) processOne(ctx context.Context, log *slog.Logger, rep *StageReport, row entity.OCRLog) error {
	path, err := s.diskPath(row)
	if err != nil {
		kind := rep.fail(err)
		s.Recorder.Row(StageOCR, kind)
		log.Warn("ocr.row.unresolvable", "file_path", row.FilePath, "error", err)
		return nil
	}

	res, err := s.Extractor.Extract(ctx, path, row.FileType)
	if common.IsKind(err, common.ErrConfig) {
		return err
	}
	if err != nil {
		kind := rep.fail(err)
		s.Recorder.Row(StageOCR, kind)
		log.Warn("ocr.row.failed", "path", path, "kind", kind, "error", err)
		return nil
	}
	if ocr.Blank(res.Text) {
		rep.skip(SkipBlankText)
		s.Recorder.Row(StageOCR, OutcomeSkipped)
		log.Info("ocr.row.skipped", "reason", "no text recognized", "path", path)
		return nil
	}

	if err := s.Logs.CompleteOCR(ctx, row.ID, res.Text); err != nil {
		kind := rep.fail(err)
		s.Recorder.Row(StageOCR, kind)
		log.Error("ocr.row.save_failed", "error", err)
		return nil
	}
	rep.Succeeded++
	s.Recorder.Row(StageOCR, OutcomeSucceeded)
	log.Info("ocr.row.completed",
		"engine", res.Engine,
		"orientation", res.Orientation,
		"rotated", res.Rotated,
		"words", res.Words,
		"confidence", res.Confidence,
		"duration_ms", res.Duration.Milliseconds(),
	)
	return nil
}

func (s *OCRStage) diskPath(row entity.OCRLog) (string, error) {
	if row.FileDiskPath != "" {
		return row.FileDiskPath, nil
	}
	if s.Resolver == nil {
		return "", common.KindError(common.ErrFileNotFound, "no disk path recorded for "+row.FilePath, nil)
	}
	return s.Resolver.Resolve(row.FilePath)
}
