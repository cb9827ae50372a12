package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/joseph-ayodele/avs-dob-pipeline/constants"
	"github.com/joseph-ayodele/avs-dob-pipeline/internal/common"
	"github.com/joseph-ayodele/avs-dob-pipeline/internal/ocr"
	"github.com/joseph-ayodele/avs-dob-pipeline/internal/repository"
	"github.com/joseph-ayodele/avs-dob-pipeline/internal/repository/repotest"
)

func newOCRStage(t *testing.T, engine ocr.Engine) (*OCRStage, repository.OCRLogRepository) {
	t.Helper()
	db := repotest.Open(t)
	logs := repository.NewOCRLogRepository(db, discard())
	x := ocr.NewExtractor(ocr.Config{TempDir: t.TempDir()}, engine, nil, discard())
	return NewOCRStage(logs, x, nil, nil, discard()), logs
}

func TestOCRStageCompletesRowsWithText(t *testing.T) {
	engine := &textEngine{text: "IDENTITY CARD\nDOB: 1990-05-14"}
	st, logs := newOCRStage(t, engine)
	dir := t.TempDir()
	id := seedLog(t, logs, 1, "image/jpeg", writeJPEG(t, dir, "a.jpg"))
	pdf := seedLog(t, logs, 2, constants.MIMEPDF, filepath.Join(dir, "b.pdf"))

	rep, err := st.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if rep.Selected != 1 || rep.Succeeded != 1 {
		t.Fatalf("pdf rows must not be selected: %+v", rep)
	}

	row, _ := logs.GetByID(context.Background(), id)
	if row.ReadStatus != constants.ReadStatusCompleted || row.Text() != "IDENTITY CARD\nDOB: 1990-05-14" {
		t.Fatalf("unexpected row: %+v", row)
	}
	untouched, _ := logs.GetByID(context.Background(), pdf)
	if untouched.ReadStatus != constants.ReadStatusPending {
		t.Fatalf("pdf row changed: %+v", untouched)
	}
	if len(engine.paths) != 1 || engine.paths[0] == row.FileDiskPath {
		t.Fatalf("engine should see a corrected temp copy, saw %v", engine.paths)
	}
}

func TestOCRStageBlankTextLeavesRowPending(t *testing.T) {
	st, logs := newOCRStage(t, &textEngine{text: "   \n  "})
	id := seedLog(t, logs, 1, "image/jpeg", writeJPEG(t, t.TempDir(), "blank.jpg"))

	rep, err := st.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if rep.Skipped[SkipBlankText] != 1 || rep.Succeeded != 0 {
		t.Fatalf("unexpected report: %+v", rep)
	}
	row, _ := logs.GetByID(context.Background(), id)
	if row.ReadStatus != constants.ReadStatusPending || row.ResponseData != nil {
		t.Fatalf("blank OCR must not complete the row: %+v", row)
	}
}

func TestOCRStageFailureIsolation(t *testing.T) {
	st, logs := newOCRStage(t, &textEngine{text: "DOB 1990-05-14"})
	dir := t.TempDir()
	corrupt := filepath.Join(dir, "corrupt.jpg")
	if err := os.WriteFile(corrupt, []byte{0xFF, 0xD8, 0xFF, 0x00, 0x01}, 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	bad := seedLog(t, logs, 1, "image/jpeg", corrupt)
	missing := seedLog(t, logs, 2, "image/jpeg", filepath.Join(dir, "missing.jpg"))
	good := seedLog(t, logs, 3, "image/jpeg", writeJPEG(t, dir, "good.jpg"))

	rep, err := st.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if rep.Succeeded != 1 || rep.Failed["image_decode"] != 1 || rep.Failed["file_not_found"] != 1 {
		t.Fatalf("unexpected report: %+v", rep)
	}

	ctx := context.Background()
	for _, id := range []int64{bad, missing} {
		row, _ := logs.GetByID(ctx, id)
		if row.ReadStatus != constants.ReadStatusPending || row.ResponseData != nil {
			t.Fatalf("failed row %d must stay untouched: %+v", id, row)
		}
	}
	row, _ := logs.GetByID(ctx, good)
	if row.ReadStatus != constants.ReadStatusCompleted {
		t.Fatalf("valid row must complete despite earlier failures: %+v", row)
	}
}

type failingEngine struct{}

func (failingEngine) Name() string { return "broken" }
func (failingEngine) Recognize(context.Context, string) (ocr.Result, error) {
	return ocr.Result{}, errors.New("model not loaded")
}

func TestOCRStageEngineFailureIsPerRow(t *testing.T) {
	st, logs := newOCRStage(t, failingEngine{})
	dir := t.TempDir()
	seedLog(t, logs, 1, "image/jpeg", writeJPEG(t, dir, "a.jpg"))
	seedLog(t, logs, 2, "image/jpeg", writeJPEG(t, dir, "b.jpg"))

	rep, err := st.Run(context.Background())
	if err != nil {
		t.Fatalf("engine failures must not abort the run: %v", err)
	}
	if rep.Failed["ocr"] != 2 {
		t.Fatalf("unexpected report: %+v", rep)
	}
}

type staticResolver map[string]string

func (r staticResolver) Resolve(u string) (string, error) {
	if p, ok := r[u]; ok {
		return p, nil
	}
	return "", common.KindError(common.ErrInvalidInput, u, nil)
}

func TestOCRStageResolvesRowsWithoutDiskPath(t *testing.T) {
	db := repotest.Open(t)
	logs := repository.NewOCRLogRepository(db, discard())
	img := writeJPEG(t, t.TempDir(), "legacy.jpg")
	if _, err := db.SQL().Exec(
		`INSERT INTO ocr_logs (doc_id, user_id, file_path, file_type, status, read_status) VALUES (?, ?, ?, ?, ?, ?)`,
		7, 70, "https://verify.example.com/uploads/legacy.jpg", "image/jpeg", "0", "pending",
	); err != nil {
		t.Fatalf("insert legacy row: %v", err)
	}
	x := ocr.NewExtractor(ocr.Config{TempDir: t.TempDir()}, &textEngine{text: "hello"}, nil, discard())
	st := NewOCRStage(logs, x, staticResolver{"https://verify.example.com/uploads/legacy.jpg": img}, nil, discard())

	rep, err := st.Run(context.Background())
	if err != nil || rep.Succeeded != 1 {
		t.Fatalf("Run() = %+v, %v", rep, err)
	}
}

func TestOCRStageMissingBinaryAbortsAsConfigError(t *testing.T) {
	engine := ocr.NewTesseractEngine(ocr.TesseractConfig{Bin: "avs-no-such-tesseract"}, ocr.ExecRunner{}, discard())
	st, logs := newOCRStage(t, engine)
	dir := t.TempDir()
	first := seedLog(t, logs, 1, "image/jpeg", writeJPEG(t, dir, "one.jpg"))
	seedLog(t, logs, 2, "image/jpeg", writeJPEG(t, dir, "two.jpg"))

	rep, err := st.Run(context.Background())
	if !errors.Is(err, common.ErrConfig) {
		t.Fatalf("Run() error = %v, want ErrConfig", err)
	}
	if rep.Succeeded != 0 || rep.TotalFailed() != 0 {
		t.Fatalf("a missing binary is not a row failure: %+v", rep)
	}
	row, _ := logs.GetByID(context.Background(), first)
	if row.ReadStatus != constants.ReadStatusPending {
		t.Fatalf("row must stay pending: %+v", row)
	}
}
