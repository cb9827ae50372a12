package pipeline

import (
	"context"
	"image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/joseph-ayodele/avs-dob-pipeline/internal/entity"
	"github.com/joseph-ayodele/avs-dob-pipeline/internal/llm"
	"github.com/joseph-ayodele/avs-dob-pipeline/internal/ocr"
	"github.com/joseph-ayodele/avs-dob-pipeline/internal/repository"
	"github.com/joseph-ayodele/avs-dob-pipeline/internal/repository/repotest"
)

// textEngine returns canned text for every image it is given.
type textEngine struct {
	text  string
	paths []string
}

func (e *textEngine) Name() string { return "canned" }

func (e *textEngine) Recognize(_ context.Context, path string) (ocr.Result, error) {
	e.paths = append(e.paths, path)
	var block ocr.Block
	for _, ln := range strings.Split(e.text, "\n") {
		var line ocr.Line
		for _, w := range strings.Fields(ln) {
			line.Words = append(line.Words, ocr.Word{Text: w, Confidence: 90})
		}
		block.Lines = append(block.Lines, line)
	}
	return ocr.Result{Pages: []ocr.Page{{Blocks: []ocr.Block{block}}}}, nil
}

type fixedCounter struct{ tokens int }

func (c fixedCounter) Count([]llm.Message) (int, error) { return c.tokens, nil }

// scriptedLLM answers from a queue; once empty it repeats the last entry.
type scriptedLLM struct {
	mu      sync.Mutex
	answers []string
	errs    []error
	calls   int
	onCall  func()
}

func (s *scriptedLLM) Complete(_ context.Context, _ []llm.Message) (llm.Completion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.onCall != nil {
		s.onCall()
	}
	i := s.calls
	s.calls++
	var err error
	if len(s.errs) > 0 {
		err = s.errs[min(i, len(s.errs)-1)]
	}
	if err != nil {
		return llm.Completion{}, err
	}
	return llm.Completion{Content: s.answers[min(i, len(s.answers)-1)]}, nil
}

type countingRecorder struct {
	rows     map[string]int
	cost     float64
	finished []string
}

func newCountingRecorder() *countingRecorder { return &countingRecorder{rows: map[string]int{}} }

func (r *countingRecorder) Row(stage, outcome string) { r.rows[stage+"/"+outcome]++ }
func (r *countingRecorder) Cost(amount float64)       { r.cost += amount }
func (r *countingRecorder) Finished(stage string, _ time.Duration, _ bool) {
	r.finished = append(r.finished, stage)
}

func writeJPEG(t *testing.T, dir, name string) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 16, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 16; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x * 16), G: uint8(y * 32), B: 128, A: 255})
		}
	}
	p := filepath.Join(dir, name)
	f, err := os.Create(p)
	if err != nil {
		t.Fatalf("create %s: %v", p, err)
	}
	defer func() { _ = f.Close() }()
	if err := jpeg.Encode(f, img, nil); err != nil {
		t.Fatalf("encode %s: %v", p, err)
	}
	return p
}

func seedLog(t *testing.T, logs repository.OCRLogRepository, docID int64, fileType, diskPath string) int64 {
	t.Helper()
	doc := entity.Document{ID: docID, UserID: docID * 10, FileType: fileType}
	row := entity.NewOCRLog(doc, "https://verify.example.com/uploads/"+filepath.Base(diskPath), diskPath, time.Now().UTC())
	if err := logs.Create(context.Background(), row); err != nil {
		t.Fatalf("seed log: %v", err)
	}
	all, err := logs.ListAll(context.Background())
	if err != nil {
		t.Fatalf("list logs: %v", err)
	}
	for _, r := range all {
		if r.DocID == docID {
			return r.ID
		}
	}
	t.Fatalf("seeded row for doc %d not found", docID)
	return 0
}

// seedCompleted inserts a row that already went through OCR.
func seedCompleted(t *testing.T, logs repository.OCRLogRepository, docID int64, text string) int64 {
	t.Helper()
	id := seedLog(t, logs, docID, "image/jpeg", "/srv/uploads/doc.jpg")
	if err := logs.CompleteOCR(context.Background(), id, text); err != nil {
		t.Fatalf("complete seed: %v", err)
	}
	return id
}

var discard = repotest.Discard
