package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/joseph-ayodele/avs-dob-pipeline/internal/common"
)

// TesseractConfig configures the tesseract CLI engine.
type TesseractConfig struct {
	Bin         string // binary name or absolute path; if empty -> "tesseract"
	Lang        string // default "eng"
	TessdataDir string
	PSM         int // 0 leaves tesseract's default page segmentation
}

// TesseractEngine shells out to `tesseract <img> stdout tsv` and rebuilds the
// layout tree from the TSV word rows.
type TesseractEngine struct {
	cfg    TesseractConfig
	runner Runner
	logger *slog.Logger
}

func NewTesseractEngine(cfg TesseractConfig, runner Runner, logger *slog.Logger) *TesseractEngine {
	if cfg.Bin == "" {
		cfg.Bin = "tesseract"
	}
	if cfg.Lang == "" {
		cfg.Lang = "eng"
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &TesseractEngine{cfg: cfg, runner: runner, logger: logger}
}

func (e *TesseractEngine) Name() string { return "tesseract" }

func (e *TesseractEngine) Recognize(ctx context.Context, imagePath string) (Result, error) {
	args := []string{imagePath, "stdout", "-l", e.cfg.Lang}
	if e.cfg.PSM > 0 {
		args = append(args, "--psm", strconv.Itoa(e.cfg.PSM))
	}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}
	args = append(args, "tsv")

	out, errb, err := e.runner.Run(ctx, e.cfg.Bin, e.logger, args...)
	if err != nil {
		return Result{}, fmt.Errorf("tesseract: %w (%s)", err, common.Truncate(strings.TrimSpace(string(errb)), 512, "...(truncated)"))
	}
	boxes, err := ParseTSV(string(out))
	if err != nil {
		return Result{}, err
	}
	return Assemble(boxes), nil
}

// tesseract TSV columns
const (
	tsvLevel = iota
	tsvPage
	tsvBlock
	tsvPar
	tsvLine
	tsvWord
	tsvLeft
	tsvTop
	tsvWidth
	tsvHeight
	tsvConf
	tsvText
	tsvColumns
)

const tsvWordLevel = 5

// ParseTSV extracts word-level rows from tesseract TSV output.
func ParseTSV(out string) ([]WordBox, error) {
	lines := strings.Split(strings.ReplaceAll(out, "\r\n", "\n"), "\n")
	var boxes []WordBox
	for i, ln := range lines {
		if ln == "" || (i == 0 && strings.HasPrefix(ln, "level")) {
			continue
		}
		cols := strings.SplitN(ln, "\t", tsvColumns)
		if len(cols) < tsvColumns-1 {
			return nil, fmt.Errorf("tesseract tsv line %d: expected %d columns, got %d", i+1, tsvColumns, len(cols))
		}
		level, err := strconv.Atoi(cols[tsvLevel])
		if err != nil {
			return nil, fmt.Errorf("tesseract tsv line %d: level %q: %w", i+1, cols[tsvLevel], err)
		}
		if level != tsvWordLevel || len(cols) < tsvColumns {
			continue
		}
		nums := make([]int, 0, 4)
		for _, c := range []int{tsvPage, tsvBlock, tsvPar, tsvLine} {
			n, err := strconv.Atoi(cols[c])
			if err != nil {
				return nil, fmt.Errorf("tesseract tsv line %d: column %d: %w", i+1, c, err)
			}
			nums = append(nums, n)
		}
		conf, err := strconv.ParseFloat(cols[tsvConf], 64)
		if err != nil {
			conf = -1
		}
		boxes = append(boxes, WordBox{
			Page:       nums[0],
			Block:      nums[1],
			Par:        nums[2],
			Line:       nums[3],
			Text:       cols[tsvText],
			Confidence: conf,
		})
	}
	return boxes, nil
}
