package ocr

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"

	"github.com/joseph-ayodele/avs-dob-pipeline/constants"
	"github.com/joseph-ayodele/avs-dob-pipeline/internal/common"
)

// Engine turns an upright image file into a layout tree of recognized words.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, imagePath string) (Result, error)
}

type Config struct {
	HeicConverter string // heif-convert | magick | sips
	TempDir       string // parent for per-document scratch dirs; "" -> os.TempDir()
}

type ExtractionResult struct {
	Text        string
	Pages       int
	Words       int
	Orientation int
	Rotated     bool
	Engine      string
	Confidence  float32
	Duration    time.Duration
}

// Extractor runs one document through HEIC conversion, orientation correction
// and the configured Engine.
type Extractor struct {
	cfg    Config
	engine Engine
	runner Runner
	logger *slog.Logger
}

func NewExtractor(cfg Config, engine Engine, runner Runner, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Extractor{cfg: cfg, engine: engine, runner: runner, logger: logger}
}

func (e *Extractor) EngineName() string { return e.engine.Name() }

// Extract recognizes the text of the image at path. fileType is the stored MIME
// type and only decides whether HEIC conversion is needed. Scratch files live in
// a private temp dir that is removed before returning.
func (e *Extractor) Extract(ctx context.Context, path, fileType string) (ExtractionResult, error) {
	start := time.Now()
	res := ExtractionResult{Engine: e.engine.Name(), Orientation: OrientationNormal}

	tmpDir, err := os.MkdirTemp(e.cfg.TempDir, "avs-ocr-*")
	if err != nil {
		return res, common.KindError(common.ErrOCR, "create scratch dir", err)
	}
	defer func(dir string) {
		if err := os.RemoveAll(dir); err != nil {
			e.logger.Warn("failed to remove ocr scratch dir", "dir", dir, "error", err)
		}
	}(tmpDir)

	src := path
	if constants.IsHEICMIME(fileType) || constants.IsHEICExt(filepath.Ext(path)) {
		out, err := convertHEICtoPNG(ctx, e.runner, e.logger, e.cfg.HeicConverter, path, tmpDir)
		if err != nil {
			return res, common.KindError(common.ErrImageDecode, "convert heic "+path, err)
		}
		src = out
	}

	data, err := os.ReadFile(src)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return res, common.KindError(common.ErrFileNotFound, src, err)
		}
		return res, common.KindError(common.ErrImageDecode, "read "+src, err)
	}

	img, orientation, err := DecodeOriented(data)
	if err != nil {
		return res, common.KindError(common.ErrImageDecode, "decode "+src, err)
	}
	res.Orientation = orientation
	res.Rotated = Rotates(orientation)

	corrected := filepath.Join(tmpDir, "corrected.png")
	if err := imaging.Save(img, corrected); err != nil {
		return res, common.KindError(common.ErrImageDecode, "write corrected image", err)
	}
	defer func() {
		if err := os.Remove(corrected); err != nil && !errors.Is(err, fs.ErrNotExist) {
			e.logger.Warn("failed to remove corrected image", "path", corrected, "error", err)
		}
	}()

	out, err := e.engine.Recognize(ctx, corrected)
	if err != nil {
		return res, common.KindError(common.ErrOCR, e.engine.Name()+" recognize "+path, err)
	}

	res.Text = out.Text()
	res.Pages = len(out.Pages)
	res.Words = out.WordCount()
	res.Confidence = out.MeanConfidence()
	res.Duration = time.Since(start)
	e.logger.Debug("ocr extraction finished",
		"path", path,
		"engine", res.Engine,
		"orientation", orientation,
		"words", res.Words,
		"duration_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

// Blank reports whether OCR text carries nothing worth storing.
func Blank(text string) bool {
	return strings.TrimSpace(text) == ""
}
