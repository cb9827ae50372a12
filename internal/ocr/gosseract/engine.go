//go:build gosseract && cgo

// Package gosseract runs tesseract in-process through its C API. It needs cgo
// and the libtesseract headers, so it lives apart from the CLI engine.
package gosseract

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/otiai10/gosseract/v2"

	"github.com/joseph-ayodele/avs-dob-pipeline/internal/ocr"
)

type Config struct {
	Lang        string
	TessdataDir string
}

type Engine struct {
	cfg    Config
	logger *slog.Logger
}

func New(cfg Config, logger *slog.Logger) *Engine {
	if cfg.Lang == "" {
		cfg.Lang = "eng"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{cfg: cfg, logger: logger}
}

func (e *Engine) Name() string { return "gosseract" }

// Recognize opens a fresh client per image; tesseract handles are not safe to share.
func (e *Engine) Recognize(ctx context.Context, imagePath string) (ocr.Result, error) {
	if err := ctx.Err(); err != nil {
		return ocr.Result{}, err
	}
	client := gosseract.NewClient()
	defer func(c *gosseract.Client) {
		if err := c.Close(); err != nil {
			e.logger.Warn("failed to close tesseract client", "error", err)
		}
	}(client)

	if e.cfg.TessdataDir != "" {
		if err := client.SetTessdataPrefix(e.cfg.TessdataDir); err != nil {
			return ocr.Result{}, fmt.Errorf("set tessdata prefix: %w", err)
		}
	}
	if err := client.SetLanguage(e.cfg.Lang); err != nil {
		return ocr.Result{}, fmt.Errorf("set language: %w", err)
	}
	if err := client.SetImage(imagePath); err != nil {
		return ocr.Result{}, fmt.Errorf("set image: %w", err)
	}

	boxes, err := client.GetBoundingBoxesVerbose()
	if err != nil {
		return ocr.Result{}, fmt.Errorf("bounding boxes: %w", err)
	}
	words := make([]ocr.WordBox, 0, len(boxes))
	for _, b := range boxes {
		words = append(words, ocr.WordBox{
			Page:       1,
			Block:      b.BlockNum,
			Par:        b.ParNum,
			Line:       b.LineNum,
			Text:       b.Word,
			Confidence: b.Confidence,
		})
	}
	return ocr.Assemble(words), nil
}
