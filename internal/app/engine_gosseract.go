//go:build gosseract && cgo

package app

import (
	"log/slog"

	"github.com/joseph-ayodele/avs-dob-pipeline/internal/common"
	"github.com/joseph-ayodele/avs-dob-pipeline/internal/ocr"
	"github.com/joseph-ayodele/avs-dob-pipeline/internal/ocr/gosseract"
)

func inProcessEngine(c common.OCRConfig, logger *slog.Logger) (ocr.Engine, error) {
	return gosseract.New(gosseract.Config{Lang: c.TesseractLang, TessdataDir: c.TessdataDir}, logger), nil
}
