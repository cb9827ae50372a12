//go:build !(gosseract && cgo)

package app

import (
	"log/slog"

	"github.com/joseph-ayodele/avs-dob-pipeline/internal/common"
	"github.com/joseph-ayodele/avs-dob-pipeline/internal/ocr"
)

func inProcessEngine(common.OCRConfig, *slog.Logger) (ocr.Engine, error) {
	return nil, common.NewAppError("CONFIG_ERROR",
		"OCR_ENGINE=gosseract needs a binary built with cgo and -tags gosseract", common.ErrConfig)
}
