package ocr

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/joseph-ayodele/avs-dob-pipeline/internal/common"
)

// HEIC converters understood by convertHEICtoPNG.
const (
	ConverterHeifConvert = "heif-convert"
	ConverterMagick      = "magick"
	ConverterSips        = "sips"
)

// convertHEICtoPNG converts a HEIC/HEIF file to a PNG inside tmpDir using the
// chosen external converter. The caller owns tmpDir.
func convertHEICtoPNG(ctx context.Context, r Runner, logger *slog.Logger, converter, in, tmpDir string) (string, error) {
	out := filepath.Join(tmpDir, "heic.png")

	var (
		errb []byte
		err  error
	)
	switch converter {
	case ConverterHeifConvert:
		_, errb, err = r.Run(ctx, "heif-convert", logger, in, out)
	case ConverterMagick:
		_, errb, err = r.Run(ctx, "magick", logger, in, out)
	case ConverterSips:
		_, errb, err = r.Run(ctx, "sips", logger, "-s", "format", "png", in, "--out", out)
	default:
		return "", fmt.Errorf("HEIC not supported: set HEIC_CONVERTER to one of: heif-convert | magick | sips")
	}
	if err != nil {
		return "", fmt.Errorf("%s convert failed: %w (%s)", converter, err, common.Truncate(string(errb), 512, "...(truncated)"))
	}

	if _, statErr := os.Stat(out); statErr != nil {
		return "", fmt.Errorf("HEIC conversion produced no output: %v", statErr)
	}
	logger.Debug("converted heic to png", "src", in, "converter", converter)
	return out, nil
}
