package ocr

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"os/exec"
	"time"

	"github.com/joseph-ayodele/avs-dob-pipeline/internal/common"
)

// maxStderrLog caps how much of a failing tool's stderr reaches the logs.
const maxStderrLog = 4 << 10

// Runner executes the external helpers the OCR stage depends on (tesseract,
// heif-convert, magick, sips). Tests substitute a fake.
type Runner interface {
	Run(ctx context.Context, name string, logger *slog.Logger, args ...string) (stdout, stderr []byte, err error)
}

// ExecRunner runs helpers as child processes bound to ctx.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, name string, logger *slog.Logger, args ...string) ([]byte, []byte, error) {
	if logger == nil {
		logger = slog.Default()
	}
	bin, err := exec.LookPath(name)
	if err != nil {
		logger.Error("ocr.tool.missing", "tool", name, "error", err)
		return nil, nil, common.KindError(common.ErrConfig, "ocr helper "+name+" not installed", err)
	}

	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	started := time.Now()
	err = cmd.Run()
	attrs := []any{"tool", name, "input", firstArg(args), "elapsed_ms", time.Since(started).Milliseconds()}

	var exitErr *exec.ExitError
	switch {
	case err == nil:
		logger.Debug("ocr.tool.ok", append(attrs, "stdout_bytes", stdout.Len())...)
	case errors.As(err, &exitErr):
		logger.Warn("ocr.tool.exit", append(attrs, "code", exitErr.ExitCode(), "stderr", common.Truncate(stderr.String(), maxStderrLog, "...(truncated)"))...)
	default:
		logger.Error("ocr.tool.failed", append(attrs, "error", err)...)
	}
	return stdout.Bytes(), stderr.Bytes(), err
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
