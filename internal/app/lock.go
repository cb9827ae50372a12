package app

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/gofrs/flock"

	"github.com/joseph-ayodele/avs-dob-pipeline/internal/common"
	"github.com/joseph-ayodele/avs-dob-pipeline/internal/pipeline"
)

// lockedStage holds an exclusive flock on <dir>/<stage>.lock while the stage
// runs, so an overlapping scheduler invocation fails fast. An empty dir
// disables locking.
type lockedStage struct {
	next   pipeline.Runner
	name   string
	dir    string
	logger *slog.Logger
}

func newLockedStage(next pipeline.Runner, name, dir string, logger *slog.Logger) pipeline.Runner {
	if dir == "" {
		return next
	}
	return &lockedStage{next: next, name: name, dir: dir, logger: logger}
}

func (s *lockedStage) Run(ctx context.Context) (pipeline.StageReport, error) {
	path := filepath.Join(s.dir, s.name+".lock")
	fail := func(err error) (pipeline.StageReport, error) {
		return pipeline.StageReport{Stage: s.name, Err: err}, err
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fail(common.KindError(common.ErrConfig, "create LOCK_DIR", err))
	}
	lock := flock.New(path)
	ok, err := lock.TryLock()
	if err != nil {
		return fail(common.KindError(common.ErrLocked, "acquire "+path, err))
	}
	if !ok {
		s.logger.Warn("stage.lock.busy", "stage", s.name, "lock", path)
		return fail(common.KindError(common.ErrLocked, s.name+" holds "+path, nil))
	}
	defer func() {
		if err := lock.Unlock(); err != nil {
			s.logger.Warn("stage.lock.release_failed", "stage", s.name, "error", err)
		}
	}()

	s.logger.Debug("stage.lock.acquired", "stage", s.name, "lock", path)
	return s.next.Run(ctx)
}
