package app

import (
	"context"

	"github.com/joseph-ayodele/avs-dob-pipeline/constants"
	"github.com/joseph-ayodele/avs-dob-pipeline/internal/common"
	"github.com/joseph-ayodele/avs-dob-pipeline/internal/ingest"
	"github.com/joseph-ayodele/avs-dob-pipeline/internal/llm"
	"github.com/joseph-ayodele/avs-dob-pipeline/internal/llm/openai"
	"github.com/joseph-ayodele/avs-dob-pipeline/internal/ocr"
	"github.com/joseph-ayodele/avs-dob-pipeline/internal/pipeline"
	"github.com/joseph-ayodele/avs-dob-pipeline/internal/repository"
)

// Stage builds the named stage, guarded by the stage lock when LOCK_DIR is set.
func (a *App) Stage(name string) (pipeline.Runner, error) {
	var (
		st  pipeline.Runner
		err error
	)
	switch name {
	case pipeline.StageIntake:
		st = a.intakeStage()
	case pipeline.StageOCR:
		st, err = a.ocrStage()
	case pipeline.StageDOB:
		st, err = a.dobStage()
	default:
		return nil, common.NewAppError("CONFIG_ERROR", "unknown stage "+name, common.ErrConfig)
	}
	if err != nil {
		return nil, err
	}
	return newLockedStage(st, name, a.Cfg.Runtime.LockDir, a.Logger), nil
}

// RunStages runs the named stages in order and stops at the first fatal error.
func (a *App) RunStages(ctx context.Context, names ...string) ([]pipeline.StageReport, error) {
	stages := make([]pipeline.Runner, 0, len(names))
	for _, n := range names {
		st, err := a.Stage(n)
		if err != nil {
			return nil, err
		}
		stages = append(stages, st)
	}
	return pipeline.NewProcessor(a.Logger, stages...).RunAll(ctx)
}

func (a *App) intakeStage() *pipeline.IntakeStage {
	policy, _ := constants.ParseIntakePolicy(string(a.Cfg.Intake.Policy))
	return pipeline.NewIntakeStage(
		repository.NewDocumentRepository(a.DB, a.Logger),
		repository.NewOCRLogRepository(a.DB, a.Logger),
		ingest.NewResolver(a.Cfg.Storage),
		policy,
		a.Metrics,
		a.Logger,
	)
}

func (a *App) ocrStage() (*pipeline.OCRStage, error) {
	engine, err := a.ocrEngine()
	if err != nil {
		return nil, err
	}
	extractor := ocr.NewExtractor(ocr.Config{
		HeicConverter: a.Cfg.OCR.HeicConverter,
		TempDir:       a.Cfg.OCR.TempDir,
	}, engine, ocr.ExecRunner{}, a.Logger)
	a.Logger.Info("ocr.engine.ready", "engine", extractor.EngineName())

	return pipeline.NewOCRStage(
		repository.NewOCRLogRepository(a.DB, a.Logger),
		extractor,
		ingest.NewResolver(a.Cfg.Storage),
		a.Metrics,
		a.Logger,
	), nil
}

func (a *App) ocrEngine() (ocr.Engine, error) {
	c := a.Cfg.OCR
	switch c.Engine {
	case "", "tesseract":
		return ocr.NewTesseractEngine(ocr.TesseractConfig{
			Bin:         c.Tesseract,
			Lang:        c.TesseractLang,
			TessdataDir: c.TessdataDir,
		}, ocr.ExecRunner{}, a.Logger), nil
	case "gosseract":
		return inProcessEngine(c, a.Logger)
	}
	return nil, common.NewAppError("CONFIG_ERROR", "unsupported OCR_ENGINE "+c.Engine, common.ErrConfig)
}

func (a *App) dobStage() (*pipeline.DOBStage, error) {
	c := a.Cfg.LLM
	client, err := openai.NewClient(openai.Config{
		APIKey:  c.APIKey,
		BaseURL: c.BaseURL,
		Model:   c.Model,
		Timeout: c.Timeout,
	}, a.Logger)
	if err != nil {
		return nil, err
	}
	counter, err := llm.NewTiktokenCounter(c.Model)
	if err != nil {
		return nil, err
	}
	breaker := llm.NewBreaker(client, llm.BreakerConfig{
		Name:                "openai",
		ConsecutiveFailures: c.BreakerFailures,
	}, a.Logger)

	return pipeline.NewDOBStage(
		pipeline.DOBConfig{TokenCost: c.TokenCost, Model: client.Model()},
		repository.NewOCRLogRepository(a.DB, a.Logger),
		repository.NewAPICostRepository(a.DB, a.Logger),
		breaker,
		counter,
		a.Metrics,
		a.Logger,
	), nil
}
