package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/joseph-ayodele/avs-dob-pipeline/constants"
	"github.com/joseph-ayodele/avs-dob-pipeline/internal/common"
	"github.com/joseph-ayodele/avs-dob-pipeline/internal/entity"
	"github.com/joseph-ayodele/avs-dob-pipeline/internal/llm"
	"github.com/joseph-ayodele/avs-dob-pipeline/internal/repository"
	"github.com/joseph-ayodele/avs-dob-pipeline/internal/repository/repotest"
)

type dobFixture struct {
	db    *repository.DB
	logs  repository.OCRLogRepository
	costs repository.APICostRepository
}

func newDOBFixture(t *testing.T) dobFixture {
	t.Helper()
	db := repotest.Open(t)
	return dobFixture{
		db:    db,
		logs:  repository.NewOCRLogRepository(db, discard()),
		costs: repository.NewAPICostRepository(db, discard()),
	}
}

func (f dobFixture) stage(c llm.ChatCompleter) *DOBStage {
	return NewDOBStage(DOBConfig{TokenCost: 0.5, Model: "gpt-test"}, f.logs, f.costs, c, fixedCounter{tokens: 200}, nil, discard())
}

func (f dobFixture) row(t *testing.T, id int64) *entity.OCRLog {
	t.Helper()
	row, err := f.logs.GetByID(context.Background(), id)
	if err != nil {
		t.Fatalf("GetByID(%d) error = %v", id, err)
	}
	return row
}

func TestDOBStageExtractsDate(t *testing.T) {
	f := newDOBFixture(t)
	id := seedCompleted(t, f.logs, 1, "NAME JANE DOE\nDOB 14/05/1990")
	rec := newCountingRecorder()
	st := f.stage(&scriptedLLM{answers: []string{" 1990-05-14\n"}})
	st.Recorder = rec

	rep, err := st.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if rep.Succeeded != 1 || rep.Cost != 0.1 {
		t.Fatalf("unexpected report: %+v", rep)
	}
	if rec.cost != 0.1 || rec.rows["dob/succeeded"] != 1 {
		t.Fatalf("unexpected recorder: %+v", rec)
	}
	row := f.row(t, id)
	if row.Status != constants.DOBStatusExtracted || row.DOB == nil || *row.DOB != "1990-05-14" || row.StatusReason != "" {
		t.Fatalf("unexpected row: %+v", row)
	}
}

func TestDOBStageMalformedAnswerFailsRow(t *testing.T) {
	f := newDOBFixture(t)
	id := seedCompleted(t, f.logs, 1, "illegible scan")
	st := f.stage(&scriptedLLM{answers: []string{"I could not find a date of birth."}})

	rep, err := st.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if rep.Failed["malformed_dob"] != 1 {
		t.Fatalf("unexpected report: %+v", rep)
	}
	row := f.row(t, id)
	if row.Status != constants.DOBStatusFailed || row.StatusReason == "" {
		t.Fatalf("malformed answer must mark the row failed with a reason: %+v", row)
	}
	if row.DOB != nil && *row.DOB != "" {
		t.Fatalf("failed row must not carry a dob: %q", *row.DOB)
	}
	if n := repotest.Count(t, f.db, repository.TableAPICost); n != 1 {
		t.Fatalf("failed attempts are still billed, got %d cost rows", n)
	}
}

func TestDOBStageNonASCIIAnswerStoresValidReason(t *testing.T) {
	f := newDOBFixture(t)
	id := seedCompleted(t, f.logs, 1, "Fecha de nacimiento: ilegible")
	answer := strings.Repeat("a", 63) + "é: la fecha de nacimiento no es legible en el documento"
	st := f.stage(&scriptedLLM{answers: []string{answer}})

	rep, err := st.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if rep.Failed["malformed_dob"] != 1 {
		t.Fatalf("unexpected report: %+v", rep)
	}
	row := f.row(t, id)
	if row.Status != constants.DOBStatusFailed || !utf8.ValidString(row.StatusReason) {
		t.Fatalf("reason must be stored as valid UTF-8: %+v", row)
	}
}

func TestDOBStageOnlyStoresWellFormedDates(t *testing.T) {
	f := newDOBFixture(t)
	answers := []string{"1990-05-14", "14/05/1990", "1990-5-14", "born 1990-05-14"}
	ids := make([]int64, len(answers))
	for i := range answers {
		ids[i] = seedCompleted(t, f.logs, int64(i+1), "some text")
	}
	if _, err := f.stage(&scriptedLLM{answers: answers}).Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	for i, id := range ids {
		row := f.row(t, id)
		if row.Status == constants.DOBStatusExtracted {
			d := *row.DOB
			if len(d) != 10 || d[4] != '-' || d[7] != '-' {
				t.Fatalf("row %d stored malformed dob %q", id, d)
			}
			continue
		}
		if i == 0 {
			t.Fatalf("well-formed answer rejected: %+v", row)
		}
	}
}

func TestDOBStageRecordsCostBeforeCalling(t *testing.T) {
	f := newDOBFixture(t)
	seedCompleted(t, f.logs, 1, "DOB 1990-05-14")
	seedCompleted(t, f.logs, 2, "DOB 1985-01-02")

	var seen []int
	c := &scriptedLLM{answers: []string{"1990-05-14", "1985-01-02"}}
	c.onCall = func() { seen = append(seen, repotest.Count(t, f.db, repository.TableAPICost)) }

	if _, err := f.stage(c).Run(context.Background()); err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(seen) != 2 || seen[0] != 1 || seen[1] != 2 {
		t.Fatalf("cost rows visible at each call = %v, want [1 2]", seen)
	}
	totals, err := f.costs.Totals(context.Background())
	if err != nil {
		t.Fatalf("Totals() error = %v", err)
	}
	if len(totals) != 2 {
		t.Fatalf("expected one cost per row, got %v", totals)
	}
}

func TestDOBStageLLMErrorFailsOnlyThatRow(t *testing.T) {
	f := newDOBFixture(t)
	first := seedCompleted(t, f.logs, 1, "text one")
	second := seedCompleted(t, f.logs, 2, "text two")
	c := &scriptedLLM{
		answers: []string{"", "2001-12-31"},
		errs:    []error{errors.New("503 service unavailable"), nil},
	}

	rep, err := f.stage(c).Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if rep.Succeeded != 1 || rep.Failed["llm"] != 1 {
		t.Fatalf("unexpected report: %+v", rep)
	}
	if row := f.row(t, first); row.Status != constants.DOBStatusFailed || !strings.Contains(row.StatusReason, "503") {
		t.Fatalf("unexpected first row: %+v", row)
	}
	if row := f.row(t, second); row.Status != constants.DOBStatusExtracted {
		t.Fatalf("unexpected second row: %+v", row)
	}
}

func TestDOBStageOpenBreakerAbortsRun(t *testing.T) {
	f := newDOBFixture(t)
	ids := []int64{
		seedCompleted(t, f.logs, 1, "a"),
		seedCompleted(t, f.logs, 2, "b"),
		seedCompleted(t, f.logs, 3, "c"),
	}
	down := &scriptedLLM{answers: []string{""}, errs: []error{errors.New("dial tcp: connection refused")}}
	breaker := llm.NewBreaker(down, llm.BreakerConfig{ConsecutiveFailures: 1}, discard())

	rep, err := f.stage(breaker).Run(context.Background())
	if !common.IsKind(err, common.ErrCircuitOpen) {
		t.Fatalf("expected circuit open, got %v", err)
	}
	if rep.Err == nil || down.calls != 1 {
		t.Fatalf("expected a single upstream call, got %d (%+v)", down.calls, rep)
	}
	if row := f.row(t, ids[0]); row.Status != constants.DOBStatusFailed {
		t.Fatalf("first row should be failed: %+v", row)
	}
	for _, id := range ids[1:] {
		if row := f.row(t, id); row.Status != constants.DOBStatusPending {
			t.Fatalf("row %d must stay at '0' after abort: %+v", id, row)
		}
	}
	if n := repotest.Count(t, f.db, repository.TableAPICost); n != 1 {
		t.Fatalf("no cost may be recorded for calls never made, got %d", n)
	}
}

type brokenLedger struct{ repository.APICostRepository }

func (brokenLedger) Insert(context.Context, int64, float64) (int64, error) {
	return 0, common.KindError(common.ErrDatabase, "insert ocr_api_cost", errors.New("disk full"))
}

func TestDOBStageCostFailureSkipsCall(t *testing.T) {
	f := newDOBFixture(t)
	id := seedCompleted(t, f.logs, 1, "DOB 1990-05-14")
	c := &scriptedLLM{answers: []string{"1990-05-14"}}
	st := NewDOBStage(DOBConfig{TokenCost: 0.5}, f.logs, brokenLedger{}, c, fixedCounter{tokens: 10}, nil, discard())

	rep, err := st.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if c.calls != 0 || rep.Failed["database"] != 1 {
		t.Fatalf("llm must not be called without a cost record: calls=%d rep=%+v", c.calls, rep)
	}
	if row := f.row(t, id); row.Status != constants.DOBStatusPending {
		t.Fatalf("row must stay eligible: %+v", row)
	}
}

func TestDOBStageSkipsRowsAlreadyAttempted(t *testing.T) {
	f := newDOBFixture(t)
	id := seedCompleted(t, f.logs, 1, "DOB 1990-05-14")
	if err := f.logs.SaveDOBOutcome(context.Background(), id, entity.DOBFailed("earlier run")); err != nil {
		t.Fatalf("SaveDOBOutcome() error = %v", err)
	}
	c := &scriptedLLM{answers: []string{"1990-05-14"}}

	rep, err := f.stage(c).Run(context.Background())
	if err != nil || rep.Selected != 0 || c.calls != 0 {
		t.Fatalf("terminal rows must not be retried: rep=%+v calls=%d err=%v", rep, c.calls, err)
	}
}
