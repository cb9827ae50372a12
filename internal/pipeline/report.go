package pipeline

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/joseph-ayodele/avs-dob-pipeline/internal/common"
)

// Stage names, also used as metric labels and lock file names.
const (
	StageIntake = "intake"
	StageOCR    = "ocr"
	StageDOB    = "dob"
)

// Skip reasons counted separately from failures.
const (
	SkipDuplicate = "duplicate"
	SkipBlankText = "blank_text"
	SkipPolicy    = "policy"
)

// StageReport summarizes one stage run.
type StageReport struct {
	Stage     string
	RunID     string
	Selected  int
	Succeeded int
	Skipped   map[string]int
	Failed    map[string]int // by error kind
	Cost      float64        // estimated LLM spend recorded during the run
	Duration  time.Duration
	Err       error // fatal error that stopped the run, if any
}

func newReport(stage, runID string) *StageReport {
	return &StageReport{
		Stage:   stage,
		RunID:   runID,
		Skipped: map[string]int{},
		Failed:  map[string]int{},
	}
}

func (r *StageReport) skip(reason string) { r.Skipped[reason]++ }

func (r *StageReport) fail(err error) string {
	kind := common.KindName(err)
	r.Failed[kind]++
	return kind
}

func (r *StageReport) TotalSkipped() int { return sum(r.Skipped) }
func (r *StageReport) TotalFailed() int  { return sum(r.Failed) }

func sum(m map[string]int) int {
	n := 0
	for _, v := range m {
		n += v
	}
	return n
}

func formatCounts(m map[string]int) string {
	if len(m) == 0 {
		return "-"
	}
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%d", k, m[k]))
	}
	return strings.Join(parts, " ")
}

// RenderReports writes a summary table of the given runs.
func RenderReports(w io.Writer, reports []StageReport) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"Stage", "Selected", "Succeeded", "Skipped", "Failed", "Cost", "Duration", "Result"})
	var cost float64
	for _, r := range reports {
		result := "ok"
		if r.Err != nil {
			result = "aborted: " + common.KindName(r.Err)
		}
		t.AppendRow(table.Row{
			r.Stage,
			r.Selected,
			r.Succeeded,
			formatCounts(r.Skipped),
			formatCounts(r.Failed),
			fmt.Sprintf("%.4f", r.Cost),
			r.Duration.Round(time.Millisecond).String(),
			result,
		})
		cost += r.Cost
	}
	t.AppendFooter(table.Row{"", "", "", "", "total", fmt.Sprintf("%.4f", cost), "", ""})
	t.Render()
}
