package pipeline

import "time"

// Recorder receives per-row outcomes; the metrics package implements it.
type Recorder interface {
	Row(stage, outcome string)
	Cost(amount float64)
	Finished(stage string, d time.Duration, aborted bool)
}

// Row outcomes reported to a Recorder besides error kinds.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeSkipped   = "skipped"
)

type nopRecorder struct{}

func (nopRecorder) Row(string, string)                   {}
func (nopRecorder) Cost(float64)                         {}
func (nopRecorder) Finished(string, time.Duration, bool) {}

func orNop(r Recorder) Recorder {
	if r == nil {
		return nopRecorder{}
	}
	return r
}
