package entity

import "github.com/joseph-ayodele/avs-dob-pipeline/constants"

// DOBOutcome is the result the DOB stage writes back: either a validated date or
// a failure reason, never both.
type DOBOutcome struct {
	Status constants.DOBStatus
	DOB    string
	Reason string
}

func DOBExtracted(dob string) DOBOutcome {
	return DOBOutcome{Status: constants.DOBStatusExtracted, DOB: dob}
}

func DOBFailed(reason string) DOBOutcome {
	return DOBOutcome{Status: constants.DOBStatusFailed, Reason: reason}
}

func (o DOBOutcome) Succeeded() bool {
	return o.Status == constants.DOBStatusExtracted
}
