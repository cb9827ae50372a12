package constants

// ReadStatus is the coarse OCR marker stored in ocr_logs.read_status.
type ReadStatus string

// Stable values (store these exact strings in DB).
const (
	ReadStatusPending   ReadStatus = "pending"   // inserted by intake, OCR not done
	ReadStatusCompleted ReadStatus = "completed" // response_data populated
)

// DOBStatus is the DOB stage marker stored in ocr_logs.status.
type DOBStatus string

const (
	DOBStatusPending   DOBStatus = "0"             // untouched by the DOB stage
	DOBStatusExtracted DOBStatus = "dob_extracted" // dob holds a YYYY-MM-DD string
	DOBStatusFailed    DOBStatus = "dob_failed"    // reason in status_reason
)

// Terminal reports whether the DOB stage has already attempted the row.
func (s DOBStatus) Terminal() bool {
	return s == DOBStatusExtracted || s == DOBStatusFailed
}

// IntakePolicy selects which documents the intake stage considers per user.
type IntakePolicy string

const (
	IntakeMostRecent IntakePolicy = "most_recent"
	IntakeAll        IntakePolicy = "all"
)

// ParseIntakePolicy maps a config value onto a policy, defaulting to most_recent.
func ParseIntakePolicy(s string) (IntakePolicy, bool) {
	switch IntakePolicy(s) {
	case "", IntakeMostRecent:
		return IntakeMostRecent, true
	case IntakeAll:
		return IntakeAll, true
	}
	return IntakeMostRecent, false
}
