package llm

import (
	"strings"

	"github.com/joseph-ayodele/avs-dob-pipeline/internal/common"
)

// ValidateDOB accepts a trimmed answer of exactly ten characters with '-' at
// positions 4 and 7. Calendar validity is not checked.
func ValidateDOB(answer string) (string, error) {
	dob := strings.TrimSpace(answer)
	switch {
	case dob == "":
		return "", common.KindError(common.ErrMalformedDOB, "empty response", nil)
	case len(dob) != 10 || dob[4] != '-' || dob[7] != '-':
		return "", common.KindError(common.ErrMalformedDOB, "not yyyy-mm-dd: "+common.Truncate(dob, 64, "..."), nil)
	}
	return dob, nil
}
