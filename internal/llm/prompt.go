package llm

import "strings"

const dobSystemPrompt = "You are a helpful assistant that extracts dates of birth from the provided text."

// dobLabels are the label variants identity documents use for the birth date.
var dobLabels = []string{
	"date of birth",
	"DOB",
	"Date of Birth",
	"birth date",
	"date de naissance",
	"né(e) le",
	"fecha de nacimiento",
	"Geburtsdatum",
}

// BuildDOBMessages returns the system and user messages asking for the DOB in
// the OCR text. The whole text is embedded; nothing is truncated.
func BuildDOBMessages(ocrText string) []Message {
	var b strings.Builder
	b.WriteString("Extract the date of birth (it may be labelled ")
	b.WriteString(strings.Join(dobLabels, ", "))
	b.WriteString(") from the following text:\n\n")
	b.WriteString(ocrText)
	b.WriteString("\n\nAnswer in yyyy-mm-dd format only and do not send any other data along with the DOB.")

	return []Message{
		{Role: RoleSystem, Content: dobSystemPrompt},
		{Role: RoleUser, Content: b.String()},
	}
}
