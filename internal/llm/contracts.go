package llm

import "context"

// Chat roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one role-tagged chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Completion is the single text answer of a chat request.
type Completion struct {
	Content          string
	Model            string
	RequestID        string
	PromptTokens     int
	CompletionTokens int
}

// ChatCompleter is the interface the DOB stage depends on.
type ChatCompleter interface {
	Complete(ctx context.Context, messages []Message) (Completion, error)
}

// Gate is implemented by completers that can refuse work up front (an open
// circuit breaker). Callers check it before spending anything on a request.
type Gate interface {
	Ready() error
}
