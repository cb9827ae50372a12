package openai

import (
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/joseph-ayodele/avs-dob-pipeline/internal/common"
	"github.com/joseph-ayodele/avs-dob-pipeline/internal/llm"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultModel   = "gpt-4o"
)

// Config selects the chat-completions deployment used for DOB extraction.
// BaseURL may point at any OpenAI-compatible gateway.
type Config struct {
	APIKey      string // OPENAI_API_KEY when empty
	BaseURL     string
	Model       string
	Temperature float32 // 0 leaves the server default
	Timeout     time.Duration
}

// Client is a minimal chat-completions client. Replies are checked against the
// envelope schema before decoding.
type Client struct {
	cfg      Config
	httpc    *http.Client
	envelope *jsonschema.Schema
	logger   *slog.Logger
}

func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = defaultModel
	}
	if cfg.APIKey == "" {
		return nil, common.KindError(common.ErrConfig, "openai api key is not set", nil)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 60 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	envelope, err := llm.CompileSchema(llm.ChatCompletionSchema())
	if err != nil {
		return nil, err
	}
	return &Client{
		cfg:      cfg,
		httpc:    &http.Client{Timeout: cfg.Timeout},
		envelope: envelope,
		logger:   logger,
	}, nil
}

func (c *Client) Model() string { return c.cfg.Model }

func (c *Client) endpoint() string {
	return strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"
}
