package llm

import (
	"fmt"
	"sync"

	"github.com/pkoukk/tiktoken-go"
	tiktoken_loader "github.com/pkoukk/tiktoken-go-loader"
)

// TokenCounter estimates prompt size for cost accounting.
type TokenCounter interface {
	Count(messages []Message) (int, error)
}

const fallbackEncoding = "cl100k_base"

var offlineLoader sync.Once

// TiktokenCounter counts tokens with the BPE ranks embedded in the binary, so
// cost estimation never reaches the network.
type TiktokenCounter struct {
	enc *tiktoken.Tiktoken
}

// NewTiktokenCounter picks the encoding for model, falling back to cl100k_base
// for models the tokenizer does not know.
func NewTiktokenCounter(model string) (*TiktokenCounter, error) {
	offlineLoader.Do(func() {
		tiktoken.SetBpeLoader(tiktoken_loader.NewOfflineLoader())
	})
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		enc, err = tiktoken.GetEncoding(fallbackEncoding)
		if err != nil {
			return nil, fmt.Errorf("load %s encoding: %w", fallbackEncoding, err)
		}
	}
	return &TiktokenCounter{enc: enc}, nil
}

// Count sums the tokens of every message's role and content.
func (c *TiktokenCounter) Count(messages []Message) (int, error) {
	total := 0
	for _, m := range messages {
		// "all" keeps special-token look-alikes in OCR text from being rejected
		total += len(c.enc.Encode(m.Role, []string{"all"}, nil))
		total += len(c.enc.Encode(m.Content, []string{"all"}, nil))
	}
	return total, nil
}

// EstimateCost prices tokens at pricePer1K currency units per 1000 tokens.
func EstimateCost(tokens int, pricePer1K float64) float64 {
	return float64(tokens) / 1000.0 * pricePer1K
}
