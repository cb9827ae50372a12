package llm

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/sony/gobreaker/v2"

	"github.com/joseph-ayodele/avs-dob-pipeline/internal/common"
)

// BreakerConfig controls when sustained LLM failures stop a run.
type BreakerConfig struct {
	Name                string
	ConsecutiveFailures uint32        // trips after this many failures in a row; 0 -> 5
	OpenTimeout         time.Duration // how long the breaker stays open; 0 -> 1m
}

// Breaker wraps a ChatCompleter so that an unreachable endpoint turns into
// ErrCircuitOpen instead of one failure per remaining row.
type Breaker struct {
	next   ChatCompleter
	cb     *gobreaker.CircuitBreaker[Completion]
	logger *slog.Logger
}

func NewBreaker(next ChatCompleter, cfg BreakerConfig, logger *slog.Logger) *Breaker {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Name == "" {
		cfg.Name = "llm"
	}
	if cfg.ConsecutiveFailures == 0 {
		cfg.ConsecutiveFailures = 5
	}
	if cfg.OpenTimeout <= 0 {
		cfg.OpenTimeout = time.Minute
	}
	threshold := cfg.ConsecutiveFailures
	cb := gobreaker.NewCircuitBreaker[Completion](gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: 1,
		Timeout:     cfg.OpenTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("llm.breaker.state_change", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
	return &Breaker{next: next, cb: cb, logger: logger}
}

func (b *Breaker) Complete(ctx context.Context, messages []Message) (Completion, error) {
	out, err := b.cb.Execute(func() (Completion, error) {
		return b.next.Complete(ctx, messages)
	})
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return Completion{}, common.KindError(common.ErrCircuitOpen, "llm endpoint failing", err)
	}
	return out, err
}

// Ready fails with ErrCircuitOpen while the breaker is open.
func (b *Breaker) Ready() error {
	if b.cb.State() == gobreaker.StateOpen {
		return common.KindError(common.ErrCircuitOpen, "llm endpoint failing", gobreaker.ErrOpenState)
	}
	return nil
}

func (b *Breaker) State() string { return b.cb.State().String() }
