package llm

import (
	"context"
	"errors"
	"math"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/joseph-ayodele/avs-dob-pipeline/internal/common"
)

func TestBuildDOBMessages(t *testing.T) {
	msgs := BuildDOBMessages("NOM: DUPONT\nDate de naissance: 14.05.1990")
	if len(msgs) != 2 || msgs[0].Role != RoleSystem || msgs[1].Role != RoleUser {
		t.Fatalf("unexpected messages: %+v", msgs)
	}
	user := msgs[1].Content
	for _, want := range []string{"date of birth", "DOB", "date de naissance", "fecha de nacimiento", "yyyy-mm-dd", "14.05.1990"} {
		if !strings.Contains(user, want) {
			t.Fatalf("user prompt missing %q:\n%s", want, user)
		}
	}
}

func TestValidateDOB(t *testing.T) {
	ok := map[string]string{
		"1990-05-14":     "1990-05-14",
		"  2001-13-45\n": "2001-13-45", // shape only, no calendar check
	}
	for in, want := range ok {
		got, err := ValidateDOB(in)
		if err != nil || got != want {
			t.Fatalf("ValidateDOB(%q) = %q, %v", in, got, err)
		}
	}
	for _, in := range []string{"", "   ", "14/05/1990", "1990-5-14", "The DOB is 1990-05-14", "1990_05_14", "19900-5-14"} {
		if _, err := ValidateDOB(in); !common.IsKind(err, common.ErrMalformedDOB) {
			t.Fatalf("ValidateDOB(%q) expected ErrMalformedDOB, got %v", in, err)
		}
	}
}

func TestTiktokenCounterCountsRolesAndContent(t *testing.T) {
	c, err := NewTiktokenCounter("gpt-4o")
	if err != nil {
		t.Fatalf("NewTiktokenCounter() error = %v", err)
	}
	short, err := c.Count([]Message{{Role: RoleUser, Content: "hi"}})
	if err != nil || short < 2 {
		t.Fatalf("Count(short) = %d, %v", short, err)
	}
	long, _ := c.Count(BuildDOBMessages(strings.Repeat("PASSPORT REPUBLIC ", 50)))
	if long <= short {
		t.Fatalf("expected longer prompt to cost more tokens: %d <= %d", long, short)
	}
	// special-token look-alikes in OCR text must not panic
	if _, err := c.Count([]Message{{Role: RoleUser, Content: "<|endoftext|>"}}); err != nil {
		t.Fatalf("Count(special) error = %v", err)
	}

	unknown, err := NewTiktokenCounter("some-future-model")
	if err != nil {
		t.Fatalf("fallback encoding: %v", err)
	}
	if n, _ := unknown.Count([]Message{{Role: RoleUser, Content: "hi"}}); n < 2 {
		t.Fatalf("fallback Count() = %d", n)
	}
}

func TestEstimateCost(t *testing.T) {
	if got := EstimateCost(1500, 0.03); math.Abs(got-0.045) > 1e-12 {
		t.Fatalf("EstimateCost(1500, 0.03) = %v", got)
	}
	if EstimateCost(0, 0.03) != 0 || EstimateCost(100, 0) != 0 {
		t.Fatalf("zero inputs should cost nothing")
	}
}

type flakyCompleter struct {
	calls int
	err   error
}

func (f *flakyCompleter) Complete(context.Context, []Message) (Completion, error) {
	f.calls++
	if f.err != nil {
		return Completion{}, f.err
	}
	return Completion{Content: "1990-05-14"}, nil
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	inner := &flakyCompleter{err: common.KindError(common.ErrLLM, "openai unreachable", errors.New("dial tcp: refused"))}
	b := NewBreaker(inner, BreakerConfig{ConsecutiveFailures: 2}, nil)
	ctx := context.Background()

	if err := b.Ready(); err != nil {
		t.Fatalf("new breaker should be ready: %v", err)
	}
	for i := 0; i < 2; i++ {
		if _, err := b.Complete(ctx, nil); !common.IsKind(err, common.ErrLLM) {
			t.Fatalf("call %d: expected ErrLLM passthrough, got %v", i, err)
		}
	}
	if err := b.Ready(); !common.IsKind(err, common.ErrCircuitOpen) {
		t.Fatalf("expected open breaker, got %v", err)
	}
	if _, err := b.Complete(ctx, nil); !common.IsKind(err, common.ErrCircuitOpen) {
		t.Fatalf("expected ErrCircuitOpen, got %v", err)
	}
	if inner.calls != 2 {
		t.Fatalf("open breaker must not reach the endpoint, calls = %d", inner.calls)
	}
}

func TestBreakerResetsOnSuccess(t *testing.T) {
	inner := &flakyCompleter{err: errors.New("500")}
	b := NewBreaker(inner, BreakerConfig{ConsecutiveFailures: 2}, nil)
	ctx := context.Background()

	_, _ = b.Complete(ctx, nil)
	inner.err = nil
	if out, err := b.Complete(ctx, nil); err != nil || out.Content != "1990-05-14" {
		t.Fatalf("Complete() = %+v, %v", out, err)
	}
	inner.err = errors.New("500")
	_, _ = b.Complete(ctx, nil)
	if err := b.Ready(); err != nil {
		t.Fatalf("non-consecutive failures should not trip: %v", err)
	}
}

func TestValidateJSONAgainstSchema(t *testing.T) {
	schema := ChatCompletionSchema()
	good := `{"id":"x","choices":[{"message":{"role":"assistant","content":"1990-05-14"}}],"usage":{"prompt_tokens":3,"completion_tokens":1}}`
	if err := ValidateJSONAgainstSchema(schema, []byte(good)); err != nil {
		t.Fatalf("valid envelope rejected: %v", err)
	}
	nullContent := `{"choices":[{"message":{"content":null}}]}`
	if err := ValidateJSONAgainstSchema(schema, []byte(nullContent)); err != nil {
		t.Fatalf("null content rejected: %v", err)
	}
	for _, bad := range []string{`{"choices":[]}`, `{"object":"list"}`, `{"choices":[{"delta":{}}]}`, `not json`} {
		if err := ValidateJSONAgainstSchema(schema, []byte(bad)); err == nil {
			t.Fatalf("expected %s to be rejected", bad)
		}
	}
}

func TestValidateDOBMessageStaysValidUTF8(t *testing.T) {
	answer := strings.Repeat("a", 63) + "é et plus, la date est illisible"
	_, err := ValidateDOB(answer)
	if !common.IsKind(err, common.ErrMalformedDOB) {
		t.Fatalf("expected ErrMalformedDOB, got %v", err)
	}
	if !utf8.ValidString(err.Error()) {
		t.Fatalf("error message is not valid UTF-8: %q", err.Error())
	}
}
