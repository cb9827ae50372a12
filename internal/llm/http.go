package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
)

// maxResponseBytes bounds how much of a provider reply is read into memory.
const maxResponseBytes = 4 << 20

// Response is the raw outcome of one provider call.
type Response struct {
	RequestID string
	Status    int
	Body      []byte
}

// OK reports a 2xx status.
func (r Response) OK() bool { return r.Status/100 == 2 }

// PostJSON encodes payload, POSTs it to url and returns the reply. A non-2xx
// reply is returned with its body and a non-nil error so callers can read the
// provider's error message. Status is 0 when no reply arrived.
func PostJSON(ctx context.Context, client *http.Client, url string, payload any, headers http.Header, logger *slog.Logger) (Response, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	out := Response{RequestID: uuid.NewString()}

	encoded, err := json.Marshal(payload)
	if err != nil {
		return out, fmt.Errorf("encode payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(encoded))
	if err != nil {
		return out, fmt.Errorf("build request: %w", err)
	}
	for k, vs := range headers {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-Id", out.RequestID)

	started := time.Now()
	resp, err := client.Do(req)
	if err != nil {
		logger.Error("llm.http.unreachable", "req_id", out.RequestID, "error", err, "elapsed_ms", time.Since(started).Milliseconds())
		return out, err
	}
	defer func(body io.ReadCloser) {
		if err := body.Close(); err != nil {
			logger.Warn("llm.http.close_failed", "req_id", out.RequestID, "error", err)
		}
	}(resp.Body)

	out.Status = resp.StatusCode
	out.Body, err = io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return out, fmt.Errorf("read response: %w", err)
	}
	logger.Debug("llm.http.reply",
		"req_id", out.RequestID,
		"status", out.Status,
		"sent_bytes", len(encoded),
		"received_bytes", len(out.Body),
		"elapsed_ms", time.Since(started).Milliseconds(),
	)
	if !out.OK() {
		return out, fmt.Errorf("provider returned status %d", out.Status)
	}
	return out, nil
}
