package recommender

import (
	"encoding/json"
	"errors"
	"io"
	"strings"
)

var (
	// ErrNetwork means the call did not complete: unreachable endpoint, reset, timeout.
	ErrNetwork = errors.New("network error")
	// ErrRequestFailed means the service answered with a non-success status
	// or with a body that does not have the expected shape.
	ErrRequestFailed = errors.New("request failed")
	// ErrNotFound accompanies ErrRequestFailed on 404.
	ErrNotFound = errors.New("recommendation not found")
)

const maxErrorBody = 4 << 10

// extractDetail pulls a human readable reason out of an error body.
func extractDetail(body io.Reader) string {
	data, err := io.ReadAll(io.LimitReader(body, maxErrorBody))
	if err != nil || len(data) == 0 {
		return ""
	}

	var payload struct {
		Detail  any    `json:"detail"`
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(data, &payload); err != nil {
		return strings.TrimSpace(string(data))
	}

	switch {
	case payload.Error != "":
		return payload.Error
	case payload.Message != "":
		return payload.Message
	case payload.Detail != nil:
		if s, ok := payload.Detail.(string); ok {
			return s
		}
		raw, _ := json.Marshal(payload.Detail)
		return string(raw)
	}

	return ""
}
