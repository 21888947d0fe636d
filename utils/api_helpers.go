package utils

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// ErrorMessageFromBody extracts a human-readable message from an error body.
// The backend reports failures as {"error": "..."} or, for framework-level
// errors, {"detail": "..."} where detail may also be a list of objects with a msg.
func ErrorMessageFromBody(body []byte) string {
	var payload struct {
		Error   string          `json:"error"`
		Detail  json.RawMessage `json:"detail"`
		Message string          `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if payload.Error != "" {
		return payload.Error
	}
	if len(payload.Detail) > 0 {
		var detail string
		if err := json.Unmarshal(payload.Detail, &detail); err == nil {
			return detail
		}
		var items []struct {
			Msg string `json:"msg"`
		}
		if err := json.Unmarshal(payload.Detail, &items); err == nil {
			var msgs []string
			for _, it := range items {
				if it.Msg != "" {
					msgs = append(msgs, it.Msg)
				}
			}
			return strings.Join(msgs, "; ")
		}
	}
	return payload.Message
}

// LatencyTransport logs the duration of each outgoing request
type LatencyTransport struct {
	Base http.RoundTripper
}

func (t *LatencyTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	start := time.Now()
	resp, err := base.RoundTrip(req)
	event := log.Debug().
		Str("method", req.Method).
		Str("host", req.URL.Host).
		Str("path", req.URL.Path).
		Dur("duration", time.Since(start))
	if err != nil {
		event.Err(err).Msg("[LATENCY] request failed")
		return nil, err
	}
	event.Int("status", resp.StatusCode).Msg("[LATENCY]")
	return resp, nil
}

// HTTPStatusText formats a status for messages when the body carried none
func HTTPStatusText(code int) string {
	return fmt.Sprintf("%d %s", code, http.StatusText(code))
}
