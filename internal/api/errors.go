package api

import (
	"encoding/json"
	"fmt"
	"strings"
)

// detailSeparator joins multi-entry validation details into one line.
const detailSeparator = " | "

// RequestError is the single failure shape for backend calls: any non-2xx
// status or an undecodable success body normalizes to this.
type RequestError struct {
	Status  int
	Message string
}

func (e *RequestError) Error() string {
	return e.Message
}

// errorEnvelope is the backend's error payload. Detail may be a plain string,
// an array of validation entries, or anything else - hence RawMessage.
type errorEnvelope struct {
	Detail json.RawMessage `json:"detail"`
}

// formatErrorBody turns an error response body into a user-facing message.
// Rules, in order:
//   - detail is a string: use it verbatim
//   - detail is an array: join each entry's msg field (or the entry's compact
//     JSON if it has no msg) with " | "
//   - anything else: "HTTP <status>"
//   - body not parsable at all: fall back to the status line text
func formatErrorBody(status int, statusText string, body []byte) string {
	fallback := fmt.Sprintf("HTTP %d", status)

	var envelope errorEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		if statusText != "" {
			return statusText
		}
		return fallback
	}
	if len(envelope.Detail) == 0 {
		return fallback
	}

	var detailStr string
	if err := json.Unmarshal(envelope.Detail, &detailStr); err == nil {
		return detailStr
	}

	var detailList []json.RawMessage
	if err := json.Unmarshal(envelope.Detail, &detailList); err == nil {
		parts := make([]string, 0, len(detailList))
		for _, entry := range detailList {
			parts = append(parts, formatDetailEntry(entry))
		}
		return strings.Join(parts, detailSeparator)
	}

	return fallback
}

func formatDetailEntry(entry json.RawMessage) string {
	var s string
	if err := json.Unmarshal(entry, &s); err == nil {
		return s
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(entry, &obj); err == nil {
		if rawMsg, ok := obj["msg"]; ok {
			var msg string
			if err := json.Unmarshal(rawMsg, &msg); err == nil {
				return msg
			}
		}
	}

	// No msg field: the entry's own JSON is the best description we have
	return string(entry)
}
