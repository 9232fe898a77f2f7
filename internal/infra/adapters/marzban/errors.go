package marzban

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"marzban-manager/internal/domain"
)

// APIError is a non-2xx answer from the panel. Detail carries the panel's
// "detail" field when present, otherwise a trimmed body.
type APIError struct {
	Endpoint string
	Status   int
	Detail   string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("panel %s: http %d", e.Endpoint, e.Status)
	}
	return fmt.Sprintf("panel %s: http %d: %s", e.Endpoint, e.Status, e.Detail)
}

func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return domain.ErrUnauthorized
	case http.StatusNotFound:
		return domain.ErrNotFound
	case http.StatusUnprocessableEntity, http.StatusBadRequest:
		return domain.ErrInvalidArgument
	}
	return nil
}

func newAPIError(endpoint string, status int, body []byte) *APIError {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	detail := ""
	if err := json.Unmarshal(body, &payload); err == nil && len(payload.Detail) > 0 {
		var s string
		if json.Unmarshal(payload.Detail, &s) == nil {
			detail = s
		} else {
			detail = string(payload.Detail)
		}
	} else {
		detail = strings.TrimSpace(string(body))
	}
	if len(detail) > 300 {
		detail = detail[:300] + "..."
	}
	return &APIError{Endpoint: endpoint, Status: status, Detail: detail}
}
