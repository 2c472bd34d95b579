package sdk

import (
	"encoding/json"
	"fmt"
	"net/http"
)

// Progress mirrors the /progress response.
type Progress struct {
	LastPushDate string `json:"last_push_date"`
	Streak       int    `json:"streak"`
	Level        int    `json:"level"`
	Experience   int    `json:"exp"`
	Required     int    `json:"required"`
}

// HealthStatus describes the /healthz response.
type HealthStatus struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}

// Healthy reports whether the server considers itself healthy.
func (h HealthStatus) Healthy() bool { return h.Status == "healthy" }

// PushError is returned when the ingress answers a push with a non-200 status.
type PushError struct {
	StatusCode int
	Message    string
}

func (e *PushError) Error() string {
	return fmt.Sprintf("push rejected: status %d: %s", e.StatusCode, e.Message)
}

func decodeJSON(resp *http.Response, target any) error {
	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("request failed: status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(target)
}
