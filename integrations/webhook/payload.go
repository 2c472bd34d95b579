package webhook

import "time"

// Embed colours used by the status messages.
const (
	ColorSuccess = 0x00ff00
	ColorError   = 0xff0000
	ColorInfo    = 0x0099ff
)

// Embed is a structured rich-content block. The dispatcher forwards it untouched.
type Embed struct {
	Title       string       `json:"title,omitempty"`
	Description string       `json:"description,omitempty"`
	Color       int          `json:"color,omitempty"`
	Fields      []EmbedField `json:"fields,omitempty"`
	Timestamp   string       `json:"timestamp,omitempty"`
}

// EmbedField is one name/value row of an Embed.
type EmbedField struct {
	Name   string `json:"name"`
	Value  string `json:"value"`
	Inline bool   `json:"inline"`
}

// RetryPolicy bounds delivery attempts. BaseDelay is the fixed wait after a
// failed attempt; a rate-limited attempt without Retry-After waits twice that.
type RetryPolicy struct {
	MaxAttempts int           `json:"max_attempts"`
	BaseDelay   time.Duration `json:"base_delay"`
}

// DefaultRetryPolicy is used when a request leaves its policy zero.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxAttempts: 3, BaseDelay: time.Second}
}

// Request is one message to deliver.
type Request struct {
	Content  string
	Username string
	Embeds   []Embed
	Retry    RetryPolicy
}

// DeliveryOutcome reports how one request ended. Err is informational; the
// dispatcher never returns delivery failures as errors.
type DeliveryOutcome struct {
	ID       string
	Success  bool
	Attempts int
	Err      error
}

type payload struct {
	Username string  `json:"username"`
	Content  string  `json:"content"`
	Embeds   []Embed `json:"embeds,omitempty"`
}
