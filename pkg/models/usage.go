package models

import "time"

// UsageRecord is emitted once per expansion.
type UsageRecord struct {
	ID            string    `json:"id"`
	PromptName    string    `json:"prompt_name"`
	PromptVersion string    `json:"prompt_version,omitempty"`
	Success       bool      `json:"success"`
	LatencyMS     int64     `json:"latency_ms"`
	Error         string    `json:"error,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}
