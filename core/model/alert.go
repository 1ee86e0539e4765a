package model

import "time"

// Severity ranks alerts.
type Severity string

const (
	SeverityInfo Severity = "info"
	SeverityWarn Severity = "warn"
	SeverityHigh Severity = "high"
)

// Alert is an advisory message derived from the state after a tick.
type Alert struct {
	Time     time.Time `json:"time"`
	Tick     uint64    `json:"tick"`
	Code     string    `json:"code"`
	Severity Severity  `json:"severity"`
	Message  string    `json:"message"`
}
