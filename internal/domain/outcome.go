package domain

import "time"

type ItemStatus string

const (
	ItemStatusSent    ItemStatus = "sent"
	ItemStatusSkipped ItemStatus = "skipped"
	ItemStatusFailed  ItemStatus = "failed"
)

type ItemError struct {
	Key     string `json:"key"`
	Message string `json:"error"`
}

type ItemResult struct {
	Key       string
	EventID   string
	Minutes   int
	FireAt    time.Time
	Dest      Destination
	Status    ItemStatus
	MessageID int64
	Error     string
}

// DispatchOutcome summarizes one dispatch cycle. TotalDue counts every
// (candidate, destination) pair that reached the gate.
type DispatchOutcome struct {
	RunID    string
	Mode     Mode
	TenantID string
	Window   Window
	Sent     int
	Skipped  int
	TotalDue int
	Errors   []ItemError
	Items    []ItemResult
}
