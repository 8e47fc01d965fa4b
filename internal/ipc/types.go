package ipc

import "time"

// RecordView is the wire representation of a decision record.
type RecordView struct {
	IdentityKey string     `json:"identity_key"`
	DisplayName string     `json:"display_name"`
	Status      string     `json:"status"`
	FirstSeenAt time.Time  `json:"first_seen_at"`
	DecidedAt   *time.Time `json:"decided_at,omitempty"`
	ExecutedAt  *time.Time `json:"executed_at,omitempty"`
	Notified    bool       `json:"notified"`
}

// CycleView summarizes the most recent reconciliation cycle.
type CycleView struct {
	CycleID   string    `json:"cycle_id"`
	StartedAt time.Time `json:"started_at"`
	Duration  string    `json:"duration"`
	Seen      int       `json:"seen"`
	Notified  int       `json:"notified"`
	Executed  int       `json:"executed"`
	Skipped   int       `json:"skipped"`
	Errors    int       `json:"errors"`
}

// StatusRequest asks for daemon runtime information.
type StatusRequest struct{}

// StatusResponse reports the daemon's current state.
type StatusResponse struct {
	Running   bool           `json:"running"`
	Paused    bool           `json:"paused"`
	PID       int            `json:"pid"`
	DBPath    string         `json:"db_path"`
	LockPath  string         `json:"lock_path"`
	Records   map[string]int `json:"records"`
	LastCycle *CycleView     `json:"last_cycle,omitempty"`
	LastError string         `json:"last_error,omitempty"`
}

// PauseRequest suspends cycle execution.
type PauseRequest struct{}

// PauseResponse confirms the pause took effect.
type PauseResponse struct {
	Paused bool `json:"paused"`
}

// ResumeRequest lifts a pause and triggers an immediate cycle.
type ResumeRequest struct{}

// ResumeResponse confirms the resume took effect.
type ResumeResponse struct {
	Paused bool `json:"paused"`
}

// RequestListRequest lists decision records, optionally filtered by status.
type RequestListRequest struct {
	Statuses []string `json:"statuses,omitempty"`
}

// RequestListResponse carries the matching records.
type RequestListResponse struct {
	Records []RecordView `json:"records"`
}

// RequestDescribeRequest fetches a single record by identity key.
type RequestDescribeRequest struct {
	IdentityKey string `json:"identity_key"`
}

// RequestDescribeResponse carries the record details.
type RequestDescribeResponse struct {
	Record RecordView `json:"record"`
}

// DecideRequest records an operator verdict for a pending request.
type DecideRequest struct {
	IdentityKey string `json:"identity_key"`
	Decision    string `json:"decision"`
}

// DecideResponse returns the record after the verdict was applied.
type DecideResponse struct {
	Record RecordView `json:"record"`
}

// WakeRequest triggers a cycle outside the normal schedule.
type WakeRequest struct{}

// WakeResponse confirms the wake was queued.
type WakeResponse struct {
	Queued bool `json:"queued"`
}

// TestNotificationRequest sends a test notification.
type TestNotificationRequest struct{}

// TestNotificationResponse reports the delivery outcome.
type TestNotificationResponse struct {
	Sent    bool   `json:"sent"`
	Message string `json:"message"`
}

// LogTailRequest reads daemon log lines. A negative offset requests the
// last Limit lines.
type LogTailRequest struct {
	Offset     int64 `json:"offset"`
	Limit      int   `json:"limit"`
	Follow     bool  `json:"follow"`
	WaitMillis int64 `json:"wait_millis"`
}

// LogTailResponse carries log lines and the offset for the next call.
type LogTailResponse struct {
	Lines  []string `json:"lines"`
	Offset int64    `json:"offset"`
}

// DatabaseHealthRequest asks for decision database diagnostics.
type DatabaseHealthRequest struct{}

// DatabaseHealthResponse carries database diagnostics.
type DatabaseHealthResponse struct {
	DBPath           string `json:"db_path"`
	DatabaseExists   bool   `json:"database_exists"`
	DatabaseReadable bool   `json:"database_readable"`
	TableExists      bool   `json:"table_exists"`
	IntegrityCheck   bool   `json:"integrity_check"`
	TotalRecords     int    `json:"total_records"`
	Error            string `json:"error,omitempty"`
}
