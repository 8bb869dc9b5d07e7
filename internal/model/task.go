package model

import "time"

// TaskKind identifies the handler for a scheduled task.
type TaskKind string

const (
	// TaskScoreCompany runs the scoring engine for one company.
	TaskScoreCompany TaskKind = "score_company"
)

// TaskStatus is the state of a scheduled task.
type TaskStatus string

const (
	TaskQueued  TaskStatus = "queued"
	TaskRunning TaskStatus = "running"
	TaskDone    TaskStatus = "done"
	TaskFailed  TaskStatus = "failed"
)

// Task is a persisted unit of deferred work that becomes due at RunAt.
type Task struct {
	ID        string     `json:"id"`
	Kind      TaskKind   `json:"kind"`
	CompanyID string     `json:"company_id"`
	RunAt     time.Time  `json:"run_at"`
	Status    TaskStatus `json:"status"`
	Attempts  int        `json:"attempts"`
	LastError string     `json:"last_error,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}
