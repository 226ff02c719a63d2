package models

import "time"

type SyncPhase string

const (
	PhaseRun      SyncPhase = "run"
	PhaseSource   SyncPhase = "source"
	PhaseUpcoming SyncPhase = "upcoming"
	PhaseRollup   SyncPhase = "rollup"
	PhaseSnapshot SyncPhase = "snapshot"
)

type SyncStatus string

const (
	SyncSucceeded SyncStatus = "succeeded"
	SyncPartial   SyncStatus = "partial"
	SyncFailed    SyncStatus = "failed"
	SyncSkipped   SyncStatus = "skipped"
)

// SyncRun records one pipeline phase: which run it belonged to, what it
// touched and how it ended.
type SyncRun struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CreatedAt time.Time `json:"created_at"`

	RunID   string     `gorm:"size:36;index" json:"run_id"`
	Phase   SyncPhase  `gorm:"size:20;index" json:"phase"`
	Source  string     `gorm:"size:50;index" json:"source"`
	Trigger string     `gorm:"size:20" json:"trigger"` // cron, api, cli
	Status  SyncStatus `gorm:"size:20" json:"status"`

	Fetched  int `json:"fetched"`
	Updated  int `json:"updated"`
	Forked   int `json:"forked"`
	Inserted int `json:"inserted"`
	Skipped  int `json:"skipped"`
	Failed   int `json:"failed"`

	Error  string `gorm:"size:1000" json:"error"`
	Detail string `gorm:"type:text" json:"detail"` // JSON

	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	DurationMS int64     `json:"duration_ms"`
}
