package models

import (
	"time"

	"gorm.io/datatypes"
)

// Run status values.
const (
	RunRunning   = "running"
	RunSucceeded = "succeeded"
	RunFailed    = "failed"
)

// StepOutcome is the JSON record of one executed pipeline step.
type StepOutcome struct {
	Name       string           `json:"name"`
	Status     string           `json:"status"`
	Inserted   int64            `json:"inserted"`
	Considered int64            `json:"considered"`
	Dropped    map[string]int64 `json:"dropped,omitempty"`
	DurationMS int64            `json:"duration_ms"`
	Error      string           `json:"error,omitempty"`
}

// PipelineRun logs one execution of the load. It lives in the warehouse schema and
// is never truncated by the pipeline.
type PipelineRun struct {
	ID         uint       `json:"id" gorm:"primaryKey"`
	StartedAt  time.Time  `json:"started_at" gorm:"index"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
	Status     string     `json:"status" gorm:"index;not null"`
	Trigger    string     `json:"trigger"`
	Error      string     `json:"error,omitempty" gorm:"type:text"`

	Steps     datatypes.JSON `json:"steps" gorm:"type:jsonb"`
	ReportURL string         `json:"report_url,omitempty"`
	Report    string         `json:"report,omitempty" gorm:"type:text"`
}

func (PipelineRun) TableName() string { return "etl_execucoes" }
