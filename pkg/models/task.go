package models

import "time"

// ScheduledTask is a deduplicated maintenance window.
// (ExternalID, CarrierID) is unique when both are set.
type ScheduledTask struct {
	ID             string    `json:"id" db:"id"`
	ExternalID     *string   `json:"external_id,omitempty" db:"external_id"`
	CarrierID      *string   `json:"carrier_id,omitempty" db:"carrier_id"`
	StartTime      time.Time `json:"start_time" db:"start_time"`
	EndTime        time.Time `json:"end_time" db:"end_time"`
	TaskType       string    `json:"task_type" db:"task_type"`
	ImpactDuration *string   `json:"impact_duration,omitempty" db:"impact_duration"`
	Description    *string   `json:"description,omitempty" db:"description"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time `json:"updated_at" db:"updated_at"`
}

// TaskService links a task to an affected service. Links are only ever added.
type TaskService struct {
	TaskID    string    `json:"task_id" db:"task_id"`
	ServiceID string    `json:"service_id" db:"service_id"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// ProvisionalTask is what the extractor reads out of a notification before reconciliation.
type ProvisionalTask struct {
	ExternalID     *string   `json:"external_id,omitempty"`
	CarrierName    *string   `json:"carrier_name,omitempty"`
	StartTime      time.Time `json:"start_time"`
	EndTime        time.Time `json:"end_time"`
	TaskType       string    `json:"task_type"`
	ImpactDuration *string   `json:"impact_duration,omitempty"`
	Description    *string   `json:"description,omitempty"`
	ServiceTokens  []string  `json:"service_tokens"`
}

// TaskDetail is a task with its carrier and linked services
type TaskDetail struct {
	Task     *ScheduledTask `json:"task"`
	Carrier  *Carrier       `json:"carrier,omitempty"`
	Services []Service      `json:"services"`
}
