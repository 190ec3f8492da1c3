package models

// ProcessResult is returned for every successfully processed notification
type ProcessResult struct {
	Task                 *ScheduledTask `json:"task"`
	Created              bool           `json:"created"`
	PendingServiceTokens []string       `json:"pending_service_tokens"`
	ResolvedCarrierName  *string        `json:"resolved_carrier_name,omitempty"`
	// CarrierCandidate is the carrier name read from the text or hint, resolved or not.
	CarrierCandidate *string   `json:"carrier_candidate,omitempty"`
	Services         []Service `json:"services"`
	// Discrepancies names the fields where a resent notification disagrees with the stored task.
	Discrepancies []string `json:"discrepancies,omitempty"`
	// OverlappingTaskIDs lists other tasks sharing services and time window with a new task.
	OverlappingTaskIDs []string `json:"overlapping_task_ids,omitempty"`
}

// ReconcileResult is the outcome of a create-or-merge
type ReconcileResult struct {
	Task               *ScheduledTask
	Created            bool
	LinkedServiceIDs   []string
	AddedServiceIDs    []string
	Discrepancies      []string
	OverlappingTaskIDs []string
}

type ProcessNotificationRequest struct {
	Text        string  `json:"text" validate:"required"`
	CarrierHint *string `json:"carrier_hint,omitempty"`
	Client      string  `json:"client,omitempty"`
}

type OverrideCarrierRequest struct {
	CarrierName string `json:"carrier_name" validate:"required"`
}
