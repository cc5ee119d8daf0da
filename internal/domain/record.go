package domain

import "time"

// RunRecord is the persisted summary of a finished run.
type RunRecord struct {
	ID          string            `json:"id"`
	Workspace   string            `json:"workspace"`
	ProductName string            `json:"product_name"`
	Style       string            `json:"style"`
	Brand       string            `json:"brand"`
	Status      string            `json:"status"`
	Plan        *ContentPlan      `json:"plan,omitempty"`
	Ready       []string          `json:"ready"`
	Failed      []string          `json:"failed"`
	StorageKeys map[string]string `json:"storage_keys,omitempty"`
	StartedAt   time.Time         `json:"started_at"`
	FinishedAt  *time.Time        `json:"finished_at,omitempty"`
}
