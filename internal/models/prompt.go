package models

import "time"

// PromptRecord is an administrator override of the instruction text sent
// to the inference endpoint, keyed by "{testType}-{kitId}". Last write wins;
// there is no versioning.
type PromptRecord struct {
	ID        string `gorm:"primaryKey"` // e.g. "urine-1"
	Text      string
	UpdatedAt time.Time
}
