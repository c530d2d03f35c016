package models

import "time"

// Subject is the demographic record of a tested person. Subjects are
// upserted by (name, date of birth) so a returning person keeps one record.
type Subject struct {
	ID        uint   `gorm:"primaryKey"`
	Name      string `gorm:"index:idx_subject_identity"`
	DOB       string `gorm:"index:idx_subject_identity"` // YYYYMMDD
	Gender    string
	Region    string
	Phone     string `gorm:"index"`
	CreatedAt time.Time
	UpdatedAt time.Time
}
