package models

import (
	"time"

	"github.com/lib/pq"
)

// TestResult is one ledger entry: the finalized outcome of a completed
// test session. Rows are append-only; there is no update path.
type TestResult struct {
	ID         uint `gorm:"primaryKey"`
	SubjectID  uint `gorm:"index"`
	Subject    Subject
	TestType   string `gorm:"index"`
	KitID      int
	RawResult  pq.Int64Array `gorm:"type:integer[]"`
	Summary    string
	FrontImage []byte
	BackImage  []byte
	Results    []AnalyteResult `gorm:"constraint:OnDelete:CASCADE"`
	CreatedAt  time.Time       `gorm:"index"`
}

// AnalyteResult is one classified panel, positionally aligned with the
// kit profile's analyte list.
type AnalyteResult struct {
	ID           uint `gorm:"primaryKey"`
	TestResultID uint `gorm:"index"`
	Position     int
	Analyte      string
	Result       string // positive, negative or invalid
}
