package repository

import (
	"context"
	"time"

	"vcheck-go/internal/database"
	"vcheck-go/internal/models"
)

// CreateTestResult appends one ledger entry together with its per-analyte
// rows in a single transaction. Entries are immutable once written.
func CreateTestResult(ctx context.Context, entry *models.TestResult) error {
	return database.DB.WithContext(ctx).Create(entry).Error
}

// ResultPage is one page of the admin results listing.
type ResultPage struct {
	Results    []models.TestResult
	Total      int64
	Page       int
	PerPage    int
	TotalPages int
}

// ListTestResults returns ledger entries most-recent-first, optionally
// filtered by subject name or phone number.
func ListTestResults(ctx context.Context, search string, page, perPage int) (*ResultPage, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = 10
	}

	query := database.DB.WithContext(ctx).
		Model(&models.TestResult{}).
		Joins("Subject")
	if search != "" {
		like := "%" + search + "%"
		query = query.Where(`"Subject".name ILIKE ? OR "Subject".phone LIKE ?`, like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, err
	}

	var results []models.TestResult
	err := query.
		Preload("Results").
		Order("test_results.created_at DESC").
		Limit(perPage).
		Offset((page - 1) * perPage).
		Find(&results).Error
	if err != nil {
		return nil, err
	}

	totalPages := int((total + int64(perPage) - 1) / int64(perPage))
	return &ResultPage{
		Results:    results,
		Total:      total,
		Page:       page,
		PerPage:    perPage,
		TotalPages: totalPages,
	}, nil
}

// GetTestResult loads one ledger entry with its subject and analyte rows.
func GetTestResult(ctx context.Context, id uint) (*models.TestResult, error) {
	var result models.TestResult
	err := database.DB.WithContext(ctx).
		Preload("Subject").
		Preload("Results").
		First(&result, id).Error
	return &result, err
}

// DailyCount is one day's aggregate for the admin stats chart.
type DailyCount struct {
	Day       time.Time
	Total     int64
	Positives int64
}

// CountResultsByDay aggregates ledger entries per day over the last n days.
func CountResultsByDay(ctx context.Context, days int) ([]DailyCount, error) {
	since := time.Now().UTC().AddDate(0, 0, -days)
	var counts []DailyCount
	err := database.DB.WithContext(ctx).
		Model(&models.TestResult{}).
		Select(`date_trunc('day', created_at) AS day,
			count(*) AS total,
			count(*) FILTER (WHERE summary = 'positive') AS positives`).
		Where("created_at >= ?", since).
		Group("day").
		Order("day").
		Scan(&counts).Error
	return counts, err
}
