package repository

import (
	"context"
	"errors"

	"vcheck-go/internal/database"
	"vcheck-go/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GetPrompt reads an administrator prompt override. The second return
// reports whether an override exists.
func GetPrompt(ctx context.Context, id string) (string, bool, error) {
	var record models.PromptRecord
	err := database.DB.WithContext(ctx).First(&record, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return record.Text, true, nil
}

// SetPrompt stores an override. Last write wins; no versioning.
func SetPrompt(ctx context.Context, id, text string) error {
	record := models.PromptRecord{ID: id, Text: text}
	return database.DB.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"text", "updated_at"}),
		}).
		Create(&record).Error
}
