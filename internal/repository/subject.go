package repository

import (
	"context"
	"errors"

	"vcheck-go/internal/database"
	"vcheck-go/internal/models"

	"gorm.io/gorm"
)

// UpsertSubject finds an existing subject by name and date of birth and
// refreshes the mutable demographics, or inserts a new record.
func UpsertSubject(ctx context.Context, name, dob, gender, region, phone string) (*models.Subject, error) {
	var subject models.Subject
	err := database.DB.WithContext(ctx).
		Where("name = ? AND dob = ?", name, dob).
		First(&subject).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		subject = models.Subject{Name: name, DOB: dob, Gender: gender, Region: region, Phone: phone}
		if err := database.DB.WithContext(ctx).Create(&subject).Error; err != nil {
			return nil, err
		}
		return &subject, nil
	}
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{"gender": gender, "region": region, "phone": phone}
	if err := database.DB.WithContext(ctx).Model(&subject).Updates(updates).Error; err != nil {
		return nil, err
	}
	return &subject, nil
}

// GetAdminByEmail loads an administrator account for login.
func GetAdminByEmail(ctx context.Context, email string) (*models.Admin, error) {
	var admin models.Admin
	result := database.DB.WithContext(ctx).First(&admin, "email = ?", email)
	return &admin, result.Error
}
