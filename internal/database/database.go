package database

import (
	"fmt"

	"vcheck-go/internal/config"
	logging "vcheck-go/internal/logging"
	"vcheck-go/internal/models"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var DB *gorm.DB

func Init(log *zap.Logger) {
	var err error
	dbConf := config.Conf.Database
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=UTC",
		dbConf.Host, dbConf.User, dbConf.Password, dbConf.DBName, dbConf.Port)

	// Create our custom GORM logger
	gormLogger := logging.NewGormZapLogger(log)
	gormLogger.LogLevel = logger.Warn

	DB, err = gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormLogger,
	})

	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}

	log.Info("Database connection established successfully.")
	runMigrations(log)
	seedAdmin(log)
}

func runMigrations(log *zap.Logger) {
	// GORM's AutoMigrate will create tables, columns, and foreign keys.
	// It will NOT create custom indexes, so we handle that separately.
	err := DB.AutoMigrate(
		&models.Subject{},
		&models.TestResult{},
		&models.AnalyteResult{},
		&models.PromptRecord{},
		&models.Admin{},
	)
	if err != nil {
		log.Fatal("Failed to run database migrations", zap.Error(err))
	}
	log.Info("Database migrations completed successfully.")

	// The admin results list is always sorted most-recent-first.
	resultsIndex := `CREATE INDEX IF NOT EXISTS idx_results_listing ON test_results (created_at DESC);`
	if err := DB.Exec(resultsIndex).Error; err != nil {
		log.Fatal("Failed to create custom index on test_results", zap.Error(err))
	}
	log.Info("Custom indexes ensured successfully.")
}

// seedAdmin creates the bootstrap administrator account when one is
// configured and no account with that email exists yet.
func seedAdmin(log *zap.Logger) {
	serverConf := config.Conf.Server
	if serverConf.AdminEmail == "" || serverConf.AdminPassword == "" {
		return
	}

	var count int64
	DB.Model(&models.Admin{}).Where("email = ?", serverConf.AdminEmail).Count(&count)
	if count > 0 {
		return
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(serverConf.AdminPassword), bcrypt.DefaultCost)
	if err != nil {
		log.Fatal("Failed to hash bootstrap admin password", zap.Error(err))
	}
	admin := models.Admin{Email: serverConf.AdminEmail, Password: string(hashed)}
	if err := DB.Create(&admin).Error; err != nil {
		log.Fatal("Failed to seed admin account", zap.Error(err))
	}
	log.Info("Bootstrap admin account created", zap.String("email", admin.Email))
}
