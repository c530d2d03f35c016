package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Conf holds the application configuration, making it accessible globally.
var Conf *Config

// Config struct is the top-level configuration structure.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Inference InferenceConfig `mapstructure:"inference"`
	SMS       SMSConfig       `mapstructure:"sms"`
	Capture   CaptureConfig   `mapstructure:"capture"`
}

// ServerConfig holds server-related settings.
type ServerConfig struct {
	Port              string `mapstructure:"port"`
	SessionSecret     string `mapstructure:"session_secret"`
	AdminEmail        string `mapstructure:"admin_email"`
	AdminPassword     string `mapstructure:"admin_password"`
	SessionTTLMinutes int    `mapstructure:"session_ttl_minutes"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
}

// LoggingConfig holds settings for the logger.
type LoggingConfig struct {
	Directory  string `mapstructure:"directory"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// InferenceConfig holds settings for the hosted multimodal model.
type InferenceConfig struct {
	APIKey         string `mapstructure:"api_key"`
	Model          string `mapstructure:"model"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

// SMSConfig holds settings for the SENS message gateway.
type SMSConfig struct {
	ServiceID      string `mapstructure:"service_id"`
	AccessKey      string `mapstructure:"access_key"`
	SecretKey      string `mapstructure:"secret_key"`
	SenderNumber   string `mapstructure:"sender_number"`
	CodeTTLSeconds int    `mapstructure:"code_ttl_seconds"`
}

// CaptureConfig holds settings for the capture pipeline.
type CaptureConfig struct {
	MaxEdgePixels int `mapstructure:"max_edge_pixels"`
	RetakeBudget  int `mapstructure:"retake_budget"`
}

// setDefaults sets the default values for the configuration.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "5050")
	v.SetDefault("server.session_secret", "change-me-in-production")
	v.SetDefault("server.admin_email", "admin@vcheck.local")
	v.SetDefault("server.admin_password", "")
	v.SetDefault("server.session_ttl_minutes", 30)

	// Database defaults
	v.SetDefault("database.host", "db")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.user", "user")
	v.SetDefault("database.password", "password")
	v.SetDefault("database.dbname", "vcheck-db")

	// Logging defaults
	v.SetDefault("logging.directory", "logs")
	v.SetDefault("logging.max_size", 10)   // 10 MB
	v.SetDefault("logging.max_backups", 3) // Keep 3 backups
	v.SetDefault("logging.max_age", 7)     // 7 days
	v.SetDefault("logging.compress", true) // Compress old logs

	// Inference defaults
	v.SetDefault("inference.model", "gemini-1.5-flash-latest")
	v.SetDefault("inference.timeout_seconds", 30)

	// SMS defaults
	v.SetDefault("sms.code_ttl_seconds", 180)

	// Capture defaults
	v.SetDefault("capture.max_edge_pixels", 512)
	v.SetDefault("capture.retake_budget", 3)
}

// Init initializes the configuration with Viper. It runs before the logger
// (the logger reads its own settings from here), so reload events go through
// the zap global, which main swaps in right after logger setup.
func Init(projectRoot string) error {
	v := viper.New()

	// Set default values
	setDefaults(v)

	// --- File Configuration ---
	v.AddConfigPath(filepath.Join(projectRoot, "config"))
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	// --- Environment Variable Binding ---
	v.SetEnvPrefix("VCHECK") // e.g., VCHECK_INFERENCE_API_KEY
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Read the initial configuration from the file.
	// It's okay if the file doesn't exist; defaults and env vars will be used.
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Unmarshal the config into our global Conf variable
	if err := v.Unmarshal(&Conf); err != nil {
		return fmt.Errorf("unable to decode config into struct: %w", err)
	}

	// Set up a watch for configuration changes for hot-reloading
	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		zap.L().Info("Configuration file changed, reloading.", zap.String("file", e.Name))
		if err := v.Unmarshal(&Conf); err != nil {
			zap.L().Error("Error reloading configuration", zap.Error(err))
		}
	})

	return nil
}
