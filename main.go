package main

import (
	"context"
	"time"

	"vcheck-go/internal/config"
	"vcheck-go/internal/database"
	"vcheck-go/internal/interpret"
	"vcheck-go/internal/kits"
	logger "vcheck-go/internal/logging"
	"vcheck-go/internal/router"
	"vcheck-go/internal/session"
	"vcheck-go/internal/sms"

	"go.uber.org/zap"
)

func main() {
	// Configuration first; the logger reads its settings from it.
	if err := config.Init("."); err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	// Initialize Logger
	log, err := logger.Init(config.Conf.Logging)
	if err != nil {
		panic("failed to initialize logger: " + err.Error())
	}
	defer log.Sync()
	// Config hot-reload events log through the global.
	zap.ReplaceGlobals(log)
	log.Info("Configuration loaded successfully")

	// Initialize Database
	database.Init(log)

	// Load the kit catalog at startup
	catalog, err := kits.Load("config/kits.yaml")
	if err != nil {
		log.Fatal("Failed to load kit catalog", zap.Error(err))
	}

	// Inference client for strip interpretation
	infConf := config.Conf.Inference
	interpreter, err := interpret.NewClient(
		context.Background(),
		infConf.APIKey,
		infConf.Model,
		time.Duration(infConf.TimeoutSeconds)*time.Second,
	)
	if err != nil {
		log.Fatal("Failed to create inference client", zap.Error(err))
	}

	// SMS verification
	smsConf := config.Conf.SMS
	gateway := sms.NewGateway(log, smsConf.ServiceID, smsConf.AccessKey, smsConf.SecretKey, smsConf.SenderNumber)
	verifier := sms.NewVerifier(log, gateway, time.Duration(smsConf.CodeTTLSeconds)*time.Second)

	// Session manager with the configured retake budget and idle TTL
	manager := session.NewManager(
		config.Conf.Capture.RetakeBudget,
		time.Duration(config.Conf.Server.SessionTTLMinutes)*time.Minute,
	)

	// Setup router, passing the logger to it
	r := router.Setup(log, catalog, interpreter, manager, verifier)

	// Start the Gin server
	port := ":" + config.Conf.Server.Port
	log.Info("Server listening on http://localhost" + port)
	if err := r.Run(port); err != nil {
		log.Fatal("Failed to run Gin server", zap.Error(err))
	}
}
