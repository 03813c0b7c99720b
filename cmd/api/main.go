package main

import (
	"context"
	"log"
	"os"

	"fixflow/auth"
	"fixflow/chat"
	"fixflow/config"
	"fixflow/db"
	"fixflow/issue"
	"fixflow/logging"
	"fixflow/notify"
	"fixflow/property"
	"fixflow/vendors"
	"fixflow/vision"
	"fixflow/wallet"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger := logging.Setup(cfg.Log)

	pool, err := db.NewPool(ctx, cfg.Database)
	if err != nil {
		logger.Error("bootstrap database pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	userRepo := auth.NewRepository(pool)
	propertyRepo := property.NewRepository(pool)
	vendorRepo := vendors.NewRepository(pool)
	issueRepo := issue.NewRepository(pool)
	chatRepo := chat.NewRepository(pool)
	walletRepo := wallet.NewRepository(pool)

	authService := auth.NewService(userRepo, cfg.Auth.JWTSecret, cfg.Auth.TokenTTL)
	matcher := vendors.NewMatcher(vendorRepo)
	issueService := issue.NewService(pool, issueRepo, matcher, chatRepo)
	chatService := chat.NewService(pool, chatRepo)
	walletService := wallet.NewService(pool, walletRepo)

	if cfg.Notify.WebhookURL != "" {
		notifier, err := notify.New(notify.Config{
			WebhookURL: cfg.Notify.WebhookURL,
			Timeout:    cfg.Notify.Timeout,
		})
		if err != nil {
			logger.Error("configure vendor webhook", "error", err)
			os.Exit(1)
		}
		issueService = issueService.WithVendorRequest(propertyRepo, vendorRepo, notifier)
	}

	var visionClient *vision.Client
	if cfg.Vision.Provider != "" {
		visionClient, err = vision.New(vision.Config{
			Provider: vision.Provider(cfg.Vision.Provider),
			APIKey:   cfg.Vision.APIKey,
			Model:    cfg.Vision.Model,
			Timeout:  cfg.Vision.Timeout,
		})
		if err != nil {
			logger.Error("configure vision client", "error", err)
			os.Exit(1)
		}
	}

	logger.Info("services ready",
		"auth", authService != nil,
		"issues", issueService != nil,
		"chat", chatService != nil,
		"wallet", walletService != nil,
		"vision", visionClient != nil,
	)
}
