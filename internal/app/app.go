package app

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/joho/godotenv"

	"github.com/kassaio/kassa/internal/cache"
	"github.com/kassaio/kassa/internal/config"
	"github.com/kassaio/kassa/internal/env"
	"github.com/kassaio/kassa/internal/errHandler"
	"github.com/kassaio/kassa/internal/file"
	"github.com/kassaio/kassa/internal/helper"
	"github.com/kassaio/kassa/internal/repository"
	"github.com/kassaio/kassa/internal/scan"
	"github.com/kassaio/kassa/internal/smtp"
	"github.com/kassaio/kassa/internal/stream"
)

// Essential services and resources are exposed to the application
// this makes it possible for methods to have access to these items as and when they need them
type Application struct {
	Config       config.Config
	DB           repository.Database
	Logger       *slog.Logger
	Mailer       *smtp.Mailer
	WG           sync.WaitGroup
	errorHandler *errHandler.ErrorRepository
	Helper       *helper.HelperRepository
	Kafka        *stream.KafkaStream
	Cache        *cache.Cache
	FileUploader *file.FileUploader
	Scanner      *scan.Scanner
}

func NewApplication(logger *slog.Logger) (*Application, error) {
	if err := godotenv.Load(); err != nil {
		logger.Error("Error loading .env file", "error", err)
	}

	var cfg config.Config

	// config values are loaded from the .env file
	// Default values are provided for these items and these should strictly be values for development mode only
	// make sure no production-level value is exposed as default value here
	cfg.BaseURL = env.GetString("BASE_URL", "http://localhost:4444")
	cfg.HttpPort = env.GetInt("HTTP_PORT", 4444)

	cfg.Db.Dsn = env.GetString("DB_DSN", "user:pass@localhost:5432/kassa?sslmode=disable")
	cfg.Db.Automigrate = env.GetBool("DB_AUTOMIGRATE", true)

	cfg.RedisServer = env.GetString("REDIS_SERVER", "localhost:6379")

	cfg.Jwt.SecretKey = env.GetString("JWT_SECRET_KEY", "ajf5nx3qmp6zquevllxocxqvyz42ypuo")

	// the /cron endpoint rejects every call until CRON_SECRET is set
	cfg.Cron.Secret = env.GetString("CRON_SECRET", "")
	cfg.Cron.OverdueSpec = env.GetString("CRON_OVERDUE_SPEC", "0 * * * *")

	// server errors won't be sent via email if the NOTIFICATIONS_EMAIL wasn't set in the .env file
	cfg.Notifications.Email = env.GetString("NOTIFICATIONS_EMAIL", "")

	cfg.Smtp.Host = env.GetString("SMTP_HOST", "example.smtp.host")
	cfg.Smtp.Port = env.GetInt("SMTP_PORT", 25)
	cfg.Smtp.Username = env.GetString("SMTP_USERNAME", "example_username")
	cfg.Smtp.Password = env.GetString("SMTP_PASSWORD", "pa55word")
	cfg.Smtp.From = env.GetString("SMTP_FROM", "Kassa <no_reply@example.org>")

	cfg.KafkaServers = env.GetString("KAFKA_SERVERS", "localhost:9092")

	cfg.FileUploader.ApiKey = env.GetString("CLOUDINARY_API_KEY", "")
	cfg.FileUploader.CloudName = env.GetString("CLOUDINARY_CLOUD_NAME", "")
	cfg.FileUploader.ApiSecret = env.GetString("CLOUDINARY_API_SECRET", "")

	db, err := repository.New(cfg.Db.Dsn, cfg.Db.Automigrate)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	mailer, err := smtp.NewMailer(cfg.Smtp.Host, cfg.Smtp.Port, cfg.Smtp.Username, cfg.Smtp.Password, cfg.Smtp.From)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize mailer: %w", err)
	}

	errorHandler := errHandler.New(cfg.Notifications.Email, mailer, logger, cfg.BaseURL)

	kafkaStream := stream.New(cfg.KafkaServers)

	redisCache := cache.New(cfg.RedisServer, 0)

	fileUploader := file.New(cfg.FileUploader.CloudName, cfg.FileUploader.ApiKey, cfg.FileUploader.ApiSecret)

	app := &Application{
		Config:       cfg,
		DB:           db,
		Logger:       logger,
		Mailer:       mailer,
		errorHandler: errorHandler,
		Kafka:        kafkaStream,
		Cache:        redisCache,
		FileUploader: fileUploader,
	}

	app.Helper = helper.New(&cfg.BaseURL, &app.WG, errorHandler)

	app.Scanner = scan.New(&scan.Scanner{
		FinanceRepo:  db.Finance(),
		DealRepo:     db.Deal(),
		UserRepo:     db.User(),
		ActivityRepo: db.Activity(),
		Notifier:     scan.NewEmailNotifier(mailer, app.Helper),
		Cache:        redisCache,
		Kafka:        kafkaStream,
		Logger:       logger,
	})

	return app, nil
}
