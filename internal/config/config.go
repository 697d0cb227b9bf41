package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	HTTPAddr              string
	MongoURI              string
	MongoDB               string
	RedisAddr             string
	RabbitURL             string
	StripeSecretKey       string
	StripeWebhookSecret   string
	IdentityWebhookSecret string
	JWTPublicKey          string
	SMTPHost              string
	SMTPPort              int
	SMTPUser              string
	SMTPPass              string
	SMTPFrom              string
	HoldTTL               time.Duration
	ReminderPeriod        time.Duration
	OTLPEndpoint          string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	holdTTL, _ := time.ParseDuration(os.Getenv("HOLD_TTL"))
	if holdTTL == 0 {
		holdTTL = 10 * time.Minute
	}
	reminderPeriod, _ := time.ParseDuration(os.Getenv("REMINDER_PERIOD"))
	if reminderPeriod == 0 {
		reminderPeriod = 8 * time.Hour
	}
	smtpPort, _ := strconv.Atoi(os.Getenv("SMTP_PORT"))
	if smtpPort == 0 {
		smtpPort = 587
	}
	httpAddr := os.Getenv("HTTP_ADDR")
	if httpAddr == "" {
		httpAddr = ":8080"
	}
	mongoDB := os.Getenv("MONGO_DB")
	if mongoDB == "" {
		mongoDB = "cinebook"
	}

	return &Config{
		HTTPAddr:              httpAddr,
		MongoURI:              os.Getenv("MONGO_URI"),
		MongoDB:               mongoDB,
		RedisAddr:             os.Getenv("REDIS_ADDR"),
		RabbitURL:             os.Getenv("RABBIT_URL"),
		StripeSecretKey:       os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret:   os.Getenv("STRIPE_WEBHOOK_SECRET"),
		IdentityWebhookSecret: os.Getenv("IDENTITY_WEBHOOK_SECRET"),
		JWTPublicKey:          os.Getenv("JWT_PUBLIC_KEY"),
		SMTPHost:              os.Getenv("SMTP_HOST"),
		SMTPPort:              smtpPort,
		SMTPUser:              os.Getenv("SMTP_USER"),
		SMTPPass:              os.Getenv("SMTP_PASS"),
		SMTPFrom:              os.Getenv("SMTP_FROM"),
		HoldTTL:               holdTTL,
		ReminderPeriod:        reminderPeriod,
		OTLPEndpoint:          os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
	}, nil
}
