package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	mongoadapter "github.com/rdanilin/cinebook/internal/adapters/mongo"
	"github.com/rdanilin/cinebook/internal/adapters/rabbit"
	"github.com/rdanilin/cinebook/internal/config"
	"github.com/rdanilin/cinebook/internal/notify"
	"github.com/rdanilin/cinebook/internal/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	shutdownOtel, err := observability.SetupOTel(context.Background(), cfg)
	if err != nil {
		log.Fatalf("failed to setup otel: %v", err)
	}
	defer shutdownOtel()

	logger := observability.NewLogger()

	mongoClient, err := mongo.Connect(context.Background(), options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatalf("failed to connect to mongo: %v", err)
	}
	defer mongoClient.Disconnect(context.Background())
	db := mongoClient.Database(cfg.MongoDB)

	bookingRepo := mongoadapter.NewBookingRepository(db, logger)
	showRepo := mongoadapter.NewShowRepository(db, logger)
	movieRepo := mongoadapter.NewMovieRepository(db, logger)
	userRepo := mongoadapter.NewUserRepository(db, logger)

	conn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer conn.Close()

	consumer, err := rabbit.NewConsumer(conn, "notifier.q", rabbit.KeyBookingPaid, rabbit.KeyShowAdded)
	if err != nil {
		log.Fatalf("failed to create consumer: %v", err)
	}

	mailer := notify.NewSMTPMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom)
	notifier := notify.NewNotifier(bookingRepo, showRepo, movieRepo, userRepo, mailer, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	deliveries, err := consumer.Consume(ctx)
	if err != nil {
		log.Fatalf("failed to consume: %v", err)
	}
	go notifier.Consume(ctx, deliveries)

	go func() {
		ticker := time.NewTicker(cfg.ReminderPeriod)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				if _, err := notifier.SendReminders(ctx, now, cfg.ReminderPeriod); err != nil {
					logger.WithError(err).Error("reminder run failed")
				}
			}
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
	<-sig
	logger.Info("Shutdown notifier")
}
