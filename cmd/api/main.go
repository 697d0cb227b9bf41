package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	redisclient "github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	mongoadapter "github.com/rdanilin/cinebook/internal/adapters/mongo"
	"github.com/rdanilin/cinebook/internal/adapters/rabbit"
	redisadapter "github.com/rdanilin/cinebook/internal/adapters/redis"
	stripeadapter "github.com/rdanilin/cinebook/internal/adapters/stripe"
	"github.com/rdanilin/cinebook/internal/availability"
	"github.com/rdanilin/cinebook/internal/booking"
	"github.com/rdanilin/cinebook/internal/config"
	"github.com/rdanilin/cinebook/internal/favourites"
	httphandler "github.com/rdanilin/cinebook/internal/http"
	"github.com/rdanilin/cinebook/internal/identity"
	"github.com/rdanilin/cinebook/internal/idempotency"
	"github.com/rdanilin/cinebook/internal/observability"
	"github.com/rdanilin/cinebook/internal/ratelimit"
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

	showRepo := mongoadapter.NewShowRepository(db, logger)
	bookingRepo := mongoadapter.NewBookingRepository(db, logger)
	userRepo := mongoadapter.NewUserRepository(db, logger)
	movieRepo := mongoadapter.NewMovieRepository(db, logger)

	redisClient := redisclient.NewClient(&redisclient.Options{Addr: cfg.RedisAddr})
	redisCache := redisadapter.NewCache(redisClient)
	redisIdemp := redisadapter.NewIdempotency(redisClient)
	idemp := idempotency.NewIdempotency(redisIdemp, time.Hour)
	rl := ratelimit.NewRateLimiter(redisCache)

	rabbitConn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		log.Fatalf("failed to connect to rabbitmq: %v", err)
	}
	defer rabbitConn.Close()
	rabbitPub, err := rabbit.NewPublisher(rabbitConn)
	if err != nil {
		log.Fatalf("failed to create publisher: %v", err)
	}

	checkout := stripeadapter.NewCheckoutClient(cfg.StripeSecretKey, cfg.StripeWebhookSecret)

	checker := availability.NewChecker(showRepo, logger)
	bookingSvc := booking.NewService(showRepo, bookingRepo, movieRepo, checker, redisCache, checkout, logger, cfg.HoldTTL)
	favSvc := favourites.NewService(userRepo, movieRepo)
	syncer := identity.NewSyncer(userRepo, logger)

	handlers := httphandler.NewHandlers(cfg, bookingSvc, favSvc, syncer, showRepo, movieRepo, userRepo, bookingRepo, idemp, rabbitPub, checkout, logger)
	r := httphandler.SetupRouter(handlers, logger, rl)

	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %s\n", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutdown Server ...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("Server Shutdown:", err)
	}
	logger.Info("Server exiting")
}
