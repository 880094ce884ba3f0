package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"freres-bot/config"
	"freres-bot/internal/api"
	"freres-bot/internal/bot"
	"freres-bot/internal/broker"
	"freres-bot/internal/messenger"
	"freres-bot/internal/service"
	"freres-bot/internal/session"
	"freres-bot/internal/store"
	"freres-bot/internal/util"
	"freres-bot/internal/worker"

	"github.com/gin-gonic/gin"
)

func main() {

	cfg := config.Load()

	if err := util.InitLogger(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer util.SyncLogger()

	logger := util.GetLogger()
	logger.Info("Starting freres-bot")

	tp, err := util.InitTracer("freres-bot", cfg.Observ.JaegerEndpoint)
	if err != nil {
		log.Fatalf("Failed to initialize tracer: %v", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(ctx); err != nil {
			log.Printf("Error shutting down tracer: %v", err)
		}
	}()

	db, err := store.NewStore(cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()
	log.Println("Database connected")

	var sessions session.Store
	switch cfg.Session.Backend {
	case "redis":
		redisSessions, err := session.NewRedisStore(
			cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB,
			time.Duration(cfg.Session.TTLSeconds)*time.Second)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisSessions.Close()
		sessions = redisSessions
		log.Println("Redis session store connected")
	default:
		sessions = session.NewMemoryStore()
		log.Println("In-memory session store initialized")
	}

	producer := broker.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder)
	defer producer.Close()
	log.Println("Kafka producer initialized")

	eventPublisher := broker.NewEventPublisher(producer)

	sender := messenger.NewClient(cfg.Messenger.AccessToken, cfg.Messenger.APIBaseURL)

	orderService := service.NewOrderService(db, db, eventPublisher)
	engine := bot.NewEngine(sessions, db, db, orderService)

	workerCtx, workerCancel := context.WithCancel(context.Background())
	defer workerCancel()

	var notifyWorker *worker.NotificationWorker
	if cfg.Messenger.OperatorID != "" {
		consumer := broker.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.TopicOrder, cfg.Kafka.ConsumerGroup)
		notifyWorker = worker.NewNotificationWorker(consumer, db, sender, cfg.Messenger.OperatorID)
		go func() {
			if err := notifyWorker.Start(workerCtx); err != nil {
				log.Printf("Notification worker error: %v", err)
			}
		}()
	} else {
		log.Println("OPERATOR_RECIPIENT_ID not set, order notifications disabled")
	}

	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.Default()
	handler := api.NewHandler(engine, sender, orderService, db, cfg.Messenger.VerifyToken)
	handler.SetupRoutes(router)

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		log.Printf("Starting HTTP server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
	}

	workerCancel()
	if notifyWorker != nil {
		notifyWorker.Stop()
	}

	log.Println("Server exited")
}
