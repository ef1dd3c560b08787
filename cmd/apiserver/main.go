package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	redisDriver "github.com/redis/go-redis/v9"

	"matri-go/internal/config"
	"matri-go/internal/handlers/apiserver"
	appKafka "matri-go/internal/kafka"
	"matri-go/internal/middleware"
	"matri-go/internal/notify"
	appRedis "matri-go/internal/redis"
	"matri-go/internal/services"
	"matri-go/internal/storage"
)

func main() {
	cfg, err := config.LoadConfig("")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := storage.InitDB(cfg.Database)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	if err := storage.AutoMigrateTables(db); err != nil {
		log.Fatalf("Failed to migrate database tables: %v", err)
	}
	log.Println("Database connection and migration succeeded.")

	redisClient := redisDriver.NewClient(&redisDriver.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	log.Println("Connected to Redis.")

	kfkProducer, err := appKafka.NewConfluentKafkaProducer(cfg.Kafka)
	if err != nil {
		log.Fatalf("Failed to create Kafka producer: %v", err)
	}
	defer kfkProducer.Close()

	// Repositories
	userRepo := storage.NewGormUserRepository(db)
	connRepo := storage.NewGormConnectionRequestRepository(db)
	convoRepo := storage.NewGormConversationRepository(db)
	msgRepo := storage.NewGormMessageRepository(db)

	// Notification sinks
	dispatcher := notify.NewDispatcher(
		notify.NewEmailNotifier(cfg.Notify),
		notify.NewSMSNotifier(cfg.Notify),
		notify.NewPushNotifier(userRepo),
	)

	// Services
	otpStore := appRedis.NewRedisOTPStore(redisClient)
	authService := services.NewAuthService(userRepo, otpStore, dispatcher, cfg.Auth)
	connectionService := services.NewConnectionService(connRepo, userRepo)
	policy := services.NewMessagingPolicy(connectionService, msgRepo)
	conversationService := services.NewConversationService(convoRepo, msgRepo, userRepo, connectionService)
	messageService := services.NewMessageService(msgRepo, convoRepo, policy, kfkProducer, cfg.Kafka, cfg.Notify)

	// Handlers
	authHandler := apiserver.NewAuthHandler(authService, userRepo)
	userHandler := apiserver.NewUserHandler(userRepo)
	connectionHandler := apiserver.NewConnectionHandler(connectionService)
	conversationHandler := apiserver.NewConversationHandler(conversationService, messageService)

	r := mux.NewRouter()

	// Public auth routes
	authRouter := r.PathPrefix("/auth").Subrouter()
	authRouter.HandleFunc("/request-otp", authHandler.RequestOTPHandler).Methods(http.MethodPost)
	authRouter.HandleFunc("/verify-otp", authHandler.VerifyOTPHandler).Methods(http.MethodPost)

	// Authenticated API routes
	apiRouter := r.PathPrefix("/api/v1").Subrouter()
	apiRouter.Use(middleware.AuthMiddleware(cfg.Auth.JWTSecretKey))

	apiRouter.HandleFunc("/users/me", userHandler.GetMeHandler).Methods(http.MethodGet)
	apiRouter.HandleFunc("/users/me", userHandler.UpdateMeHandler).Methods(http.MethodPut)
	apiRouter.HandleFunc("/users/me/device-tokens", authHandler.RegisterDeviceTokenHandler).Methods(http.MethodPost)
	apiRouter.HandleFunc("/users/{userID}", userHandler.GetUserHandler).Methods(http.MethodGet)

	connectionRouter := apiRouter.PathPrefix("/connections").Subrouter()
	connectionRouter.HandleFunc("/requests", connectionHandler.SendRequestHandler).Methods(http.MethodPost)
	connectionRouter.HandleFunc("/requests/pending", connectionHandler.ListPendingHandler).Methods(http.MethodGet)
	connectionRouter.HandleFunc("/requests/{requesterID}/accept", connectionHandler.AcceptRequestHandler).Methods(http.MethodPost)
	connectionRouter.HandleFunc("/requests/{requesterID}/reject", connectionHandler.RejectRequestHandler).Methods(http.MethodPost)
	connectionRouter.HandleFunc("/status/{userID}", connectionHandler.StatusHandler).Methods(http.MethodGet)

	apiRouter.HandleFunc("/conversations", conversationHandler.GetOrCreateConversationHandler).Methods(http.MethodPost)
	apiRouter.HandleFunc("/conversations", conversationHandler.ListConversationsHandler).Methods(http.MethodGet)
	apiRouter.HandleFunc("/conversations/{conversationID}/messages", conversationHandler.SendMessageHandler).Methods(http.MethodPost)
	apiRouter.HandleFunc("/conversations/{conversationID}/messages", conversationHandler.ListMessagesHandler).Methods(http.MethodGet)

	corsOptions := []handlers.CORSOption{
		handlers.AllowedOrigins(cfg.APIServer.CORS.AllowedOrigins),
		handlers.AllowedMethods(cfg.APIServer.CORS.AllowedMethods),
		handlers.AllowedHeaders(cfg.APIServer.CORS.AllowedHeaders),
		handlers.ExposedHeaders(cfg.APIServer.CORS.ExposedHeaders),
		handlers.MaxAge(cfg.APIServer.CORS.MaxAge),
	}
	if cfg.APIServer.CORS.AllowCredentials {
		corsOptions = append(corsOptions, handlers.AllowCredentials())
	}

	serverAddr := fmt.Sprintf("%s:%s", cfg.APIServer.Host, cfg.APIServer.Port)
	srv := &http.Server{
		Addr:        serverAddr,
		Handler:     handlers.CORS(corsOptions...)(r),
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Printf("API server listening on %s", serverAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("API server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutdown signal received, stopping API server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Fatalf("API server forced to shut down: %v", err)
	}
	log.Println("API server stopped.")
}
