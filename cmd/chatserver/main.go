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

	"github.com/gorilla/mux"
	redisDriver "github.com/redis/go-redis/v9"

	"matri-go/internal/config"
	"matri-go/internal/handlers/chatserver"
	appKafka "matri-go/internal/kafka"
	kafkaHandlers "matri-go/internal/kafka/handlers"
	"matri-go/internal/notify"
	appRedis "matri-go/internal/redis"
	"matri-go/internal/storage"
	ws "matri-go/internal/websocket"
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
	log.Println("Chat server database connection succeeded.")

	redisClient := redisDriver.NewClient(&redisDriver.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}

	// Presence lives in Redis so the API side and other chat server
	// instances see the same online set.
	presence := appRedis.NewRedisPresence(redisClient)

	hub := ws.NewHub(presence)
	go hub.Run()

	userRepo := storage.NewGormUserRepository(db)
	dispatcher := notify.NewDispatcher(
		notify.NewEmailNotifier(cfg.Notify),
		notify.NewSMSNotifier(cfg.Notify),
		notify.NewPushNotifier(userRepo),
	)

	consumer, err := appKafka.NewConfluentKafkaConsumer(cfg.Kafka)
	if err != nil {
		log.Fatalf("Failed to create Kafka consumer: %v", err)
	}
	defer consumer.Close()

	eventHandler := kafkaHandlers.NewMessagingEventHandler(hub, presence, dispatcher)

	consumerCtx, cancelConsumers := context.WithCancel(context.Background())
	defer cancelConsumers()

	go func() {
		topics := []string{cfg.Kafka.MessagingTopic, cfg.Kafka.NotificationsTopic}
		log.Printf("Kafka consumer starting, topics: %v, group: %s", topics, cfg.Kafka.ConsumerGroup)
		err := consumer.Consume(consumerCtx, topics, cfg.Kafka.ConsumerGroup, eventHandler.Handle)
		if err != nil && !errors.Is(err, context.Canceled) {
			log.Printf("Kafka consumer error: %v", err)
		}
		log.Println("Kafka consumer goroutine stopped.")
	}()

	wsHandler := chatserver.NewWebSocketHandler(hub, cfg)

	r := mux.NewRouter()
	r.HandleFunc(cfg.ChatServer.WebSocketPath, wsHandler.ServeWS)

	serverAddr := fmt.Sprintf("%s:%s", cfg.ChatServer.Host, cfg.ChatServer.Port)
	srv := &http.Server{
		Addr:           serverAddr,
		Handler:        r,
		ReadTimeout:    cfg.ChatServer.ReadTimeout,
		WriteTimeout:   cfg.ChatServer.WriteTimeout,
		MaxHeaderBytes: cfg.ChatServer.MaxHeaderBytes,
	}

	go func() {
		log.Printf("Chat server listening on %s%s", serverAddr, cfg.ChatServer.WebSocketPath)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Chat server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutdown signal received, stopping chat server...")

	cancelConsumers()

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Fatalf("Chat server forced to shut down: %v", err)
	}
	log.Println("Chat server stopped.")
}
