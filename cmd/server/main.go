package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"brokerage/internal/api"
	"brokerage/internal/broker"
	"brokerage/internal/config"
	"brokerage/internal/feed"
	"brokerage/internal/ledger"
	"brokerage/internal/quote"
	"brokerage/internal/repository"
	"brokerage/internal/risk"
)

// Демо-пользователь создается при старте: регистрации нет,
// торговая поверхность ожидает явный user_id
const (
	seedUserID       = "demo"
	seedBalanceCents = 500000
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := initDatabase(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	log.Printf("Connected to database: %s", cfg.Database.DSNWithoutPassword())

	// Ядро: ledger, hub, мониторинг позиций
	book := ledger.New(cfg.Trading.Leverages)
	if _, err := book.CreateUser(seedUserID, seedBalanceCents); err != nil {
		log.Fatalf("Failed to seed demo user: %v", err)
	}

	hub := broker.NewHub()
	go hub.Run()

	monitor := risk.NewMonitor(book, hub.Quotes())
	monitor.Start()

	// Конвейер котировок: внешний поток -> ingestor -> hub
	ingestor := feed.NewIngestor(
		quote.NewSynthesizer(cfg.Trading.SpreadFactor),
		hub,
		repository.NewTradeRepository(db),
		cfg.Feed.BatchInterval,
	)
	ingestor.Start()

	feedClient := feed.NewWSClient(
		cfg.Feed.URL,
		cfg.Feed.Symbols,
		cfg.Feed.ConnectTimeout,
		cfg.Feed.PingInterval,
		cfg.Feed.ReconnectDelay,
	)
	feedClient.SetOnMessage(ingestor.HandleMessage)

	if err := feedClient.Connect(); err != nil {
		// Переподключение разорванного соединения дальше ведёт сам клиент,
		// но первый коннект обязан пройти
		log.Fatalf("Failed to connect to feed: %v", err)
	}

	router := api.SetupRoutes(&api.Dependencies{
		Ledger: book,
		Hub:    hub,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")

	// Порядок: сначала источник данных (с финальным сбросом батча),
	// затем потребители, затем HTTP
	if err := feedClient.Close(); err != nil {
		log.Printf("Error closing feed connection: %v", err)
	}
	ingestor.Stop()
	monitor.Stop()
	hub.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

// initDatabase создает подключение к базе данных
func initDatabase(cfg *config.Config) (*sql.DB, error) {
	db, err := sql.Open(cfg.Database.Driver, cfg.Database.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := db.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}
