package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"omniauction/internal/api/handlers"
	apimiddleware "omniauction/internal/api/middleware"
	"omniauction/internal/config"
	"omniauction/internal/domain"
	"omniauction/internal/engine"
	redisinfra "omniauction/internal/infrastructure/redis"
	wsinfra "omniauction/internal/infrastructure/websocket"
	"omniauction/internal/services"
	"omniauction/pkg/logger"

	redisClient "github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
)

func main() {
	log := logger.New()
	log.Info("Starting OmniAuction service")

	cfg, err := config.Load()
	if err != nil {
		log.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	log.Info("Configuration loaded", "config", cfg.GetConfigString())

	clock := domain.SystemClock{}

	// Connection manager and local broadcast sink
	connManager := wsinfra.NewConnectionManager(log)
	localSink := wsinfra.NewNotifier(connManager)

	// When redis is enabled the engine publishes to the shared channel and
	// the relay feeds local connections from it, so observers on every
	// instance see one stream. Without redis the engine broadcasts directly.
	var (
		engineSink domain.NotificationSink = localSink
		rdb        *redisClient.Client
		relayStop  context.CancelFunc
	)

	if cfg.Redis.Enabled {
		rdb = redisClient.NewClient(&redisClient.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := rdb.Ping(ctx).Err(); err != nil {
			cancel()
			log.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}
		cancel()
		log.Info("Connected to Redis", "address", cfg.Redis.Address)

		engineSink = redisinfra.NewEventPublisher(rdb)

		relay := services.NewEventRelay(connManager, log)
		subscriber := redisinfra.NewEventSubscriber(rdb, log)

		var relayCtx context.Context
		relayCtx, relayStop = context.WithCancel(context.Background())
		go func() {
			if err := relay.Start(relayCtx, subscriber); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("Event relay stopped", "error", err)
			}
		}()
	}

	// Auction engine with the configured catalog
	eng := engine.New(cfg.Catalog, engineSink, clock, cfg.Auction.MinIncrement, log)
	log.Info("Auction engine initialized", "products", len(cfg.Catalog))

	// Ending-soon monitor
	monitor := services.NewEndingSoonMonitor(eng, engineSink, clock,
		cfg.Auction.EndingSoonThreshold, cfg.Auction.ScanInterval, log)
	if err := monitor.Start(); err != nil {
		log.Error("Failed to start ending-soon monitor", "error", err)
		os.Exit(1)
	}

	// REST API server
	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.RequestID())
	e.Use(middleware.Recover())
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{
			echo.GET, echo.HEAD, echo.PUT, echo.PATCH,
			echo.POST, echo.DELETE, echo.OPTIONS,
		},
	}))

	auctionHandler := handlers.NewAuctionHandler(eng, log)
	auctionHandler.Register(e)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":      "ok",
			"service":     "omniauction",
			"timestamp":   time.Now().Format(time.RFC3339),
			"subscribers": connManager.ConnectionCount(),
		})
	})

	apiAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	go func() {
		log.Info("Starting API server", "address", apiAddr)
		if err := e.Start(apiAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("API server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// WebSocket server on its own listener
	wsHandler := wsinfra.NewHandler(connManager, log)

	router := mux.NewRouter()
	router.Use(apimiddleware.CORS)
	router.HandleFunc("/ws", wsHandler.HandleConnection)
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("OK"))
	}).Methods("GET")

	wsServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.WSPort),
		Handler: router,
	}

	go func() {
		log.Info("Starting websocket server", "address", wsServer.Addr)
		if err := wsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("WebSocket server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down OmniAuction service...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	monitor.Stop()
	if relayStop != nil {
		relayStop()
	}

	if err := e.Shutdown(ctx); err != nil {
		log.Error("API server forced to shutdown", "error", err)
	}
	if err := wsServer.Shutdown(ctx); err != nil {
		log.Error("WebSocket server forced to shutdown", "error", err)
	}
	if rdb != nil {
		if err := rdb.Close(); err != nil {
			log.Error("Failed to close Redis connection", "error", err)
		}
	}

	log.Info("OmniAuction service stopped")
}
