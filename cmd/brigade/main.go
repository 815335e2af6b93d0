package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"brigade/internal/api"
	"brigade/internal/bridge"
	"brigade/internal/config"
	"brigade/internal/database"
	"brigade/internal/kds"
	"brigade/internal/monitoring"
	"brigade/internal/realtime"

	"github.com/gin-gonic/gin"
)

var (
	port        = flag.Int("port", 0, "API server port (overrides config)")
	metricsPort = flag.Int("metrics-port", 0, "Metrics server port (overrides config)")
	configFile  = flag.String("config", "configs/config.yaml", "Path to configuration file")
)

func main() {
	flag.Parse()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load configuration
	cfg, err := config.Load(*configFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *port > 0 {
		cfg.Server.Port = *port
	}
	if *metricsPort > 0 {
		cfg.Server.MetricsPort = *metricsPort
	}
	if !cfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}

	// Initialize database
	db, err := database.InitDB(cfg.Database, cfg.Debug())
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.CloseDB()
	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	monitor := monitoring.NewMonitor()
	hub := realtime.NewHub(monitor)

	storeOpts := []kds.Option{kds.WithMonitor(monitor)}
	source := notificationSource(cfg, &storeOpts)
	store := kds.NewStore(db, storeOpts...)

	sinks := []bridge.Sink{hub}
	if cfg.Kafka.Brokers != "" {
		kafkaSink := bridge.NewKafkaSink(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer kafkaSink.Close()
		sinks = append(sinks, kafkaSink)
		log.Printf("Relaying change events to kafka topic %s", cfg.Kafka.Topic)
	}
	if source != nil {
		defer source.Close()
		go func() {
			if err := bridge.New(source, monitor, sinks...).Run(ctx); err != nil && err != context.Canceled {
				log.Printf("Notification bridge stopped: %v", err)
			}
		}()
	}

	// Start metrics server
	if cfg.Server.MetricsPort > 0 {
		go startMetricsServer(cfg.Server.MetricsPort, monitor)
	}

	srv := api.NewServer(store, hub, monitor, cfg.Auth.JWTSecret)
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: srv.Router,
	}

	// Graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down servers...")
		hub.Close()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("API server shutdown error: %v", err)
		}

		cancel()
	}()

	log.Printf("Starting API server on port %d", cfg.Server.Port)
	if err := server.ListenAndServe(); err != http.ErrServerClosed {
		log.Fatalf("API server error: %v", err)
	}
}

// notificationSource picks where change signals come from. A postgres listener
// that cannot subscribe degrades to no notifications; displays then rely on
// their own refreshes.
func notificationSource(cfg *config.Config, storeOpts *[]kds.Option) bridge.Source {
	switch cfg.Notifications.Mode {
	case config.NotifyPostgres:
		source, err := bridge.NewPQSource(database.ActiveDSN(), cfg.Notifications)
		if err != nil {
			log.Printf("Failed to subscribe to change notifications: %v", err)
			return nil
		}
		log.Printf("Listening for %s and %s", bridge.ChannelOrders, bridge.ChannelTransactions)
		return source
	case config.NotifyLocal:
		source := bridge.NewLocalSource()
		*storeOpts = append(*storeOpts, kds.WithNotifier(source))
		return source
	default:
		log.Println("Change notifications disabled")
		return nil
	}
}

func startMetricsServer(port int, monitor *monitoring.Monitor) {
	metricsRouter := gin.New()
	metricsRouter.Use(gin.Recovery())
	metricsRouter.GET("/metrics", gin.WrapH(monitor.Handler()))

	metricsServer := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: metricsRouter,
	}

	log.Printf("Starting metrics server on port %d", port)
	if err := metricsServer.ListenAndServe(); err != http.ErrServerClosed {
		log.Printf("Metrics server error: %v", err)
	}
}
