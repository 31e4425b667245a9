package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rectifier-monitor/internal/api"
	"rectifier-monitor/internal/database"
	"rectifier-monitor/internal/metrics"
	"rectifier-monitor/internal/models"
	"rectifier-monitor/internal/monitor"
	"rectifier-monitor/internal/mqtt"
	"rectifier-monitor/internal/websocket"
	"rectifier-monitor/internal/worklog"
	"rectifier-monitor/pkg/config"
)

func main() {
	log.Println("Starting Rectifier Monitor Service...")

	// Load configuration
	cfg := config.Load()

	metrics.Init()

	// Initialize ClickHouse database
	db, err := database.NewClickHouseDB(
		cfg.ClickHouseAddr,
		cfg.ClickHouseDB,
		cfg.ClickHouseUser,
		cfg.ClickHousePass,
	)
	if err != nil {
		log.Fatalf("Failed to initialize ClickHouse: %v", err)
	}
	defer db.Close()

	// Build the two monitor groups. The hard units keep an independent time
	// range per device; the soft units share one range and one combined query.
	hard := monitor.New(monitor.Config{
		Group:           "hard",
		SlaveIDs:        cfg.HardSlaveIDs,
		CapPerSeries:    cfg.SeriesCap,
		QueryLimit:      cfg.HardQueryLimit,
		OnlineThreshold: cfg.HardOnlineThreshold,
		RangeMode:       monitor.RangePerDevice,
		DefaultRange:    cfg.DefaultTimeRange,
	}, db)

	soft := monitor.New(monitor.Config{
		Group:           "soft",
		SlaveIDs:        cfg.SoftSlaveIDs,
		CapPerSeries:    cfg.SeriesCap,
		QueryLimit:      cfg.SoftQueryLimit,
		OnlineThreshold: cfg.SoftOnlineThreshold,
		RangeMode:       monitor.RangeShared,
		DefaultRange:    cfg.DefaultTimeRange,
	}, db)

	worklogSvc := worklog.NewService(db)

	// WebSocket hub pushes every applied update to connected dashboards.
	hub := websocket.NewHub()
	go hub.Run()

	hard.SetUpdateFunc(func(s monitor.Snapshot) { hub.BroadcastJSON("monitor", s) })
	soft.SetUpdateFunc(func(s monitor.Snapshot) { hub.BroadcastJSON("monitor", s) })
	worklogSvc.SetUpdateFunc(func(s worklog.Snapshot) { hub.BroadcastJSON("worklog", s) })

	// Initial bulk loads. A failure leaves the group in its error state but
	// keeps the service up; the dashboard renders the error in place of data.
	loadCtx, cancelLoad := context.WithTimeout(context.Background(), 30*time.Second)
	if err := hard.LoadAll(loadCtx); err != nil {
		log.Printf("Initial hard-monitor load failed: %v", err)
	}
	if err := soft.LoadAll(loadCtx); err != nil {
		log.Printf("Initial soft-monitor load failed: %v", err)
	}
	if err := worklogSvc.Refresh(loadCtx); err != nil {
		log.Printf("Initial work-log load failed: %v", err)
	}
	cancelLoad()

	// Initialize MQTT subscriber for the backend's change notifications
	sub, err := mqtt.NewSubscriber(mqtt.Config{
		Broker:         cfg.MQTTBroker,
		ClientID:       cfg.MQTTClientID,
		Username:       cfg.MQTTUsername,
		Password:       cfg.MQTTPassword,
		TelemetryTopic: cfg.MQTTTopicTelemetry,
		WorkLogTopic:   cfg.MQTTTopicWorkLog,
	})
	if err != nil {
		log.Fatalf("Failed to initialize MQTT subscriber: %v", err)
	}
	defer sub.Close()

	sub.SetHandlers(mqtt.Handlers{
		OnTelemetry: func(row models.TelemetryRow) {
			handleTelemetry(row, hard, soft)
		},
		OnWorkLogChange: func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			worklogSvc.OnChangeEvent(ctx)
		},
	})

	if err := sub.SubscribeAll(); err != nil {
		log.Fatalf("Failed to subscribe to MQTT topics: %v", err)
	}

	// HTTP API
	handler := api.NewAPIHandler([]*monitor.ViewModel{hard, soft}, worklogSvc, hub)
	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: api.NewRouter(handler),
	}

	go func() {
		log.Printf("HTTP server listening on %s", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	log.Println("Rectifier Monitor Service is running. Press Ctrl+C to exit.")

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	log.Println("Shutting down gracefully...")

	// Tear down the subscriptions before the connection so no stale delivery
	// races shutdown.
	if err := sub.Unsubscribe(); err != nil {
		log.Printf("Unsubscribe failed: %v", err)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP shutdown error: %v", err)
	}
}

// handleTelemetry routes one pushed row to the group tracking that device.
func handleTelemetry(row models.TelemetryRow, monitors ...*monitor.ViewModel) {
	for _, vm := range monitors {
		if vm.Tracks(row.SlaveID) {
			vm.OnIncomingPoint(row)
		}
	}
}
