package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"genset-bridge/pkg/config"
	"genset-bridge/pkg/database"
	"genset-bridge/pkg/gateway"
	"genset-bridge/pkg/health"
	"genset-bridge/pkg/httpapi"
	"genset-bridge/pkg/logger"
	"genset-bridge/pkg/metrics"
	"genset-bridge/pkg/mqtt"
	"genset-bridge/pkg/protocol"
	"genset-bridge/pkg/services"
	"genset-bridge/pkg/state"
)

const version = "1.2.0"

// Application wires the connection manager, the polling and command
// services and the export surfaces together.
// Facade Pattern - simplified interface for complex system
type Application struct {
	config    *config.Config
	manager   *gateway.ConnectionManager
	store     *state.Store
	monitor   *health.Monitor
	collector *metrics.Tracker
	poller    *services.PollingService
	commands  *services.CommandService
	publisher *mqtt.Publisher
	journal   *database.Journal
	httpSrv   *httpapi.Server

	cancel context.CancelFunc
}

// NewApplication creates a new application instance
func NewApplication(configPath string) (*Application, error) {
	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("error loading configuration: %w", err)
	}

	logger.GlobalLogging = &cfg.Logging
	logger.LogStartup("🔧 Logging initialized with level: %s", cfg.Logging.Level)

	app := &Application{
		config:    cfg,
		store:     state.NewStore(),
		monitor:   health.NewMonitor(cfg.Poll.GracePeriod()),
		collector: metrics.NewTracker(),
	}

	app.manager = gateway.NewConnectionManager(gateway.Config{
		Host:             cfg.Device.Host,
		Port:             cfg.Device.Port,
		DialTimeout:      cfg.Device.DialTimeout(),
		WriteTimeout:     cfg.Device.WriteTimeout(),
		BackoffFloor:     cfg.Poll.BackoffFloor(),
		BackoffCeiling:   cfg.Poll.BackoffCeiling(),
		MaxResponseBytes: cfg.Device.MaxResponseBytes,
	}, nil, app.onConnState)

	if cfg.Journal.Enabled {
		journal, err := database.OpenJournal(cfg.Journal.Path)
		if err != nil {
			return nil, fmt.Errorf("error opening event journal: %w", err)
		}
		app.journal = journal
	}

	if cfg.MQTT.Enabled {
		app.publisher = mqtt.NewPublisher(&cfg.MQTT)
	}

	// The interfaces are nil-able; pass them through only when configured
	var statePublisher services.StatePublisher
	if app.publisher != nil {
		statePublisher = app.publisher
	}
	var recorder services.EventRecorder
	if app.journal != nil {
		recorder = app.journal
	}

	app.poller = services.NewPollingService(
		app.manager, app.store, app.monitor,
		statePublisher, recorder, app.collector,
		cfg.Poll.Interval(), cfg.Device.ReadTimeout(),
	)
	app.commands = services.NewCommandService(
		app.manager, recorder, app.collector, cfg.Poll.CommandTimeout(),
	)

	if cfg.HTTP.Enabled {
		healthHandler := httpapi.NewHealthHandler(app.monitor, version)
		app.httpSrv = httpapi.NewServer(cfg.HTTP.Listen, app.store, app.commands, healthHandler, app.collector)
	}

	return app, nil
}

// onConnState mirrors connection state transitions into the store, the
// metrics and the journal
func (app *Application) onConnState(cs gateway.ConnState) {
	app.store.SetConnState(cs)
	app.collector.SetConnected(cs == gateway.StateConnected)
	logger.LogDebug("🔌 Connection state: %s", cs)
	if app.journal != nil {
		app.journal.Record("link", "connection state: "+cs.String())
	}
}

// Start starts the application
func (app *Application) Start(ctx context.Context) error {
	logger.LogInfo("🚀 Starting Genset Bridge...")
	logger.LogInfo("🔌 Device endpoint: %s:%d", app.config.Device.Host, app.config.Device.Port)

	ctx, app.cancel = context.WithCancel(ctx)

	if app.publisher != nil {
		if err := app.publisher.Connect(ctx); err != nil {
			return fmt.Errorf("error connecting publisher: %w", err)
		}
		if err := app.publisher.PublishAvailability(ctx, true); err != nil {
			logger.LogError("⚠️ Error publishing online status: %v", err)
		}
		if err := app.publisher.PublishDiagnostic(ctx, 0, "Genset Bridge started successfully"); err != nil {
			logger.LogError("⚠️ Error publishing diagnostic: %v", err)
		}
		go app.publisher.RunHeartbeat(ctx, app.monitor.IsOnline)
	}

	if app.httpSrv != nil {
		errCh := app.httpSrv.Start()
		go func() {
			if err, ok := <-errCh; ok && err != nil {
				logger.LogError("❌ HTTP panel server failed: %v", err)
			}
		}()
	}

	go app.poller.Run(ctx)

	if app.journal != nil {
		app.journal.Record("lifecycle", "bridge started")
	}

	logger.LogInfo("✅ Genset Bridge started successfully")
	logger.LogInfo("🔇 Verbose logging reduced - Summary reports every 30 seconds")
	return nil
}

// Stop stops the application
func (app *Application) Stop() {
	logger.LogInfo("🛑 Stopping Genset Bridge...")

	if app.cancel != nil {
		app.cancel()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if app.publisher != nil {
		if err := app.publisher.PublishAvailability(ctx, false); err != nil {
			logger.LogError("⚠️ Error publishing offline status: %v", err)
		} else if err := app.publisher.PublishDiagnostic(ctx, 0, "Genset Bridge stopped gracefully"); err != nil {
			logger.LogError("⚠️ Error publishing diagnostic: %v", err)
		}
		app.publisher.Disconnect()
	}

	if app.httpSrv != nil {
		if err := app.httpSrv.Shutdown(ctx); err != nil {
			logger.LogError("⚠️ Error shutting down HTTP panel: %v", err)
		}
	}

	app.manager.Close()

	if app.journal != nil {
		app.journal.Record("lifecycle", "bridge stopped")
		if err := app.journal.Close(); err != nil {
			logger.LogError("⚠️ Error closing event journal: %v", err)
		}
	}

	logger.LogInfo("✅ Genset Bridge stopped")
}

// DiagnosticMode runs connectivity tests to help troubleshoot field wiring
func (app *Application) DiagnosticMode(ctx context.Context) error {
	logger.LogInfo("🔍 Starting diagnostic mode...")

	logger.LogInfo("🔍 Test 1: Device Reachability (%s:%d)", app.config.Device.Host, app.config.Device.Port)
	resp, err := app.manager.Exchange(ctx, protocol.EncodeStatusQuery(),
		app.config.Device.ReadTimeout(), app.config.Device.ReadTimeout())
	if err != nil {
		logger.LogError("❌ Status query failed: %v", err)
		logger.LogInfo("💡 Possible issues:")
		logger.LogInfo("   - Serial-to-Ethernet bridge is powered off or unreachable")
		logger.LogInfo("   - Wrong host/port in configuration (%s:%d)", app.config.Device.Host, app.config.Device.Port)
		logger.LogInfo("   - Generator controller not wired to the bridge serial port")
		logger.LogInfo("   - Network connectivity issues")
		return fmt.Errorf("status query failed: %w", err)
	}
	logger.LogInfo("✅ Device answered (%d bytes)", len(resp))

	logger.LogInfo("🔍 Test 2: Status Decoding")
	st := protocol.DecodeStatus(resp)
	if st.Status == protocol.StatusParseError {
		logger.LogError("❌ Response could not be decoded: %q", string(resp))
		logger.LogInfo("💡 Possible issues:")
		logger.LogInfo("   - Wrong baud rate or serial parameters on the bridge")
		logger.LogInfo("   - A different device is answering on this port")
		return fmt.Errorf("status response not parseable")
	}
	logger.LogInfo("✅ Decoded status: %s, mode: %s, %.1f kW, %.1f Hz, fuel %.0f%%",
		st.Status, st.Mode, st.PowerKW, st.FrequencyHz, st.FuelLevelPct)
	if len(st.Alarms) > 0 {
		logger.LogWarn("⚠️ Active alarms: %v", st.Alarms)
	}

	if app.journal != nil {
		logger.LogInfo("🔍 Test 3: Recent Journal Events")
		events, err := app.journal.RecentEvents(10)
		if err != nil {
			logger.LogWarn("⚠️ Could not read journal: %v", err)
		} else {
			for _, ev := range events {
				logger.LogInfo("   %s [%s] %s", ev.Timestamp.Format("15:04:05"), ev.Category, ev.Message)
			}
		}
	}

	logger.LogInfo("🎉 All diagnostic tests passed!")
	return nil
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	configPath := ""
	diagnosticMode := false

	for i, arg := range os.Args[1:] {
		if arg == "--help" || arg == "-h" {
			fmt.Printf("Usage: %s [config_path] [--diagnostic]\n", os.Args[0])
			fmt.Printf("  config_path: Path to configuration file (optional)\n")
			fmt.Printf("  --diagnostic: Run diagnostic mode to test connectivity\n")
			return
		} else if arg == "--diagnostic" {
			diagnosticMode = true
		} else if i == 0 {
			configPath = arg
		}
	}

	app, err := NewApplication(configPath)
	if err != nil {
		logger.LogError("Application creation error: %v", err)
		os.Exit(1)
	}

	if diagnosticMode {
		if err := app.DiagnosticMode(ctx); err != nil {
			logger.LogError("Diagnostic failed: %v", err)
			os.Exit(1)
		}
		logger.LogInfo("✅ Diagnostic completed successfully")
		return
	}

	if err := app.Start(ctx); err != nil {
		logger.LogError("Application start error: %v", err)
		os.Exit(1)
	}

	<-sigChan
	logger.LogInfo("📢 Stop signal received...")

	app.Stop()
}
