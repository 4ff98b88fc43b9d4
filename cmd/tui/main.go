package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"os/signal"
	"syscall"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/compressed-swap/internal/config"
	"github.com/rovshanmuradov/compressed-swap/internal/events"
	"github.com/rovshanmuradov/compressed-swap/internal/logger"
	"github.com/rovshanmuradov/compressed-swap/internal/runner"
	"github.com/rovshanmuradov/compressed-swap/internal/ui"
	"github.com/rovshanmuradov/compressed-swap/internal/ui/app"
)

const (
	logBufferSize = 1000
	uiQueueSize   = 256
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "", "Path to config file (JSON or YAML)")
	envPath := flag.String("env", ".env", "Path to .env file")
	simulate := flag.Bool("simulate", false, "Run against an in-memory network instead of the configured RPC endpoints")
	flag.Parse()

	// Create context with signal handling
	rootCtx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := config.LoadDotEnv(*envPath); err != nil {
		log.Fatalf("Failed to load env: %v", err)
	}
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Logs go to the in-memory buffer and the rotated file, never stdout.
	logBuffer := logger.NewLogBuffer(logBufferSize)
	lc := cfg.LoggerConfig()
	lc.Buffer = logBuffer
	appLogger, err := logger.New(lc)
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer func() {
		_ = logger.Sync(appLogger)
	}()

	appLogger.Info("Starting swap console")

	var ropts []runner.Option
	if *simulate {
		ropts = append(ropts, runner.WithSimulatedNetwork(uint64(time.Now().UnixNano())))
	}
	r, err := runner.New(cfg, appLogger, ropts...)
	if err != nil {
		appLogger.Fatal("Failed to initialize swap engine", zap.Error(err))
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := r.Close(ctx); err != nil {
			appLogger.Error("Shutdown error", zap.Error(err))
		}
	}()

	go func() {
		if err := r.ServeMetrics(rootCtx); err != nil {
			appLogger.Error("Metrics server failed", zap.Error(err))
		}
	}()

	sender := ui.NewUpdateSender(make(chan tea.Msg, uiQueueSize), appLogger)
	defer sender.Close()
	sub := sender.Forward(r.Bus,
		events.OperationStarted,
		events.PhaseChanged,
		events.OperationCompleted,
		events.OperationFailed,
		events.ConnectionChanged,
		events.BalanceChanged)
	defer sub.Unsubscribe()

	svc := &ui.Services{
		Ctx:       rootCtx,
		Session:   r.Session,
		Faucet:    r.Faucet,
		Ledger:    r.Ledger,
		Estimator: r.Estimator,
		Logs:      logBuffer,
		Exporter:  r.Exporter,
		ExportDir: cfg.ExportDir,
		Logger:    appLogger,
		Wallet:    r.WalletAddress(),
	}

	handler := ui.NewRecoveryHandler(appLogger, func() (tea.Model, []tea.ProgramOption) {
		model := ui.NewSafeUIWrapper(app.New(svc, sender.Messages()), appLogger)
		return model, []tea.ProgramOption{
			tea.WithAltScreen(),
			tea.WithMouseCellMotion(),
		}
	})

	// Stop the console on shutdown signal
	go func() {
		<-rootCtx.Done()
		handler.Stop()
	}()

	if err := handler.RunWithRecovery(rootCtx); err != nil && !errors.Is(err, context.Canceled) {
		appLogger.Error("TUI application failed", zap.Error(err))
	}
	appLogger.Info("Shutting down swap console")
}
