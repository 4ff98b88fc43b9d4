// cmd/swap/main.go
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/rovshanmuradov/compressed-swap/internal/config"
	"github.com/rovshanmuradov/compressed-swap/internal/export"
	"github.com/rovshanmuradov/compressed-swap/internal/ledger"
	"github.com/rovshanmuradov/compressed-swap/internal/logger"
	"github.com/rovshanmuradov/compressed-swap/internal/runner"
	"github.com/rovshanmuradov/compressed-swap/internal/swap"
)

type options struct {
	configPath string
	envPath    string
	from       string
	to         string
	amount     string
	slippage   float64
	compress   bool
	airdrop    float64
	filter     string
	exportFmt  string
	export     bool
	simulate   bool
	hold       time.Duration
}

func parseFlags() options {
	var o options
	flag.StringVar(&o.configPath, "config", "", "Path to config file (JSON or YAML)")
	flag.StringVar(&o.envPath, "env", ".env", "Path to .env file")
	flag.StringVar(&o.from, "from", "SOL", "Token to sell")
	flag.StringVar(&o.to, "to", "USDC", "Token to buy")
	flag.StringVar(&o.amount, "amount", "1", "Amount of -from to swap")
	flag.Float64Var(&o.slippage, "slippage", 0.5, "Slippage tolerance in percent")
	flag.BoolVar(&o.compress, "compress", false, "Route through the compressed path")
	flag.Float64Var(&o.airdrop, "airdrop", 0, "Request this many SOL from the faucet first (max 2)")
	flag.StringVar(&o.filter, "filter", "all", "Ledger filter for the summary: all, compressed, standard, swap, airdrop")
	flag.BoolVar(&o.export, "export", false, "Write the filtered ledger to the configured export directory")
	flag.StringVar(&o.exportFmt, "export-format", "csv", "Export format: csv or json")
	flag.BoolVar(&o.simulate, "simulate", false, "Run against an in-memory network instead of the configured RPC endpoints")
	flag.DurationVar(&o.hold, "hold", 0, "Keep serving metrics this long after the swap")
	flag.Parse()
	return o
}

func main() {
	opts := parseFlags()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := config.LoadDotEnv(opts.envPath); err != nil {
		log.Fatalf("Failed to load env: %v", err)
	}
	cfg, err := config.LoadConfig(opts.configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	appLogger, err := logger.New(cfg.LoggerConfig())
	if err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer func() {
		_ = logger.Sync(appLogger)
	}()

	code := run(ctx, cfg, appLogger, opts)
	stop()
	_ = logger.Sync(appLogger)
	os.Exit(code)
}

func run(ctx context.Context, cfg *config.Config, appLogger *zap.Logger, opts options) int {
	var ropts []runner.Option
	if opts.simulate {
		ropts = append(ropts, runner.WithSimulatedNetwork(uint64(time.Now().UnixNano())))
	}
	r, err := runner.New(cfg, appLogger, ropts...)
	if err != nil {
		appLogger.Error("Failed to initialize swap engine", zap.Error(err))
		return 1
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := r.Close(sctx); err != nil {
			appLogger.Error("Shutdown error", zap.Error(err))
		}
	}()

	metricsCtx, stopMetrics := context.WithCancel(ctx)
	defer stopMetrics()
	go func() {
		if err := r.ServeMetrics(metricsCtx); err != nil {
			appLogger.Error("Metrics server failed", zap.Error(err))
		}
	}()

	status := r.Session.Connect(ctx)
	fmt.Printf("Network: %s  connected: %t  demo: %t\n", status.Network, status.Connected, status.DemoMode)
	if status.BalanceSynced {
		fmt.Printf("Wallet %s balance: %s SOL\n", status.Wallet, status.Balance.String())
	}

	if opts.airdrop > 0 {
		requestAirdrop(ctx, r, opts.airdrop)
	}

	amount, err := decimal.NewFromString(opts.amount)
	if err != nil {
		appLogger.Error("Invalid amount", zap.String("amount", opts.amount), zap.Error(err))
		return 2
	}
	req := swap.Request{
		Operator:    r.WalletAddress(),
		From:        opts.from,
		To:          opts.to,
		Amount:      amount,
		SlippageBps: int(opts.slippage*100 + 0.5),
		Compress:    opts.compress,
	}

	out, err := r.Session.Submit(ctx, req)
	if err != nil {
		appLogger.Error("Swap rejected", zap.Error(err))
		return 2
	}
	printOutcome(out)
	if err := printLedger(r.Ledger, opts.filter); err != nil {
		appLogger.Warn("Cannot print ledger", zap.Error(err))
	}

	if opts.export {
		exportLedger(r, cfg.ExportDir, opts)
	}

	if opts.hold > 0 && cfg.MetricsAddr != "" {
		appLogger.Info("Holding for metrics scrape", zap.Duration("hold", opts.hold))
		select {
		case <-ctx.Done():
		case <-time.After(opts.hold):
		}
	}

	if out.Failed() {
		return 1
	}
	return 0
}

func requestAirdrop(ctx context.Context, r *runner.Runner, sol float64) {
	addr := r.WalletAddress()
	if addr == "" {
		r.Logger.Warn("Airdrop skipped: no wallet configured")
		return
	}
	res, err := r.Faucet.Request(ctx, addr, decimal.NewFromFloat(sol))
	if err != nil {
		r.Logger.Error("Airdrop failed", zap.Error(err))
		return
	}
	fmt.Printf("Airdrop: +%s SOL via %s (%s)\n", res.Credited().String(), res.Endpoint, res.Signature)
}

func exportLedger(r *runner.Runner, dir string, opts options) {
	format, err := export.ParseFormat(opts.exportFmt)
	if err != nil {
		r.Logger.Error("Export skipped", zap.Error(err))
		return
	}
	path, err := r.Exporter.Export(r.Ledger, export.Options{
		Format:    format,
		Filter:    opts.filter,
		OutputDir: dir,
	})
	if err != nil {
		r.Logger.Error("Export failed", zap.Error(err))
		return
	}
	fmt.Printf("Ledger written to %s\n", path)
}

func printOutcome(out swap.Outcome) {
	rec := out.Record
	if out.Failed() {
		fmt.Printf("Swap failed [%s]: %s\n", out.Kind, out.Message)
		if out.Err != nil {
			fmt.Printf("  cause: %v\n", out.Err)
		}
		return
	}

	fmt.Printf("Swap confirmed: %s %s -> %s %s\n", rec.InputAmount, rec.From, rec.OutputAmount, rec.To)
	fmt.Printf("  transaction: %s (simulated: %t)\n", rec.TransactionID, rec.IsSimulated)
	if rec.ExplorerURL != "" {
		fmt.Printf("  explorer:    %s\n", rec.ExplorerURL)
	}
	fmt.Printf("  network fee: %.8f SOL\n", rec.NetworkFee)
	if m := rec.Metrics; m != nil {
		fmt.Printf("  compression: %s -> %s, ratio %s, savings %s\n",
			m.OriginalSizeString(), m.CompressedSizeString(), m.RatioString(), m.SavingsString())
		fmt.Printf("  fees:        %s compressed, %s saved, gas reduction %s\n",
			m.CompressedFeeString(), m.FeeSavingsString(), m.GasReductionString())
	}
}

func printLedger(l *ledger.Ledger, filter string) error {
	pred, err := ledger.ParseFilter(filter)
	if err != nil {
		return err
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("Time", "Kind", "Pair", "In", "Out", "Path", "Status", "Fee")
	for _, rec := range l.Filter(pred) {
		path := "standard"
		if rec.IsCompressed {
			path = "compressed"
		}
		t.Row(
			rec.CreatedAt.Format("15:04:05"),
			string(rec.Kind),
			rec.From+"→"+rec.To,
			rec.InputAmount.String(),
			rec.OutputAmount.String(),
			path,
			string(rec.Status),
			fmt.Sprintf("%.8f", rec.NetworkFee),
		)
	}
	fmt.Println(t.Render())

	stats := l.Stats()
	fmt.Printf("%d operations, %d succeeded, %d failed, total gas reduction %.8f SOL, average savings %.2f%%\n",
		stats.Count, stats.Succeeded, stats.Failed, stats.TotalGasReduction, stats.AverageSavings)
	return nil
}
