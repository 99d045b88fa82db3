package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/lumenwallet/lumen/internal/config"
	"github.com/lumenwallet/lumen/internal/horizon"
	"github.com/lumenwallet/lumen/internal/secrets"
	"github.com/lumenwallet/lumen/internal/service"
	"github.com/lumenwallet/lumen/internal/tui"
	"github.com/lumenwallet/lumen/internal/walletkit"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger, err := newLogger(cfg)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	kit, err := buildKit(cfg)
	if err != nil {
		log.Fatalf("wallet kit: %v", err)
	}

	session := walletkit.NewSession(kit, logger)
	ledger := horizon.NewClient(cfg.Network.ResolvedHorizonURL())
	passphrase := cfg.Network.Passphrase()

	dashboard := &service.DashboardService{Ledger: ledger, Log: logger}
	payments := &service.PaymentService{Ledger: ledger, Signer: session, Passphrase: passphrase}
	history := &service.HistoryService{Ledger: ledger}

	logger.Infow("starting", "network", cfg.Network.Name, "horizon", cfg.Network.ResolvedHorizonURL(), "kit", kit.Name())

	p := tea.NewProgram(tui.New(ctx, cfg, session,
		tui.Deps{Dashboard: dashboard, Payments: payments, History: history},
		logger,
	), tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Printf("error: %v\n", err)
	}
}

// newLogger writes to a file; the terminal belongs to the TUI.
func newLogger(cfg config.Config) (*zap.SugaredLogger, error) {
	if dir := filepath.Dir(cfg.Log.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}
	zc := zap.NewProductionConfig()
	zc.OutputPaths = []string{cfg.Log.Path}
	zc.ErrorOutputPaths = []string{cfg.Log.Path}
	if lvl, err := zapcore.ParseLevel(cfg.Log.Level); err == nil {
		zc.Level = zap.NewAtomicLevelAt(lvl)
	}
	logger, err := zc.Build()
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}

func buildKit(cfg config.Config) (walletkit.Kit, error) {
	switch cfg.Wallet.Kit {
	case config.KitBridge:
		return walletkit.NewBridgeKit(cfg.Wallet.BridgeURL), nil
	default:
		return walletkit.NewLocalKit(resolveSeed(cfg))
	}
}

// resolveSeed checks the configured env var first, then the encrypted local
// store. A missing seed fails at kit construction with a parse error.
func resolveSeed(cfg config.Config) string {
	env := strings.TrimSpace(cfg.Wallet.SeedEnv)
	if env == "" {
		env = "LUMEN_SEED"
	}
	if v := os.Getenv(env); v != "" {
		return v
	}
	if s, err := secrets.FetchSeed("local"); err == nil {
		return s
	}
	return ""
}
