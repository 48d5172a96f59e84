// Kalshibot - Liquidity Provision Bot for Kalshi
//
// Scans open binary markets for a fee-adjusted bid/ask spread, sizes a
// position, checks it against circuit-breaker and inventory limits, and
// places a paired buy+hedge order to capture the spread.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/web3guy0/kalshibot/internal/config"
	"github.com/web3guy0/kalshibot/internal/journal"
	"github.com/web3guy0/kalshibot/internal/kalshi"
	"github.com/web3guy0/kalshibot/internal/notify"
	"github.com/web3guy0/kalshibot/internal/risk"
	"github.com/web3guy0/kalshibot/internal/scanner"
	"github.com/web3guy0/kalshibot/internal/sizing"
	"github.com/web3guy0/kalshibot/internal/spread"
	"github.com/web3guy0/kalshibot/internal/trader"
)

const version = "1.0.0"

func main() {
	once := flag.Bool("once", false, "run a single trading cycle and exit")
	flag.Parse()

	// Setup logging
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	zerolog.SetGlobalLevel(zerolog.InfoLevel)

	// Load environment
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	if cfg.Debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	log.Info().
		Str("version", version).
		Bool("dry_run", cfg.DryRun).
		Bool("kelly_sizing", cfg.UseKellySizing).
		Msg("🦞 Kalshibot starting...")

	creds, err := kalshi.LoadCredentials(cfg.CredentialsPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load credentials")
	}

	client, err := kalshi.NewClient(cfg.KalshiAPIURL, creds, cfg.DryRun)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize Kalshi client")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	// Health probe before the first cycle; degraded is logged, not fatal.
	if status, err := client.GetExchangeStatus(ctx); err != nil {
		log.Warn().Err(err).Msg("⚠️ Exchange status check failed")
	} else {
		log.Info().Str("status", status.Status).Msg("Exchange reachable")
	}

	j, err := journal.New(cfg.JournalPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to open trade journal")
	}

	// ====== CORE COMPONENTS ======

	breaker := risk.NewCircuitBreaker(risk.BreakerLimits{
		DailyLossLimitCents:   cfg.DailyLossLimitCents,
		MaxDrawdownPct:        cfg.MaxDrawdownPct,
		MaxPositionValueCents: cfg.MaxPositionValueCents,
		OrdersPerMinute:       cfg.OrdersPerMinute,
	})
	inventory := risk.NewInventory(cfg.MaxExposureCents)

	evaluator := spread.Evaluator{
		FeePerContract: cfg.FeePerContractCents,
		MinProfitCents: cfg.MinProfitCents,
	}
	sizer := sizing.Sizer{
		UseKelly:     cfg.UseKellySizing,
		RiskPct:      cfg.RiskPerTradePct,
		MinContracts: cfg.MinPositionContracts,
		MaxContracts: cfg.MaxPositionContracts,
	}

	sc := scanner.New(client, cfg.MinVolumeThreshold, cfg.ScanLimit, cfg.TopMarkets)
	coord := trader.NewCoordinator(client, evaluator, sizer, breaker, inventory, j, nil)

	bot := trader.NewBot(client, sc, coord, breaker, inventory, j, nil, trader.BotOptions{
		MarketsPerCycle: cfg.MarketsPerCycle,
		OrderPacing:     cfg.OrderPacing,
		CycleInterval:   cfg.CycleInterval,
		ErrorBackoff:    cfg.ErrorBackoff,
		StatePath:       cfg.StatePath,
	})

	// ====== TELEGRAM (optional) ======

	notifier, err := notify.New(cfg.TelegramToken, cfg.TelegramChatID, bot, j)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize Telegram notifier")
	}
	if notifier != nil {
		notifier.SetControls(bot.Pause, bot.Resume)
		coord.SetNotifier(notifier)
		bot.SetNotifier(notifier)
		go notifier.Start()
		defer notifier.Stop()
	}

	// ====== RUN ======

	if *once {
		log.Info().Msg("Running single trading cycle...")
		if err := bot.RunOnce(ctx); err != nil {
			log.Error().Err(err).Msg("Trading cycle failed")
			os.Exit(1)
		}
		return
	}

	bot.Run(ctx)
	log.Info().Msg("👋 Goodbye!")
}
