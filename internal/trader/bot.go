package trader

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/web3guy0/kalshibot/internal/journal"
	"github.com/web3guy0/kalshibot/internal/notify"
	"github.com/web3guy0/kalshibot/internal/risk"
	"github.com/web3guy0/kalshibot/internal/scanner"
	"github.com/web3guy0/kalshibot/internal/state"
)

// CycleNotifier receives end-of-cycle summaries.
type CycleNotifier interface {
	NotifyCycle(pairs int, expectedCents int64)
}

// Bot drives the trading loop: one logical thread of control, markets
// processed one at a time with a pacing delay between order attempts.
// Cancellation is only honored between cycles; an in-flight order
// sequence always runs to completion.
type Bot struct {
	exchange  Exchange
	scanner   *scanner.Scanner
	coord     *Coordinator
	breaker   *risk.CircuitBreaker
	inventory *risk.Inventory
	journal   *journal.Journal
	notifier  CycleNotifier

	marketsPerCycle int
	orderPacing     time.Duration
	cycleInterval   time.Duration
	errorBackoff    time.Duration

	statePath string

	mu     sync.Mutex
	state  state.State
	paused bool
}

type BotOptions struct {
	MarketsPerCycle int
	OrderPacing     time.Duration
	CycleInterval   time.Duration
	ErrorBackoff    time.Duration
	StatePath       string
}

func NewBot(
	exchange Exchange,
	sc *scanner.Scanner,
	coord *Coordinator,
	breaker *risk.CircuitBreaker,
	inventory *risk.Inventory,
	j *journal.Journal,
	notifier CycleNotifier,
	opts BotOptions,
) *Bot {
	return &Bot{
		exchange:        exchange,
		scanner:         sc,
		coord:           coord,
		breaker:         breaker,
		inventory:       inventory,
		journal:         j,
		notifier:        notifier,
		marketsPerCycle: opts.MarketsPerCycle,
		orderPacing:     opts.OrderPacing,
		cycleInterval:   opts.CycleInterval,
		errorBackoff:    opts.ErrorBackoff,
		statePath:       opts.StatePath,
		state:           state.Load(opts.StatePath),
	}
}

// SetNotifier wires the cycle notifier after construction.
func (b *Bot) SetNotifier(n CycleNotifier) {
	b.notifier = n
}

// Pause stops new order placement; the loop keeps running.
func (b *Bot) Pause() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.paused = true
}

// Resume re-enables order placement.
func (b *Bot) Resume() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.paused = false
}

// Stats returns a snapshot for the /status command.
func (b *Bot) Stats() notify.Stats {
	b.mu.Lock()
	trades := b.state.TotalTrades
	profit := b.state.TotalProfit
	paused := b.paused
	b.mu.Unlock()

	exp := b.inventory.Exposure()
	return notify.Stats{
		TotalTrades:   trades,
		TotalProfit:   profit,
		DailyPnLCents: b.breaker.DailyPnL(),
		YesContracts:  exp.YesContracts,
		NoContracts:   exp.NoContracts,
		Paused:        paused,
	}
}

// RunOnce executes a single trading cycle.
func (b *Bot) RunOnce(ctx context.Context) error {
	log.Info().Msg("════════════════════════════════════════════════════════════")
	log.Info().Msg("Starting trading cycle...")

	b.mu.Lock()
	paused := b.paused
	b.mu.Unlock()
	if paused {
		log.Info().Msg("Trading paused, skipping cycle")
		return nil
	}

	balance, err := b.exchange.GetBalance(ctx)
	if err != nil {
		return fmt.Errorf("get balance: %w", err)
	}
	b.breaker.SeedBalance(balance.Cash)
	log.Info().Str("balance", fmt.Sprintf("$%.2f", float64(balance.Cash)/100)).Msg("Account balance")

	exp := b.inventory.Exposure()
	net, _ := exp.NetExposure.Float64()
	log.Info().
		Int64("yes", exp.YesContracts).
		Int64("no", exp.NoContracts).
		Str("net_exposure", fmt.Sprintf("$%.2f", net/100)).
		Msg("Inventory")

	markets, err := b.scanner.Scan(ctx)
	if err != nil {
		return fmt.Errorf("scan markets: %w", err)
	}
	if len(markets) == 0 {
		log.Info().Msg("No liquid markets found")
		return nil
	}

	limit := b.marketsPerCycle
	if limit > len(markets) {
		limit = len(markets)
	}

	var pairs int
	var totalExpected int64

	for _, m := range markets[:limit] {
		result, err := b.coord.Execute(ctx, m)
		if err != nil {
			// One market's failure never aborts the cycle.
			log.Error().Err(err).Str("market", m.MarketID).Msg("✗ Order sequence failed")
		} else if result != nil {
			pairs++
			totalExpected += result.ExpectedProfitCents
		}

		// Pacing delay between order attempts, per exchange rate limits.
		time.Sleep(b.orderPacing)
	}

	if pairs > 0 {
		log.Info().
			Int("pairs", pairs).
			Str("expected_profit", fmt.Sprintf("$%.2f", float64(totalExpected)/100)).
			Msg("✓ Cycle placed orders")

		b.mu.Lock()
		b.state.TotalTrades += int64(pairs)
		b.state.TotalProfit += float64(totalExpected) / 100
		b.mu.Unlock()

		b.journal.RecordCycle(journal.CycleSummary{
			MarketsScanned:      len(markets),
			PairsPlaced:         pairs,
			ExpectedProfitCents: totalExpected,
			BalanceCents:        balance.Cash,
		})
		if b.notifier != nil {
			b.notifier.NotifyCycle(pairs, totalExpected)
		}
	} else {
		log.Info().Msg("No profitable opportunities found")
	}

	now := time.Now()
	b.mu.Lock()
	b.state.LastCheck = &now
	st := b.state
	b.mu.Unlock()

	if err := state.Save(b.statePath, st); err != nil {
		log.Error().Err(err).Msg("Failed to save state")
	}

	return nil
}

// Run loops RunOnce until ctx is cancelled. Errors back off for a
// minute instead of crashing the process.
func (b *Bot) Run(ctx context.Context) {
	log.Info().Msg("🦞 Kalshi trading bot starting...")

	for {
		wait := b.cycleInterval
		if err := b.RunOnce(ctx); err != nil {
			log.Error().Err(err).Msg("Trading cycle failed")
			wait = b.errorBackoff
		} else {
			log.Info().Dur("interval", wait).Msg("Waiting for next cycle...")
		}

		select {
		case <-ctx.Done():
			log.Info().Msg("Bot stopped")
			return
		case <-time.After(wait):
		}
	}
}
