package trader

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"

	"github.com/web3guy0/kalshibot/internal/journal"
	"github.com/web3guy0/kalshibot/internal/kalshi"
	"github.com/web3guy0/kalshibot/internal/risk"
	"github.com/web3guy0/kalshibot/internal/sizing"
	"github.com/web3guy0/kalshibot/internal/spread"
)

// ═══════════════════════════════════════════════════════════════════════════════
// ORDER COORDINATOR - Paired order placement
// ═══════════════════════════════════════════════════════════════════════════════
//
// Per-market state machine:
//
//   Evaluated → Gated → BuyPlaced → HedgePlaced → Committed
//        \         \          \
//      Rejected   Rejected   CancellingBuy → Aborted
//
// Invariant: either both orders exist or the primary is cancelled. A
// failed cancellation is reported, never silently ignored, and never
// masks the original hedge failure.
//
// ═══════════════════════════════════════════════════════════════════════════════

// Exchange is the slice of the exchange client the coordinator needs.
type Exchange interface {
	GetBalance(ctx context.Context) (kalshi.Balance, error)
	PlaceOrder(ctx context.Context, order kalshi.OrderRequest) (kalshi.OrderConfirmation, error)
	CancelOrder(ctx context.Context, orderID string) error
}

// PairNotifier receives trade and rejection events. Implementations
// must tolerate being a nil pointer.
type PairNotifier interface {
	NotifyTrip(marketID, reason string)
	NotifyPair(marketID, side string, contracts int, buyPrice, hedgePrice, expectedCents int64)
}

// Result is a committed order pair.
type Result struct {
	MarketID            string
	Side                string
	Contracts           int
	BuyOrderID          string
	HedgeOrderID        string
	BuyPrice            int64
	HedgePrice          int64
	ExpectedProfitCents int64
}

type Coordinator struct {
	exchange  Exchange
	evaluator spread.Evaluator
	sizer     sizing.Sizer
	breaker   *risk.CircuitBreaker
	inventory *risk.Inventory
	journal   *journal.Journal
	notifier  PairNotifier
}

func NewCoordinator(
	exchange Exchange,
	evaluator spread.Evaluator,
	sizer sizing.Sizer,
	breaker *risk.CircuitBreaker,
	inventory *risk.Inventory,
	j *journal.Journal,
	notifier PairNotifier,
) *Coordinator {
	return &Coordinator{
		exchange:  exchange,
		evaluator: evaluator,
		sizer:     sizer,
		breaker:   breaker,
		inventory: inventory,
		journal:   j,
		notifier:  notifier,
	}
}

// SetNotifier wires the pair notifier after construction.
func (c *Coordinator) SetNotifier(n PairNotifier) {
	c.notifier = n
}

// Execute evaluates one market and, if everything passes, places the
// primary and hedge orders. Returns (nil, nil) when there is no
// opportunity or a risk gate rejected the trade.
func (c *Coordinator) Execute(ctx context.Context, m kalshi.Market) (*Result, error) {
	title := m.Title
	if len(title) > 50 {
		title = title[:50]
	}
	log.Info().Str("market", m.MarketID).Str("title", title).Msg("Analyzing market")

	// Evaluated
	opp, ok := c.evaluator.Evaluate(m)
	if !ok {
		return nil, nil
	}

	log.Info().
		Str("market", m.MarketID).
		Str("side", opp.Side).
		Int64("spread", opp.Spread).
		Int64("net_profit", opp.NetProfit).
		Float64("profit_pct", opp.ProfitPct).
		Msg("💡 Opportunity found")

	balance, err := c.exchange.GetBalance(ctx)
	if err != nil {
		return nil, fmt.Errorf("get balance: %w", err)
	}

	size := c.sizer.Contracts(balance.Cash, opp)
	positionValue := opp.BuyPrice * int64(size)

	log.Info().
		Int("contracts", size).
		Str("value", fmt.Sprintf("$%.2f", float64(positionValue)/100)).
		Msg("Position sized")

	// Gated: circuit breaker first, then inventory. Both must pass.
	if allowed, reason := c.breaker.Allow(balance.Cash, positionValue); !allowed {
		log.Warn().Str("market", m.MarketID).Str("reason", reason).Msg("⛔ Blocked by circuit breaker")
		if c.notifier != nil {
			c.notifier.NotifyTrip(m.MarketID, reason)
		}
		return nil, nil
	}

	if allowed, reason := c.inventory.CanAdd(opp.Side, int64(size), opp.BuyPrice); !allowed {
		log.Warn().Str("market", m.MarketID).Str("reason", reason).Msg("🚫 Blocked by inventory manager")
		return nil, nil
	}

	// BuyPlaced: bid + 1 improves fill probability.
	buyPrice := opp.BuyPrice + 1
	buy, err := c.exchange.PlaceOrder(ctx, kalshi.OrderRequest{
		MarketID: m.MarketID,
		Side:     opp.Side,
		Price:    buyPrice,
		Count:    size,
		Type:     "limit",
	})
	if err != nil {
		return nil, fmt.Errorf("primary order: %w", err)
	}
	if buy.OrderID == "" {
		// Nothing confirmed on the book, so nothing to unwind.
		return nil, fmt.Errorf("primary order response missing order_id")
	}

	log.Info().
		Str("order_id", buy.OrderID).
		Str("side", opp.Side).
		Int64("price", buyPrice).
		Int("count", size).
		Msg("✓ Primary order placed")

	// HedgePlaced: opposite side at the binary complement of the sell
	// price (yes + no quotes sum to 100).
	hedgeSide := "no"
	if opp.Side == "no" {
		hedgeSide = "yes"
	}
	hedgePrice := 100 - opp.SellPrice

	hedge, err := c.exchange.PlaceOrder(ctx, kalshi.OrderRequest{
		MarketID: m.MarketID,
		Side:     hedgeSide,
		Price:    hedgePrice,
		Count:    size,
		Type:     "limit",
	})
	if err != nil {
		c.cancelPrimary(ctx, buy.OrderID)
		return nil, fmt.Errorf("hedge order: %w", err)
	}
	if hedge.OrderID == "" {
		c.cancelPrimary(ctx, buy.OrderID)
		return nil, fmt.Errorf("hedge order response missing order_id")
	}

	log.Info().
		Str("order_id", hedge.OrderID).
		Str("side", hedgeSide).
		Int64("price", hedgePrice).
		Int("count", size).
		Msg("✓ Hedge order placed")

	// Committed
	c.inventory.Add(opp.Side, int64(size), buyPrice)
	c.breaker.RecordOrder()

	expected := opp.NetProfit * int64(size)
	c.journal.RecordPair(journal.OrderPair{
		MarketID:            m.MarketID,
		Side:                opp.Side,
		BuyOrderID:          buy.OrderID,
		HedgeOrderID:        hedge.OrderID,
		BuyPrice:            buyPrice,
		HedgePrice:          hedgePrice,
		Contracts:           size,
		ExpectedProfitCents: expected,
	})
	if c.notifier != nil {
		c.notifier.NotifyPair(m.MarketID, opp.Side, size, buyPrice, hedgePrice, expected)
	}

	log.Info().
		Str("expected_profit", fmt.Sprintf("$%.2f", float64(expected)/100)).
		Msg("✓ Pair committed")

	return &Result{
		MarketID:            m.MarketID,
		Side:                opp.Side,
		Contracts:           size,
		BuyOrderID:          buy.OrderID,
		HedgeOrderID:        hedge.OrderID,
		BuyPrice:            buyPrice,
		HedgePrice:          hedgePrice,
		ExpectedProfitCents: expected,
	}, nil
}

// cancelPrimary unwinds the primary leg after a hedge failure. The
// cancel error is surfaced in the log but never masks the hedge error.
func (c *Coordinator) cancelPrimary(ctx context.Context, orderID string) {
	if err := c.exchange.CancelOrder(ctx, orderID); err != nil {
		log.Error().
			Err(err).
			Str("order_id", orderID).
			Msg("🚨 Rollback cancel FAILED, primary order may still be resting")
		return
	}
	log.Info().Str("order_id", orderID).Msg("Primary order cancelled after hedge failure")
}
