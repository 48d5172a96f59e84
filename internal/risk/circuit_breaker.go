package risk

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// ═══════════════════════════════════════════════════════════════════════════════
// CIRCUIT BREAKER - Stateful risk gate
// ═══════════════════════════════════════════════════════════════════════════════
//
// Re-evaluated for every candidate trade, in order:
//   1. daily P&L and order-rate window reset at local-date rollover
//   2. peak balance updated (monotonic within a day)
//   3. daily loss limit
//   4. peak-to-trough drawdown
//   5. per-position value cap
//   6. orders-per-minute rate limit
//
// The first failing check short-circuits the rest. On acceptance the
// caller records the order and, once known, the P&L separately.
//
// ═══════════════════════════════════════════════════════════════════════════════

type BreakerLimits struct {
	DailyLossLimitCents   int64
	MaxDrawdownPct        decimal.Decimal
	MaxPositionValueCents int64
	OrdersPerMinute       int
}

type CircuitBreaker struct {
	mu sync.Mutex

	limits BreakerLimits

	startBalance  int64
	peakBalance   int64
	dailyPnL      int64
	orderTimes    []time.Time
	lastResetDate string

	now func() time.Time
}

func NewCircuitBreaker(limits BreakerLimits) *CircuitBreaker {
	cb := &CircuitBreaker{limits: limits, now: time.Now}
	cb.lastResetDate = cb.now().Format("2006-01-02")
	return cb
}

// SeedBalance records the starting balance once, before the first cycle.
func (cb *CircuitBreaker) SeedBalance(balanceCents int64) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	if cb.startBalance == 0 {
		cb.startBalance = balanceCents
		cb.peakBalance = balanceCents
	}
}

// Allow reports whether a trade of the given position value may proceed.
// The returned reason names the failed check when rejected.
func (cb *CircuitBreaker) Allow(balanceCents, positionValueCents int64) (bool, string) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.resetIfNewDay()

	if balanceCents > cb.peakBalance {
		cb.peakBalance = balanceCents
	}

	if cb.dailyPnL < -cb.limits.DailyLossLimitCents {
		return false, fmt.Sprintf("daily loss limit exceeded: $%.2f", float64(-cb.dailyPnL)/100)
	}

	if cb.peakBalance > 0 {
		drawdown := decimal.NewFromInt(cb.peakBalance - balanceCents).
			Div(decimal.NewFromInt(cb.peakBalance))
		if drawdown.GreaterThan(cb.limits.MaxDrawdownPct) {
			pct, _ := drawdown.Mul(decimal.NewFromInt(100)).Float64()
			return false, fmt.Sprintf("max drawdown exceeded: %.1f%%", pct)
		}
	}

	if positionValueCents > cb.limits.MaxPositionValueCents {
		return false, fmt.Sprintf("position too large: $%.2f", float64(positionValueCents)/100)
	}

	recent := cb.recentOrders()
	if recent >= cb.limits.OrdersPerMinute {
		return false, fmt.Sprintf("rate limit: %d orders in last minute", recent)
	}

	return true, "OK"
}

// RecordOrder appends a timestamp to the rate-limit window.
func (cb *CircuitBreaker) RecordOrder() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.orderTimes = append(cb.orderTimes, cb.now())
}

// RecordPnL adds realized P&L, in cents, to the daily tally.
func (cb *CircuitBreaker) RecordPnL(pnlCents int64) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	cb.dailyPnL += pnlCents
	if cb.dailyPnL < -cb.limits.DailyLossLimitCents {
		log.Warn().
			Str("daily_pnl", fmt.Sprintf("$%.2f", float64(cb.dailyPnL)/100)).
			Msg("🚨 Daily loss limit breached, trading halted until next day")
	}
}

// DailyPnL returns the realized P&L, in cents, recorded today.
func (cb *CircuitBreaker) DailyPnL() int64 {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.dailyPnL
}

func (cb *CircuitBreaker) resetIfNewDay() {
	today := cb.now().Format("2006-01-02")
	if today == cb.lastResetDate {
		return
	}

	cb.dailyPnL = 0
	cb.orderTimes = nil
	cb.lastResetDate = today
	log.Info().Str("date", today).Msg("Circuit breaker daily counters reset")
}

func (cb *CircuitBreaker) recentOrders() int {
	cutoff := cb.now().Add(-time.Minute)
	n := 0
	for _, t := range cb.orderTimes {
		if t.After(cutoff) {
			n++
		}
	}
	return n
}
