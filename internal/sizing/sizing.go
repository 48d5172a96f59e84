package sizing

import (
	"github.com/shopspring/decimal"

	"github.com/web3guy0/kalshibot/internal/spread"
)

// ═══════════════════════════════════════════════════════════════════════════════
// POSITION SIZING
// ═══════════════════════════════════════════════════════════════════════════════
//
// Two strategies, selected by configuration:
//   - capped half-Kelly: f* = (bp - q) / b, halved, capped at 5%
//   - fixed-percent: balance * riskPct / 50¢ assumed contract price
//
// The win probability fed to Kelly is the fixed heuristic
// 0.5 + edge/2, not a fitted estimate.
//
// ═══════════════════════════════════════════════════════════════════════════════

var (
	half                = decimal.NewFromFloat(0.5)
	kellyCap            = decimal.NewFromFloat(0.05)
	centsPerAvgContract = decimal.NewFromInt(50)
)

type Sizer struct {
	UseKelly bool
	RiskPct  decimal.Decimal // fixed-percent strategy only

	MinContracts int
	MaxContracts int
}

// Contracts converts an opportunity and balance into a contract count,
// always clamped to [MinContracts, MaxContracts].
func (s Sizer) Contracts(balanceCents int64, opp spread.Opportunity) int {
	if s.UseKelly {
		return s.clamp(s.kelly(balanceCents, opp))
	}
	return s.clamp(s.fixedPct(balanceCents))
}

// kelly sizes via the half-Kelly rule. Max loss per contract is the
// buy price; the payoff is the net spread profit.
func (s Sizer) kelly(balanceCents int64, opp spread.Opportunity) int {
	if opp.BuyPrice <= 0 || opp.NetProfit <= 0 {
		return s.MinContracts
	}

	avgWin := decimal.NewFromInt(opp.NetProfit)
	avgLoss := decimal.NewFromInt(opp.BuyPrice)

	edge := avgWin.Div(avgLoss)
	winProb := half.Add(edge.Div(decimal.NewFromInt(2)))
	loseProb := decimal.NewFromInt(1).Sub(winProb)

	odds := avgWin.Div(avgLoss)
	kellyFrac := odds.Mul(winProb).Sub(loseProb).Div(odds)

	// Half-Kelly, floored at zero, capped at 5% per trade.
	kellyFrac = kellyFrac.Mul(half)
	if kellyFrac.IsNegative() {
		kellyFrac = decimal.Zero
	}
	if kellyFrac.GreaterThan(kellyCap) {
		kellyFrac = kellyCap
	}

	avgPrice := avgWin.Add(avgLoss).Div(decimal.NewFromInt(2))
	if avgPrice.IsZero() {
		return s.MinContracts
	}

	riskAmount := decimal.NewFromInt(balanceCents).Mul(kellyFrac)
	return int(riskAmount.Div(avgPrice).IntPart())
}

// fixedPct sizes as a fixed fraction of balance over a 50¢ assumed
// average contract price.
func (s Sizer) fixedPct(balanceCents int64) int {
	riskAmount := decimal.NewFromInt(balanceCents).Mul(s.RiskPct)
	return int(riskAmount.Div(centsPerAvgContract).IntPart())
}

func (s Sizer) clamp(n int) int {
	if n < s.MinContracts {
		return s.MinContracts
	}
	if n > s.MaxContracts {
		return s.MaxContracts
	}
	return n
}
