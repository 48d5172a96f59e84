package spread

import (
	"github.com/web3guy0/kalshibot/internal/kalshi"
)

// Opportunity is a fee-adjusted profitable spread on one side of a
// market. Recomputed every cycle, never persisted.
type Opportunity struct {
	Side      string // "yes" or "no"
	BuyPrice  int64  // cents
	SellPrice int64
	Spread    int64
	Fees      int64
	NetProfit int64
	ProfitPct float64
}

// Evaluator computes spread opportunities after fees.
type Evaluator struct {
	FeePerContract int64 // cents per side
	MinProfitCents int64
}

// MinViableSpread is the smallest gross spread worth quoting: both
// fee legs plus the minimum acceptable profit.
func (e Evaluator) MinViableSpread() int64 {
	return 2*e.FeePerContract + e.MinProfitCents
}

// Evaluate returns the first profitable side, yes before no. The sides
// are not compared against each other: the yes side wins whenever both
// clear the threshold.
func (e Evaluator) Evaluate(m kalshi.Market) (Opportunity, bool) {
	minSpread := e.MinViableSpread()

	if opp, ok := e.side("yes", m.YesBid, m.YesAsk, minSpread); ok {
		return opp, true
	}
	if opp, ok := e.side("no", m.NoBid, m.NoAsk, minSpread); ok {
		return opp, true
	}
	return Opportunity{}, false
}

func (e Evaluator) side(name string, bid, ask, minSpread int64) (Opportunity, bool) {
	// An absent quote decodes as 0 and disqualifies the side.
	if bid == 0 || ask == 0 {
		return Opportunity{}, false
	}

	spread := ask - bid
	if spread < minSpread {
		return Opportunity{}, false
	}

	fees := 2 * e.FeePerContract
	net := spread - fees

	pct := 0.0
	if bid > 0 {
		pct = float64(net) / float64(bid) * 100
	}

	return Opportunity{
		Side:      name,
		BuyPrice:  bid,
		SellPrice: ask,
		Spread:    spread,
		Fees:      fees,
		NetProfit: net,
		ProfitPct: pct,
	}, true
}
