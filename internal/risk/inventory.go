package risk

import (
	"fmt"
	"sync"

	"github.com/shopspring/decimal"
)

// Inventory tracks net yes/no contract exposure and volume-weighted
// average entry prices. Counts only move on confirmed fills.
type Inventory struct {
	mu sync.Mutex

	maxExposureCents int64

	yesContracts int64
	noContracts  int64
	avgYesPrice  decimal.Decimal // cents
	avgNoPrice   decimal.Decimal
}

// Exposure is a point-in-time snapshot of the book.
type Exposure struct {
	YesContracts int64
	NoContracts  int64
	YesValue     decimal.Decimal // cents
	NoValue      decimal.Decimal
	NetExposure  decimal.Decimal // |yesValue - noValue|, cents
	ImbalancePct decimal.Decimal
}

func NewInventory(maxExposureCents int64) *Inventory {
	return &Inventory{
		maxExposureCents: maxExposureCents,
		avgYesPrice:      decimal.NewFromInt(50),
		avgNoPrice:       decimal.NewFromInt(50),
	}
}

// Exposure returns the current exposure snapshot.
func (inv *Inventory) Exposure() Exposure {
	inv.mu.Lock()
	defer inv.mu.Unlock()
	return inv.exposureLocked()
}

func (inv *Inventory) exposureLocked() Exposure {
	yesValue := decimal.NewFromInt(inv.yesContracts).Mul(inv.avgYesPrice)
	noValue := decimal.NewFromInt(inv.noContracts).Mul(inv.avgNoPrice)
	net := yesValue.Sub(noValue).Abs()

	total := yesValue.Add(noValue)
	imbalance := decimal.Zero
	if total.GreaterThan(decimal.Zero) {
		imbalance = net.Div(total)
	}

	return Exposure{
		YesContracts: inv.yesContracts,
		NoContracts:  inv.noContracts,
		YesValue:     yesValue,
		NoValue:      noValue,
		NetExposure:  net,
		ImbalancePct: imbalance,
	}
}

// CanAdd projects the post-trade exposure and rejects the candidate if
// |yesValue - noValue| would exceed the cap. A projection exactly at
// the cap is allowed.
func (inv *Inventory) CanAdd(side string, qty int64, priceCents int64) (bool, string) {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	var newYes, newNo decimal.Decimal
	if side == "yes" {
		newYes = decimal.NewFromInt(inv.yesContracts + qty).Mul(decimal.NewFromInt(priceCents))
		newNo = decimal.NewFromInt(inv.noContracts).Mul(inv.avgNoPrice)
	} else {
		newYes = decimal.NewFromInt(inv.yesContracts).Mul(inv.avgYesPrice)
		newNo = decimal.NewFromInt(inv.noContracts + qty).Mul(decimal.NewFromInt(priceCents))
	}

	projected := newYes.Sub(newNo).Abs()
	if projected.GreaterThan(decimal.NewFromInt(inv.maxExposureCents)) {
		value, _ := projected.Float64()
		return false, fmt.Sprintf("would exceed max exposure: $%.2f", value/100)
	}

	return true, "OK"
}

// Add records a confirmed fill and folds the price into that side's
// volume-weighted average.
func (inv *Inventory) Add(side string, qty int64, priceCents int64) {
	inv.mu.Lock()
	defer inv.mu.Unlock()

	price := decimal.NewFromInt(priceCents)

	if side == "yes" {
		totalCost := decimal.NewFromInt(inv.yesContracts).Mul(inv.avgYesPrice).
			Add(decimal.NewFromInt(qty).Mul(price))
		inv.yesContracts += qty
		inv.avgYesPrice = totalCost.Div(decimal.NewFromInt(inv.yesContracts))
	} else {
		totalCost := decimal.NewFromInt(inv.noContracts).Mul(inv.avgNoPrice).
			Add(decimal.NewFromInt(qty).Mul(price))
		inv.noContracts += qty
		inv.avgNoPrice = totalCost.Div(decimal.NewFromInt(inv.noContracts))
	}
}
