package trader

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/web3guy0/kalshibot/internal/kalshi"
	"github.com/web3guy0/kalshibot/internal/risk"
	"github.com/web3guy0/kalshibot/internal/sizing"
	"github.com/web3guy0/kalshibot/internal/spread"
)

// fakeExchange scripts PlaceOrder responses in call order and records
// every request so tests can assert the exact sequence.
type fakeExchange struct {
	balance    kalshi.Balance
	balanceErr error

	placed    []kalshi.OrderRequest
	confirms  []kalshi.OrderConfirmation
	placeErrs []error
	cancelled []string
	cancelErr error
}

func (f *fakeExchange) GetBalance(ctx context.Context) (kalshi.Balance, error) {
	return f.balance, f.balanceErr
}

func (f *fakeExchange) PlaceOrder(ctx context.Context, order kalshi.OrderRequest) (kalshi.OrderConfirmation, error) {
	i := len(f.placed)
	f.placed = append(f.placed, order)
	var conf kalshi.OrderConfirmation
	var err error
	if i < len(f.confirms) {
		conf = f.confirms[i]
	}
	if i < len(f.placeErrs) {
		err = f.placeErrs[i]
	}
	return conf, err
}

func (f *fakeExchange) CancelOrder(ctx context.Context, orderID string) error {
	f.cancelled = append(f.cancelled, orderID)
	return f.cancelErr
}

// testMarket has a viable yes-side spread: 45 - 40 = 5, fees 4, net 1.
func testMarket() kalshi.Market {
	return kalshi.Market{
		MarketID: "INXD-26AUG29",
		Title:    "S&P 500 daily close",
		YesBid:   40,
		YesAsk:   45,
		NoBid:    54,
		NoAsk:    58,
	}
}

func testCoordinator(ex *fakeExchange) (*Coordinator, *risk.CircuitBreaker, *risk.Inventory) {
	breaker := risk.NewCircuitBreaker(risk.BreakerLimits{
		DailyLossLimitCents:   5000,
		MaxDrawdownPct:        decimal.NewFromFloat(0.10),
		MaxPositionValueCents: 10000,
		OrdersPerMinute:       10,
	})
	inventory := risk.NewInventory(5000)
	evaluator := spread.Evaluator{FeePerContract: 2, MinProfitCents: 1}
	// Fixed percent keeps sizing deterministic: 50000 * 0.01 / 50 = 10.
	sizer := sizing.Sizer{RiskPct: decimal.NewFromFloat(0.01), MinContracts: 1, MaxContracts: 100}

	return NewCoordinator(ex, evaluator, sizer, breaker, inventory, nil, nil), breaker, inventory
}

func TestExecuteCommitsPair(t *testing.T) {
	ex := &fakeExchange{
		balance: kalshi.Balance{Cash: 50000},
		confirms: []kalshi.OrderConfirmation{
			{OrderID: "buy-1"},
			{OrderID: "hedge-1"},
		},
	}
	coord, _, inventory := testCoordinator(ex)

	res, err := coord.Execute(context.Background(), testMarket())
	if err != nil {
		t.Fatal(err)
	}
	if res == nil {
		t.Fatal("viable market must produce a result")
	}

	if len(ex.placed) != 2 {
		t.Fatalf("placed %d orders, want 2", len(ex.placed))
	}
	buy, hedge := ex.placed[0], ex.placed[1]
	if buy.Side != "yes" || buy.Price != 41 || buy.Count != 10 || buy.Type != "limit" {
		t.Errorf("primary order = %+v, want yes @41 x10 limit", buy)
	}
	if hedge.Side != "no" || hedge.Price != 55 || hedge.Count != 10 {
		t.Errorf("hedge order = %+v, want no @55 x10", hedge)
	}
	if len(ex.cancelled) != 0 {
		t.Errorf("nothing should be cancelled on success, got %v", ex.cancelled)
	}

	if res.ExpectedProfitCents != 10 {
		t.Errorf("expected profit = %d, want net 1 x 10 contracts = 10", res.ExpectedProfitCents)
	}
	if res.BuyOrderID != "buy-1" || res.HedgeOrderID != "hedge-1" {
		t.Errorf("order ids = %s/%s", res.BuyOrderID, res.HedgeOrderID)
	}

	exp := inventory.Exposure()
	if exp.YesContracts != 10 {
		t.Errorf("inventory yes contracts = %d, want 10", exp.YesContracts)
	}
}

func TestExecuteHedgeFailureCancelsPrimary(t *testing.T) {
	ex := &fakeExchange{
		balance:   kalshi.Balance{Cash: 50000},
		confirms:  []kalshi.OrderConfirmation{{OrderID: "buy-1"}, {}},
		placeErrs: []error{nil, errors.New("insufficient funds")},
	}
	coord, _, inventory := testCoordinator(ex)

	res, err := coord.Execute(context.Background(), testMarket())
	if err == nil || !strings.Contains(err.Error(), "hedge order") {
		t.Fatalf("err = %v, want hedge order failure", err)
	}
	if res != nil {
		t.Errorf("failed pair must report no result, got %+v", res)
	}

	if len(ex.cancelled) != 1 || ex.cancelled[0] != "buy-1" {
		t.Fatalf("cancelled = %v, want exactly [buy-1]", ex.cancelled)
	}
	if inventory.Exposure().YesContracts != 0 {
		t.Error("aborted pair must not touch inventory")
	}
}

func TestExecuteHedgeMissingIDCancelsPrimary(t *testing.T) {
	ex := &fakeExchange{
		balance:  kalshi.Balance{Cash: 50000},
		confirms: []kalshi.OrderConfirmation{{OrderID: "buy-1"}, {Status: "resting"}},
	}
	coord, _, _ := testCoordinator(ex)

	_, err := coord.Execute(context.Background(), testMarket())
	if err == nil || !strings.Contains(err.Error(), "missing order_id") {
		t.Fatalf("err = %v, want missing order_id", err)
	}
	if len(ex.cancelled) != 1 || ex.cancelled[0] != "buy-1" {
		t.Fatalf("cancelled = %v, want exactly [buy-1]", ex.cancelled)
	}
}

func TestExecuteCancelFailureDoesNotMaskHedgeError(t *testing.T) {
	ex := &fakeExchange{
		balance:   kalshi.Balance{Cash: 50000},
		confirms:  []kalshi.OrderConfirmation{{OrderID: "buy-1"}, {}},
		placeErrs: []error{nil, errors.New("hedge rejected")},
		cancelErr: errors.New("cancel timed out"),
	}
	coord, _, _ := testCoordinator(ex)

	_, err := coord.Execute(context.Background(), testMarket())
	if err == nil || !strings.Contains(err.Error(), "hedge rejected") {
		t.Fatalf("err = %v, the hedge failure must survive a failed cancel", err)
	}
}

func TestExecutePrimaryFailurePlacesNothingElse(t *testing.T) {
	ex := &fakeExchange{
		balance:   kalshi.Balance{Cash: 50000},
		placeErrs: []error{errors.New("exchange closed")},
	}
	coord, _, _ := testCoordinator(ex)

	_, err := coord.Execute(context.Background(), testMarket())
	if err == nil || !strings.Contains(err.Error(), "primary order") {
		t.Fatalf("err = %v, want primary order failure", err)
	}
	if len(ex.placed) != 1 {
		t.Errorf("placed %d orders, want just the failed primary", len(ex.placed))
	}
	if len(ex.cancelled) != 0 {
		t.Error("an unconfirmed primary must not be cancelled")
	}
}

func TestExecuteNoOpportunityIsQuietSkip(t *testing.T) {
	ex := &fakeExchange{balance: kalshi.Balance{Cash: 50000}}
	coord, _, _ := testCoordinator(ex)

	m := testMarket()
	m.YesAsk = 42 // spread 2, below the 5c minimum

	res, err := coord.Execute(context.Background(), m)
	if err != nil || res != nil {
		t.Fatalf("got (%+v, %v), want quiet skip", res, err)
	}
	if len(ex.placed) != 0 {
		t.Error("no orders should reach the exchange without an opportunity")
	}
}

func TestExecuteBreakerRejectionPlacesNothing(t *testing.T) {
	ex := &fakeExchange{balance: kalshi.Balance{Cash: 50000}}
	coord, breaker, _ := testCoordinator(ex)

	breaker.SeedBalance(50000)
	breaker.RecordPnL(-6000) // past the daily loss limit

	res, err := coord.Execute(context.Background(), testMarket())
	if err != nil {
		t.Fatalf("a breaker rejection is a skip, not an error: %v", err)
	}
	if res != nil || len(ex.placed) != 0 {
		t.Error("tripped breaker must stop the pair before any order")
	}
}

func TestExecuteInventoryRejectionPlacesNothing(t *testing.T) {
	ex := &fakeExchange{balance: kalshi.Balance{Cash: 50000}}
	coord, _, inventory := testCoordinator(ex)

	// Saturate the yes book so the projection exceeds the cap.
	inventory.Add("yes", 120, 50)

	res, err := coord.Execute(context.Background(), testMarket())
	if err != nil {
		t.Fatalf("an inventory rejection is a skip, not an error: %v", err)
	}
	if res != nil || len(ex.placed) != 0 {
		t.Error("inventory cap must stop the pair before any order")
	}
}

func TestExecuteBalanceErrorPropagates(t *testing.T) {
	ex := &fakeExchange{balanceErr: errors.New("portfolio endpoint down")}
	coord, _, _ := testCoordinator(ex)

	if _, err := coord.Execute(context.Background(), testMarket()); err == nil {
		t.Fatal("balance failure must propagate")
	}
}
