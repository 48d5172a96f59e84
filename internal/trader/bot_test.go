package trader

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/web3guy0/kalshibot/internal/kalshi"
	"github.com/web3guy0/kalshibot/internal/scanner"
	"github.com/web3guy0/kalshibot/internal/state"
)

// fakeVenue pairs the order-side fake with a scripted market listing so
// one object can back both the scanner and the coordinator.
type fakeVenue struct {
	fakeExchange
	markets []kalshi.Market
}

func (f *fakeVenue) GetMarkets(ctx context.Context, limit int, status string) ([]kalshi.Market, error) {
	return f.markets, nil
}

func (f *fakeVenue) GetMarket(ctx context.Context, id string) (kalshi.Market, error) {
	for _, m := range f.markets {
		if m.MarketID == id {
			return m, nil
		}
	}
	return kalshi.Market{}, errors.New("no such market")
}

type fakeCycleNotifier struct {
	pairs    int
	expected int64
	calls    int
}

func (f *fakeCycleNotifier) NotifyCycle(pairs int, expectedCents int64) {
	f.pairs = pairs
	f.expected = expectedCents
	f.calls++
}

func testBot(t *testing.T, venue *fakeVenue, perCycle int) (*Bot, string) {
	t.Helper()

	coord, breaker, inventory := testCoordinator(&venue.fakeExchange)
	sc := scanner.New(venue, 1000, 100, 10)
	statePath := filepath.Join(t.TempDir(), "bot_state.json")

	bot := NewBot(&venue.fakeExchange, sc, coord, breaker, inventory, nil, nil, BotOptions{
		MarketsPerCycle: perCycle,
		StatePath:       statePath,
	})
	return bot, statePath
}

func TestRunOnceCommitsAndPersists(t *testing.T) {
	m := testMarket()
	m.Volume = 5000
	venue := &fakeVenue{
		fakeExchange: fakeExchange{
			balance: kalshi.Balance{Cash: 50000},
			confirms: []kalshi.OrderConfirmation{
				{OrderID: "buy-1"},
				{OrderID: "hedge-1"},
			},
		},
		markets: []kalshi.Market{m},
	}
	bot, statePath := testBot(t, venue, 5)

	notifier := &fakeCycleNotifier{}
	bot.SetNotifier(notifier)

	if err := bot.RunOnce(context.Background()); err != nil {
		t.Fatal(err)
	}

	if len(venue.placed) != 2 {
		t.Fatalf("placed %d orders, want a full pair", len(venue.placed))
	}

	st := state.Load(statePath)
	if st.TotalTrades != 1 {
		t.Errorf("persisted TotalTrades = %d, want 1", st.TotalTrades)
	}
	if st.TotalProfit != 0.10 {
		t.Errorf("persisted TotalProfit = %v, want 0.10", st.TotalProfit)
	}
	if st.LastCheck == nil {
		t.Error("LastCheck must be stamped after a cycle")
	}

	if notifier.calls != 1 || notifier.pairs != 1 || notifier.expected != 10 {
		t.Errorf("cycle notification = %+v", notifier)
	}
}

func TestRunOncePausedPlacesNothing(t *testing.T) {
	venue := &fakeVenue{
		fakeExchange: fakeExchange{balance: kalshi.Balance{Cash: 50000}},
		markets:      []kalshi.Market{testMarket()},
	}
	bot, _ := testBot(t, venue, 5)

	bot.Pause()
	if err := bot.RunOnce(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(venue.placed) != 0 {
		t.Error("paused bot must not place orders")
	}

	bot.Resume()
	if bot.Stats().Paused {
		t.Error("Resume must clear the paused flag")
	}
}

func TestRunOnceBalanceErrorPropagates(t *testing.T) {
	venue := &fakeVenue{
		fakeExchange: fakeExchange{balanceErr: errors.New("exchange down")},
	}
	bot, _ := testBot(t, venue, 5)

	if err := bot.RunOnce(context.Background()); err == nil {
		t.Fatal("balance failure must surface so the loop can back off")
	}
}

func TestRunOnceHonorsMarketsPerCycle(t *testing.T) {
	m1 := testMarket()
	m1.MarketID = "M1"
	m1.Volume = 9000
	m2 := testMarket()
	m2.MarketID = "M2"
	m2.Volume = 8000
	m3 := testMarket()
	m3.MarketID = "M3"
	m3.Volume = 7000

	venue := &fakeVenue{
		fakeExchange: fakeExchange{
			balance: kalshi.Balance{Cash: 50000},
			confirms: []kalshi.OrderConfirmation{
				{OrderID: "b1"}, {OrderID: "h1"},
				{OrderID: "b2"}, {OrderID: "h2"},
			},
		},
		markets: []kalshi.Market{m1, m2, m3},
	}
	bot, _ := testBot(t, venue, 2)

	if err := bot.RunOnce(context.Background()); err != nil {
		t.Fatal(err)
	}

	seen := map[string]bool{}
	for _, o := range venue.placed {
		seen[o.MarketID] = true
	}
	if seen["M3"] {
		t.Error("third market must not be traded with a two-market cycle cap")
	}
	if !seen["M1"] || !seen["M2"] {
		t.Errorf("top two markets should both be traded, placed on %v", seen)
	}
}

func TestRunOnceOneMarketFailureContinues(t *testing.T) {
	m1 := testMarket()
	m1.MarketID = "M1"
	m1.Volume = 9000
	m2 := testMarket()
	m2.MarketID = "M2"
	m2.Volume = 8000

	venue := &fakeVenue{
		fakeExchange: fakeExchange{
			balance:   kalshi.Balance{Cash: 50000},
			placeErrs: []error{errors.New("rejected"), nil, nil},
			confirms: []kalshi.OrderConfirmation{
				{}, {OrderID: "b2"}, {OrderID: "h2"},
			},
		},
		markets: []kalshi.Market{m1, m2},
	}
	bot, _ := testBot(t, venue, 5)

	if err := bot.RunOnce(context.Background()); err != nil {
		t.Fatalf("one market's failure must not abort the cycle: %v", err)
	}

	var m2Orders int
	for _, o := range venue.placed {
		if o.MarketID == "M2" {
			m2Orders++
		}
	}
	if m2Orders != 2 {
		t.Errorf("second market got %d orders, want a full pair", m2Orders)
	}
}
