package scanner

import (
	"context"
	"errors"
	"testing"

	"github.com/web3guy0/kalshibot/internal/kalshi"
)

type fakeSource struct {
	listing    []kalshi.Market
	listErr    error
	details    map[string]kalshi.Market
	detailErrs map[string]error
}

func (f *fakeSource) GetMarkets(ctx context.Context, limit int, status string) ([]kalshi.Market, error) {
	return f.listing, f.listErr
}

func (f *fakeSource) GetMarket(ctx context.Context, id string) (kalshi.Market, error) {
	if err, ok := f.detailErrs[id]; ok {
		return kalshi.Market{}, err
	}
	return f.details[id], nil
}

func TestScanFiltersAndRanks(t *testing.T) {
	src := &fakeSource{
		listing: []kalshi.Market{
			{MarketID: "LOW", Title: "low volume"},
			{MarketID: "MID", Title: "mid volume"},
			{MarketID: "HIGH", Title: "high volume"},
		},
		details: map[string]kalshi.Market{
			"LOW":  {Volume: 500},  // under threshold
			"MID":  {Volume: 2000, YesBid: 40, YesAsk: 45},
			"HIGH": {Volume: 9000, YesBid: 30, YesAsk: 36},
		},
	}

	s := New(src, 1000, 100, 10)
	got, err := s.Scan(context.Background())
	if err != nil {
		t.Fatal(err)
	}

	if len(got) != 2 {
		t.Fatalf("got %d markets, want 2", len(got))
	}
	if got[0].MarketID != "HIGH" || got[1].MarketID != "MID" {
		t.Errorf("order = %s,%s, want HIGH,MID (volume descending)", got[0].MarketID, got[1].MarketID)
	}
	if got[0].Title != "high volume" {
		t.Errorf("title from listing not carried over: %q", got[0].Title)
	}
}

func TestScanSkipsMissingIDAndFailedDetail(t *testing.T) {
	src := &fakeSource{
		listing: []kalshi.Market{
			{MarketID: ""}, // no id
			{MarketID: "BROKEN"},
			{MarketID: "OK"},
		},
		details: map[string]kalshi.Market{
			"OK": {Volume: 5000},
		},
		detailErrs: map[string]error{
			"BROKEN": errors.New("detail lookup failed"),
		},
	}

	s := New(src, 1000, 100, 10)
	got, err := s.Scan(context.Background())
	if err != nil {
		t.Fatalf("per-market failures must not abort the scan: %v", err)
	}
	if len(got) != 1 || got[0].MarketID != "OK" {
		t.Errorf("got %v, want just OK", got)
	}
}

func TestScanVolumeThresholdIsStrict(t *testing.T) {
	src := &fakeSource{
		listing: []kalshi.Market{{MarketID: "EDGE"}},
		details: map[string]kalshi.Market{"EDGE": {Volume: 1000}},
	}

	s := New(src, 1000, 100, 10)
	got, err := s.Scan(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Error("volume equal to the threshold must be filtered out")
	}
}

func TestScanReturnsTopN(t *testing.T) {
	src := &fakeSource{details: map[string]kalshi.Market{}}
	for i := 0; i < 15; i++ {
		id := string(rune('A' + i))
		src.listing = append(src.listing, kalshi.Market{MarketID: id})
		src.details[id] = kalshi.Market{Volume: int64(2000 + i*100)}
	}

	s := New(src, 1000, 100, 10)
	got, err := s.Scan(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 10 {
		t.Fatalf("got %d markets, want top 10", len(got))
	}
	for i := 1; i < len(got); i++ {
		if got[i].Volume > got[i-1].Volume {
			t.Fatal("results must be sorted by volume descending")
		}
	}
}

func TestScanPropagatesListError(t *testing.T) {
	src := &fakeSource{listErr: errors.New("exchange down")}

	s := New(src, 1000, 100, 10)
	if _, err := s.Scan(context.Background()); err == nil {
		t.Fatal("a failed market listing must propagate")
	}
}
