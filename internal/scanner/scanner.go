package scanner

import (
	"context"
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/web3guy0/kalshibot/internal/kalshi"
)

// MarketSource is the slice of the exchange client the scanner needs.
type MarketSource interface {
	GetMarkets(ctx context.Context, limit int, status string) ([]kalshi.Market, error)
	GetMarket(ctx context.Context, marketID string) (kalshi.Market, error)
}

// Scanner finds liquid open markets worth quoting.
type Scanner struct {
	source    MarketSource
	minVolume int64
	scanLimit int
	topN      int
}

func New(source MarketSource, minVolume int64, scanLimit, topN int) *Scanner {
	return &Scanner{
		source:    source,
		minVolume: minVolume,
		scanLimit: scanLimit,
		topN:      topN,
	}
}

// Scan lists open markets, pulls per-market detail, filters by volume
// and returns the top markets ranked by volume descending. A single
// market failing its detail lookup is skipped, never fatal.
func (s *Scanner) Scan(ctx context.Context) ([]kalshi.Market, error) {
	log.Info().Msg("Scanning for liquid markets...")

	markets, err := s.source.GetMarkets(ctx, s.scanLimit, "open")
	if err != nil {
		return nil, err
	}

	liquid := make([]kalshi.Market, 0, len(markets))

	for _, m := range markets {
		if m.MarketID == "" {
			continue
		}

		detail, err := s.source.GetMarket(ctx, m.MarketID)
		if err != nil {
			log.Debug().Err(err).Str("market", m.MarketID).Msg("Detail lookup failed, skipping")
			continue
		}

		if detail.Volume <= s.minVolume {
			continue
		}

		// The list entry carries id/title; quotes come from detail.
		detail.MarketID = m.MarketID
		if detail.Title == "" {
			detail.Title = m.Title
		}
		liquid = append(liquid, detail)
	}

	sort.Slice(liquid, func(i, j int) bool {
		return liquid[i].Volume > liquid[j].Volume
	})

	if len(liquid) > s.topN {
		liquid = liquid[:s.topN]
	}

	log.Info().Int("count", len(liquid)).Msg("Liquid markets found")
	return liquid, nil
}
