package journal

import (
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ═══════════════════════════════════════════════════════════════════════════════
// JOURNAL - Trade persistence layer
// ═══════════════════════════════════════════════════════════════════════════════

type Journal struct {
	db      *gorm.DB
	enabled bool
}

// OrderPair records one committed primary+hedge pair.
type OrderPair struct {
	ID                  uint   `gorm:"primaryKey;autoIncrement"`
	MarketID            string `gorm:"index"`
	Side                string // primary side, "yes" or "no"
	BuyOrderID          string
	HedgeOrderID        string
	BuyPrice            int64 // cents
	HedgePrice          int64
	Contracts           int
	ExpectedProfitCents int64
	CreatedAt           time.Time
}

// CycleSummary records one trading cycle.
type CycleSummary struct {
	ID                  uint `gorm:"primaryKey;autoIncrement"`
	MarketsScanned      int
	PairsPlaced         int
	ExpectedProfitCents int64
	BalanceCents        int64
	CreatedAt           time.Time
}

// New opens (or creates) the sqlite journal. An empty path disables
// persistence; every method is then a no-op.
func New(path string) (*Journal, error) {
	if path == "" {
		log.Warn().Msg("JOURNAL_PATH not set, running without trade journal")
		return &Journal{enabled: false}, nil
	}

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&OrderPair{}, &CycleSummary{}); err != nil {
		return nil, err
	}

	log.Info().Str("path", path).Msg("💾 Trade journal opened")
	return &Journal{db: db, enabled: true}, nil
}

// RecordPair persists a committed order pair.
func (j *Journal) RecordPair(pair OrderPair) {
	if j == nil || !j.enabled {
		return
	}
	if err := j.db.Create(&pair).Error; err != nil {
		log.Error().Err(err).Msg("Journal: failed to record order pair")
	}
}

// RecordCycle persists a cycle summary.
func (j *Journal) RecordCycle(summary CycleSummary) {
	if j == nil || !j.enabled {
		return
	}
	if err := j.db.Create(&summary).Error; err != nil {
		log.Error().Err(err).Msg("Journal: failed to record cycle summary")
	}
}

// RecentPairs returns the newest n order pairs.
func (j *Journal) RecentPairs(n int) ([]OrderPair, error) {
	if j == nil || !j.enabled {
		return nil, nil
	}
	var pairs []OrderPair
	err := j.db.Order("created_at DESC").Limit(n).Find(&pairs).Error
	return pairs, err
}
