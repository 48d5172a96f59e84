package state

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog/log"
)

// State is the bot's persisted counters. The bot only ever increments
// them; nothing here decreases a counter.
type State struct {
	LastCheck      *time.Time                 `json:"last_check"`
	TrackedMarkets map[string]json.RawMessage `json:"tracked_markets"`
	TotalTrades    int64                      `json:"total_trades"`
	TotalProfit    float64                    `json:"total_profit"` // dollars
}

// Default returns the zero-valued state used when no file exists.
func Default() State {
	return State{TrackedMarkets: map[string]json.RawMessage{}}
}

// Load reads the state file. A missing or malformed file falls back to
// the default state without failing startup.
func Load(path string) State {
	raw, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Warn().Err(err).Str("path", path).Msg("State file unreadable, using defaults")
		}
		return Default()
	}

	var st State
	if err := json.Unmarshal(raw, &st); err != nil {
		log.Warn().Err(err).Str("path", path).Msg("State file corrupt, using defaults")
		return Default()
	}

	if st.TrackedMarkets == nil {
		st.TrackedMarkets = map[string]json.RawMessage{}
	}
	return st
}

// Save writes the state atomically: temp file then rename.
func Save(path string, st State) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}

	raw, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return err
	}
	raw = append(raw, '\n')

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}
