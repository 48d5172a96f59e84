package notify

import (
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog/log"

	"github.com/web3guy0/kalshibot/internal/journal"
)

// ═══════════════════════════════════════════════════════════════════════════════
// TELEGRAM NOTIFIER - Alerts & control
// ═══════════════════════════════════════════════════════════════════════════════
//
//   🚨 circuit-breaker trip alerts
//   ✅ order-pair confirmations
//   📊 cycle summaries
//   🎛️ /status, /trades, /pause, /resume
//
// ═══════════════════════════════════════════════════════════════════════════════

// Stats is a snapshot of the bot for /status.
type Stats struct {
	TotalTrades   int64
	TotalProfit   float64 // dollars
	DailyPnLCents int64
	YesContracts  int64
	NoContracts   int64
	Paused        bool
}

// StatsProvider supplies the /status snapshot.
type StatsProvider interface {
	Stats() Stats
}

type Notifier struct {
	api     *tgbotapi.BotAPI
	chatID  int64
	stats   StatsProvider
	journal *journal.Journal
	stopCh  chan struct{}

	onPause  func()
	onResume func()
}

// New creates a Telegram notifier. Returns nil (a no-op notifier) when
// the token is empty.
func New(token string, chatID int64, stats StatsProvider, j *journal.Journal) (*Notifier, error) {
	if token == "" {
		log.Warn().Msg("TELEGRAM_BOT_TOKEN not set, notifications disabled")
		return nil, nil
	}

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram init: %w", err)
	}

	log.Info().Str("bot", api.Self.UserName).Msg("📱 Telegram notifier ready")
	return &Notifier{
		api:     api,
		chatID:  chatID,
		stats:   stats,
		journal: j,
		stopCh:  make(chan struct{}),
	}, nil
}

// SetControls wires the pause/resume callbacks.
func (n *Notifier) SetControls(onPause, onResume func()) {
	if n == nil {
		return
	}
	n.onPause = onPause
	n.onResume = onResume
}

// Start runs the command loop until Stop is called.
func (n *Notifier) Start() {
	if n == nil {
		return
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := n.api.GetUpdatesChan(u)

	for {
		select {
		case <-n.stopCh:
			return
		case update := <-updates:
			if update.Message == nil || update.Message.Chat.ID != n.chatID {
				continue
			}
			n.handleCommand(update.Message.Command())
		}
	}
}

// Stop terminates the command loop.
func (n *Notifier) Stop() {
	if n == nil {
		return
	}
	close(n.stopCh)
	n.api.StopReceivingUpdates()
}

func (n *Notifier) handleCommand(cmd string) {
	switch cmd {
	case "status":
		n.sendStatus()
	case "trades":
		n.sendTrades()
	case "pause":
		if n.onPause != nil {
			n.onPause()
			n.send("⏸️ Trading paused")
		}
	case "resume":
		if n.onResume != nil {
			n.onResume()
			n.send("▶️ Trading resumed")
		}
	case "help":
		n.send("Commands:\n/status - bot status\n/trades - recent order pairs\n/pause - stop placing orders\n/resume - resume trading")
	}
}

func (n *Notifier) sendStatus() {
	if n.stats == nil {
		return
	}
	s := n.stats.Stats()

	state := "🟢 running"
	if s.Paused {
		state = "⏸️ paused"
	}

	n.send(fmt.Sprintf(
		"📊 Status: %s\nTotal trades: %d\nTotal profit: $%.2f\nDaily P&L: $%.2f\nInventory: %d YES / %d NO",
		state, s.TotalTrades, s.TotalProfit, float64(s.DailyPnLCents)/100,
		s.YesContracts, s.NoContracts,
	))
}

func (n *Notifier) sendTrades() {
	pairs, err := n.journal.RecentPairs(10)
	if err != nil {
		n.send("Failed to load trades: " + err.Error())
		return
	}
	if len(pairs) == 0 {
		n.send("No trades recorded yet")
		return
	}

	var b strings.Builder
	b.WriteString("🧾 Recent order pairs:\n")
	for _, p := range pairs {
		fmt.Fprintf(&b, "%s %s %dx @ %d¢ → hedge @ %d¢, exp. $%.2f (%s)\n",
			p.MarketID, strings.ToUpper(p.Side), p.Contracts, p.BuyPrice, p.HedgePrice,
			float64(p.ExpectedProfitCents)/100, p.CreatedAt.Format(time.DateTime))
	}
	n.send(b.String())
}

// NotifyTrip reports a circuit-breaker rejection.
func (n *Notifier) NotifyTrip(marketID, reason string) {
	if n == nil {
		return
	}
	n.send(fmt.Sprintf("🚨 Trade blocked on %s: %s", marketID, reason))
}

// NotifyPair reports a committed order pair.
func (n *Notifier) NotifyPair(marketID, side string, contracts int, buyPrice, hedgePrice, expectedCents int64) {
	if n == nil {
		return
	}
	n.send(fmt.Sprintf("✅ %s: %d %s @ %d¢ / hedge @ %d¢, expected $%.2f",
		marketID, contracts, strings.ToUpper(side), buyPrice, hedgePrice, float64(expectedCents)/100))
}

// NotifyCycle reports a cycle summary.
func (n *Notifier) NotifyCycle(pairs int, expectedCents int64) {
	if n == nil || pairs == 0 {
		return
	}
	n.send(fmt.Sprintf("📊 Cycle complete: %d pairs placed, expected profit $%.2f",
		pairs, float64(expectedCents)/100))
}

func (n *Notifier) send(text string) {
	msg := tgbotapi.NewMessage(n.chatID, text)
	if _, err := n.api.Send(msg); err != nil {
		log.Error().Err(err).Msg("Telegram send failed")
	}
}
