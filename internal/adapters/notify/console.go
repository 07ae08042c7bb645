package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/alejandrodnm/intuibets/internal/domain"
	"github.com/alejandrodnm/intuibets/internal/ports"
	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"
)

// estimateMark marca montos calculados con un fee supuesto.
const estimateMark = "~"

// Console implementa ports.Reporter.
type Console struct {
	out   io.Writer
	table bool // false = resumen compacto de una línea
}

// NewConsole crea un reporter que escribe a stdout.
func NewConsole(table bool) *Console {
	return &Console{out: os.Stdout, table: table}
}

// NewConsoleWriter crea un reporter sobre cualquier writer (tests).
func NewConsoleWriter(w io.Writer, table bool) *Console {
	return &Console{out: w, table: table}
}

// ReportEvents imprime los eventos con sus pools y cuotas implícitas.
func (c *Console) ReportEvents(_ context.Context, events []domain.Event) error {
	if len(events) == 0 {
		fmt.Fprintln(c.out, "No events found")
		return nil
	}

	if !c.table {
		for _, e := range events {
			odds := domain.EventOdds(e)
			fmt.Fprintf(c.out, "[%s] %s %s YES %.1f%% (x%.2f) pool:%s\n",
				e.ID, e.Status, compactName(e.Question, 40), odds.YesPercent, odds.Yes, e.TotalPool.StringFixed(2))
		}
		return nil
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("ID", "Question", "Status", "Yes pool", "No pool", "Yes %", "Odds Y", "Odds N", "Result")
	for _, e := range events {
		odds := domain.EventOdds(e)
		result := "-"
		if e.Status == domain.StatusFinished {
			result = string(e.WinningOutcome)
		}
		table.Append(
			e.ID,
			compactName(e.Question, 40),
			string(e.Status),
			e.Outcomes.Yes.StringFixed(2),
			e.Outcomes.No.StringFixed(2),
			fmt.Sprintf("%.1f%%", odds.YesPercent),
			fmt.Sprintf("x%.2f", odds.Yes),
			fmt.Sprintf("x%.2f", odds.No),
			result,
		)
	}
	table.Render()
	return nil
}

// ReportPortfolio imprime el historial liquidado de un usuario y su resumen.
func (c *Console) ReportPortfolio(_ context.Context, user string, bets []domain.PnLBet, stats domain.PortfolioStats) error {
	info := domain.UserStatsFromPortfolio(user, stats)
	rank := domain.GetRank(info.TrustScore)

	if !c.table {
		fmt.Fprintf(c.out, "%s %s score:%d W:%d L:%d pend:%d pnl:%s vol:%s win:%.1f%% streak:%d\n",
			shortAddress(user), rank.Name, info.TrustScore,
			stats.Wins, stats.Losses, stats.Pending,
			signed(stats.NetPnL, anyEstimate(bets)), stats.TotalVolume.StringFixed(2),
			stats.WinRate, stats.LongestStreak)
		return nil
	}

	fmt.Fprintf(c.out, "\nPortfolio %s — %d bets\n", user, len(bets))
	if len(bets) == 0 {
		fmt.Fprintln(c.out, "No bets found")
	} else {
		c.printBets(bets)
	}
	c.printSummary(info, rank, stats, anyEstimate(bets))
	return nil
}

// ReportLeaderboard imprime el ranking de un run.
func (c *Console) ReportLeaderboard(_ context.Context, run ports.LeaderboardRun) error {
	header := fmt.Sprintf("Leaderboard %s — %d users, fee %d bps",
		run.ComputedAt.UTC().Format(time.DateTime), len(run.Entries), run.FeeBps)
	if run.Estimate {
		header += " (estimated)"
	}
	fmt.Fprintf(c.out, "\n%s\n", header)

	if len(run.Entries) == 0 {
		fmt.Fprintln(c.out, "No bettors found")
		return nil
	}

	if !c.table {
		for _, e := range run.Entries {
			fmt.Fprintf(c.out, "#%d %s %s %d\n", e.Position, shortAddress(e.Stats.Address), e.Rank.Name, e.Stats.TrustScore)
		}
		return nil
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Address", "Tier", "Score", "W/L", "Accuracy")
	for _, e := range run.Entries {
		table.Append(
			fmt.Sprintf("%d", e.Position),
			e.Stats.Address,
			e.Rank.Name,
			fmt.Sprintf("%d", e.Stats.TrustScore),
			fmt.Sprintf("%d/%d", e.Stats.Wins, e.Stats.Losses),
			fmt.Sprintf("%.1f%%", e.Stats.Accuracy),
		)
	}
	table.Render()
	return nil
}

// ReportHistory imprime la evolución de un usuario en los leaderboards guardados.
func (c *Console) ReportHistory(_ context.Context, user string, entries []domain.LeaderboardEntry) error {
	if len(entries) == 0 {
		fmt.Fprintf(c.out, "No stored leaderboards include %s\n", user)
		return nil
	}

	if !c.table {
		for _, e := range entries {
			fmt.Fprintf(c.out, "#%d %s %d\n", e.Position, e.Rank.Name, e.Stats.TrustScore)
		}
		return nil
	}

	fmt.Fprintf(c.out, "\nHistory %s — %d runs\n", user, len(entries))
	table := tablewriter.NewWriter(c.out)
	table.Header("Run", "#", "Tier", "Score", "W/L", "Accuracy")
	for i, e := range entries {
		table.Append(
			fmt.Sprintf("%d", i+1),
			fmt.Sprintf("%d", e.Position),
			e.Rank.Name,
			fmt.Sprintf("%d", e.Stats.TrustScore),
			fmt.Sprintf("%d/%d", e.Stats.Wins, e.Stats.Losses),
			fmt.Sprintf("%.1f%%", e.Stats.Accuracy),
		)
	}
	table.Render()
	return nil
}

func (c *Console) printBets(bets []domain.PnLBet) {
	table := tablewriter.NewWriter(c.out)
	table.Header("Event", "Question", "Side", "Outcome", "Stake", "Winnings", "PnL", "Date")
	for _, b := range bets {
		table.Append(
			b.EventID,
			compactName(b.EventQuestion, 40),
			string(b.UserBet),
			b.Outcome.String(),
			b.StakedAmount.StringFixed(2),
			amount(b.Winnings, b.Estimate),
			signed(b.PnL, b.Estimate),
			formatDate(b.Date),
		)
	}
	table.Render()
}

func (c *Console) printSummary(info domain.UserStats, rank domain.Rank, stats domain.PortfolioStats, estimate bool) {
	fmt.Fprintf(c.out, "  Tier:     %s (score %d)\n", rank.Name, info.TrustScore)
	if next, ok := rank.Next(); ok {
		fmt.Fprintf(c.out, "  Next:     %s in %d pts\n", next.Name, next.Score-info.TrustScore)
	}
	fmt.Fprintf(c.out, "  Record:   %dW / %dL  (%d pending, %d refunds)\n",
		stats.Wins, stats.Losses, stats.Pending, stats.Refunds)
	fmt.Fprintf(c.out, "  Win rate: %.1f%%  best streak %d\n", stats.WinRate, stats.LongestStreak)
	fmt.Fprintf(c.out, "  Volume:   %s\n", stats.TotalVolume.StringFixed(2))
	fmt.Fprintf(c.out, "  Net PnL:  %s\n", signed(stats.NetPnL, estimate))
	if estimate {
		fmt.Fprintf(c.out, "  %s platform fee unknown, payouts are estimates\n", estimateMark)
	}
}

// ── helpers ──

func anyEstimate(bets []domain.PnLBet) bool {
	for _, b := range bets {
		if b.Estimate {
			return true
		}
	}
	return false
}

func amount(d decimal.Decimal, estimate bool) string {
	s := d.StringFixed(2)
	if estimate {
		return estimateMark + s
	}
	return s
}

func signed(d decimal.Decimal, estimate bool) string {
	s := d.StringFixed(2)
	if d.IsPositive() {
		s = "+" + s
	}
	if estimate {
		return estimateMark + s
	}
	return s
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.DateOnly)
}

func compactName(s string, n int) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) <= n {
		return string(runes)
	}
	return string(runes[:n-1]) + "…"
}

func shortAddress(addr string) string {
	if len(addr) <= 12 {
		return addr
	}
	return addr[:6] + "…" + addr[len(addr)-4:]
}
