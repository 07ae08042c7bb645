package domain

import (
	"sort"

	"github.com/shopspring/decimal"
)

// PortfolioStats resume el historial completo de apuestas de un usuario.
type PortfolioStats struct {
	NetPnL        decimal.Decimal // Σ pnl sobre todas las apuestas
	TotalVolume   decimal.Decimal // Σ stake sobre todas las apuestas
	WinRate       float64         // 0–100, sobre wins + losses
	LongestStreak int
	TotalBets     int // wins + losses
	Wins          int // Won + Claimed
	Losses        int
	Pending       int
	Refunds       int // Refundable + Refunded
}

// AggregatePortfolio pliega el historial en estadísticas.
//
// Las rachas dependen del orden, así que se ordena una copia por Date
// (empates por EventID): el resultado no depende del orden de entrada.
func AggregatePortfolio(bets []PnLBet) PortfolioStats {
	ordered := make([]PnLBet, len(bets))
	copy(ordered, bets)
	sort.SliceStable(ordered, func(i, j int) bool {
		if !ordered[i].Date.Equal(ordered[j].Date) {
			return ordered[i].Date.Before(ordered[j].Date)
		}
		return ordered[i].EventID < ordered[j].EventID
	})

	stats := PortfolioStats{NetPnL: decimal.Zero, TotalVolume: decimal.Zero}
	streak := 0
	for _, b := range ordered {
		stats.NetPnL = stats.NetPnL.Add(b.PnL)
		stats.TotalVolume = stats.TotalVolume.Add(b.StakedAmount)

		switch b.Outcome {
		case OutcomeWon, OutcomeClaimed:
			stats.Wins++
			streak++
		case OutcomeLost:
			stats.Losses++
			stats.LongestStreak = max(stats.LongestStreak, streak)
			streak = 0
		case OutcomeRefundable, OutcomeRefunded:
			stats.Refunds++
		case OutcomePending:
			stats.Pending++
		}
	}
	stats.LongestStreak = max(stats.LongestStreak, streak)

	stats.TotalBets = stats.Wins + stats.Losses
	if stats.TotalBets > 0 {
		stats.WinRate = float64(stats.Wins) / float64(stats.TotalBets) * 100
	}
	return stats
}
