package ports

import (
	"context"

	"github.com/alejandrodnm/intuibets/internal/domain"
)

// Reporter presenta resultados al usuario.
type Reporter interface {
	ReportEvents(ctx context.Context, events []domain.Event) error
	ReportPortfolio(ctx context.Context, user string, bets []domain.PnLBet, stats domain.PortfolioStats) error
	ReportLeaderboard(ctx context.Context, run LeaderboardRun) error
	ReportHistory(ctx context.Context, user string, entries []domain.LeaderboardEntry) error
}
