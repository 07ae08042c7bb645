package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/intuibets/internal/domain"
)

// LeaderboardRun es un leaderboard calculado sobre un snapshot completo.
type LeaderboardRun struct {
	ID         string
	ComputedAt time.Time
	FeeBps     int64
	Estimate   bool // calculado sin fee de la cadena
	Entries    []domain.LeaderboardEntry
}

// SnapshotStore persiste leaderboards ya calculados. El engine nunca lo usa:
// es la cache de quien llama.
type SnapshotStore interface {
	SaveLeaderboard(ctx context.Context, run LeaderboardRun) error

	// LatestLeaderboard devuelve el último run guardado, o domain.ErrNotFound.
	LatestLeaderboard(ctx context.Context) (LeaderboardRun, error)

	// UserHistory devuelve las filas de address en los runs entre from y to,
	// del más reciente al más viejo.
	UserHistory(ctx context.Context, address string, from, to time.Time) ([]domain.LeaderboardEntry, error)

	Close() error
}
