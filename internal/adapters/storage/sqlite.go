package storage

// sqlite.go — histórico de leaderboards.
//
// Estrategia:
//   - `leaderboard_runs`: una fila por cálculo (fee usado, si fue estimación).
//   - `leaderboard_entries`: una fila por usuario y run, con la posición.
//   - Un run se escribe entero en una transacción o no se escribe.
//   - Prune automático al arrancar: runs > 30d con sus entries.

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/alejandrodnm/intuibets/internal/domain"
	"github.com/alejandrodnm/intuibets/internal/ports"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS leaderboard_runs (
    id          TEXT PRIMARY KEY,
    computed_at DATETIME NOT NULL,
    fee_bps     INTEGER  NOT NULL DEFAULT 0,
    estimate    INTEGER  NOT NULL DEFAULT 0,
    users       INTEGER  NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS leaderboard_entries (
    run_id      TEXT    NOT NULL REFERENCES leaderboard_runs(id),
    position    INTEGER NOT NULL,
    address     TEXT    NOT NULL,
    wins        INTEGER NOT NULL DEFAULT 0,
    losses      INTEGER NOT NULL DEFAULT 0,
    total_bets  INTEGER NOT NULL DEFAULT 0,
    accuracy    REAL    NOT NULL DEFAULT 0,
    trust_score INTEGER NOT NULL DEFAULT 0,
    rank        TEXT    NOT NULL,
    PRIMARY KEY (run_id, position)
);

CREATE INDEX IF NOT EXISTS idx_runs_at      ON leaderboard_runs(computed_at DESC);
CREATE INDEX IF NOT EXISTS idx_entries_addr ON leaderboard_entries(address);
`

const retentionRuns = 30 * 24 * time.Hour

// SQLiteStorage implementa ports.SnapshotStore usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada.
// Aplica el schema y limpia runs antiguos.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}

	s := &SQLiteStorage{db: db, now: func() time.Time { return time.Now().UTC() }}
	s.pruneOld(context.Background())
	return s, nil
}

// SaveLeaderboard persiste el run y todas sus filas.
func (s *SQLiteStorage) SaveLeaderboard(ctx context.Context, run ports.LeaderboardRun) error {
	if run.ID == "" {
		return fmt.Errorf("storage.SaveLeaderboard: empty run id: %w", domain.ErrValidation)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("storage.SaveLeaderboard: begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO leaderboard_runs (id, computed_at, fee_bps, estimate, users) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.ComputedAt.UTC(), run.FeeBps, boolToInt(run.Estimate), len(run.Entries),
	); err != nil {
		return fmt.Errorf("storage.SaveLeaderboard: insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO leaderboard_entries
			(run_id, position, address, wins, losses, total_bets, accuracy, trust_score, rank)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("storage.SaveLeaderboard: prepare: %w", err)
	}
	defer stmt.Close()

	for _, e := range run.Entries {
		if _, err := stmt.ExecContext(ctx,
			run.ID, e.Position, e.Stats.Address,
			e.Stats.Wins, e.Stats.Losses, e.Stats.TotalBets,
			e.Stats.Accuracy, e.Stats.TrustScore, e.Rank.Name,
		); err != nil {
			return fmt.Errorf("storage.SaveLeaderboard: insert entry %s: %w", e.Stats.Address, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("storage.SaveLeaderboard: commit: %w", err)
	}
	return nil
}

// LatestLeaderboard devuelve el run más reciente, o domain.ErrNotFound.
func (s *SQLiteStorage) LatestLeaderboard(ctx context.Context) (ports.LeaderboardRun, error) {
	var (
		run      ports.LeaderboardRun
		estimate int
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, computed_at, fee_bps, estimate FROM leaderboard_runs ORDER BY computed_at DESC, rowid DESC LIMIT 1`,
	).Scan(&run.ID, &run.ComputedAt, &run.FeeBps, &estimate)
	if errors.Is(err, sql.ErrNoRows) {
		return ports.LeaderboardRun{}, fmt.Errorf("storage.LatestLeaderboard: %w", domain.ErrNotFound)
	}
	if err != nil {
		return ports.LeaderboardRun{}, fmt.Errorf("storage.LatestLeaderboard: query run: %w", err)
	}
	run.Estimate = estimate != 0

	entries, err := s.entries(ctx, run.ID)
	if err != nil {
		return ports.LeaderboardRun{}, fmt.Errorf("storage.LatestLeaderboard: %w", err)
	}
	run.Entries = entries
	return run, nil
}

// UserHistory devuelve las posiciones de address en los runs entre from y to,
// del más reciente al más viejo.
func (s *SQLiteStorage) UserHistory(ctx context.Context, address string, from, to time.Time) ([]domain.LeaderboardEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT e.position, e.address, e.wins, e.losses, e.total_bets, e.accuracy, e.trust_score
		FROM leaderboard_entries e
		JOIN leaderboard_runs r ON r.id = e.run_id
		WHERE lower(e.address) = lower(?) AND r.computed_at BETWEEN ? AND ?
		ORDER BY r.computed_at DESC`,
		address, from.UTC(), to.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("storage.UserHistory: query: %w", err)
	}
	defer rows.Close()

	out, err := scanEntries(rows)
	if err != nil {
		return nil, fmt.Errorf("storage.UserHistory: %w", err)
	}
	return out, nil
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

func (s *SQLiteStorage) entries(ctx context.Context, runID string) ([]domain.LeaderboardEntry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT position, address, wins, losses, total_bets, accuracy, trust_score
		FROM leaderboard_entries WHERE run_id = ? ORDER BY position`, runID)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()
	return scanEntries(rows)
}

// scanEntries reconstruye las filas. El rango se deriva del score guardado.
func scanEntries(rows *sql.Rows) ([]domain.LeaderboardEntry, error) {
	out := make([]domain.LeaderboardEntry, 0)
	for rows.Next() {
		var e domain.LeaderboardEntry
		if err := rows.Scan(
			&e.Position, &e.Stats.Address, &e.Stats.Wins, &e.Stats.Losses,
			&e.Stats.TotalBets, &e.Stats.Accuracy, &e.Stats.TrustScore,
		); err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		e.Rank = domain.GetRank(e.Stats.TrustScore)
		out = append(out, e)
	}
	return out, rows.Err()
}

// pruneOld elimina runs fuera de la ventana de retención junto con sus filas.
func (s *SQLiteStorage) pruneOld(ctx context.Context) {
	cutoff := s.now().Add(-retentionRuns)
	s.db.ExecContext(ctx, `DELETE FROM leaderboard_entries WHERE run_id IN
		(SELECT id FROM leaderboard_runs WHERE computed_at < ?)`, cutoff)
	s.db.ExecContext(ctx, `DELETE FROM leaderboard_runs WHERE computed_at < ?`, cutoff)
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
