package standings

// service.go — arma snapshots completos de la cadena y los pasa al engine.
//
// El engine (internal/domain) es puro: no hace I/O ni ve datos parciales.
// Acá se hace todo lo demás: leer eventos, fee y apuestas, validar, loguear
// inconsistencias y reintentar lecturas fallidas. Si un usuario no se puede
// leer completo, el leaderboard entero falla con ErrInsufficientData.

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/alejandrodnm/intuibets/internal/domain"
	"github.com/alejandrodnm/intuibets/internal/ports"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Config controla cómo se arma el snapshot.
type Config struct {
	FeeBpsDefault int64         // fee fijo cuando FeeFromChain es false
	FeeFromChain  bool          // leer GetPlatformFee antes de liquidar
	Decimals      int32         // decimales del token (0 = 18)
	Workers       int           // lecturas de usuarios en paralelo (0 = NumCPU×2)
	FetchRetries  int           // reintentos por usuario antes de abortar
	RetryWait     time.Duration // espera base entre reintentos, se duplica en cada uno (0 = 250ms)
}

const defaultRetryWait = 250 * time.Millisecond

// DefaultConfig devuelve una configuración sensata.
func DefaultConfig() Config {
	return Config{
		FeeFromChain: true,
		Decimals:     domain.DefaultTokenDecimals,
		FetchRetries: 2,
	}
}

// Portfolio es el historial liquidado de un usuario.
type Portfolio struct {
	User     string
	Bets     []domain.PnLBet
	Stats    domain.PortfolioStats
	Rank     domain.Rank
	UserInfo domain.UserStats
	Estimate bool // fee desconocido: payouts estimados
}

// snapshot es una lectura consistente de eventos + fee.
type snapshot struct {
	events   []domain.Event
	eventIDs []string
	byID     map[string]*domain.Event
	params   domain.SettlementParams
}

// Service orquesta ChainReader → engine → SnapshotStore.
type Service struct {
	cfg   Config
	chain ports.ChainReader
	store ports.SnapshotStore // opcional
	newID func() string
	now   func() time.Time
}

// New crea un Service. store puede ser nil.
func New(cfg Config, chain ports.ChainReader, store ports.SnapshotStore) *Service {
	if cfg.Workers <= 0 {
		cfg.Workers = runtime.NumCPU() * 2
	}
	if cfg.FetchRetries < 0 {
		cfg.FetchRetries = 0
	}
	if cfg.RetryWait <= 0 {
		cfg.RetryWait = defaultRetryWait
	}
	return &Service{
		cfg:   cfg,
		chain: chain,
		store: store,
		newID: newRunID,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Events devuelve los eventos válidos del snapshot, en orden de creación.
func (s *Service) Events(ctx context.Context) ([]domain.Event, error) {
	snap, err := s.loadSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("standings.Events: %w", err)
	}
	return snap.events, nil
}

// Portfolio liquida todas las apuestas de user y agrega sus estadísticas.
func (s *Service) Portfolio(ctx context.Context, user string) (Portfolio, error) {
	snap, err := s.loadSnapshot(ctx)
	if err != nil {
		return Portfolio{}, fmt.Errorf("standings.Portfolio: %w", err)
	}

	bets, err := s.userBets(ctx, snap, user)
	if err != nil {
		return Portfolio{}, fmt.Errorf("standings.Portfolio: %w", err)
	}

	stats := domain.AggregatePortfolio(bets)
	info := domain.UserStatsFromPortfolio(user, stats)
	return Portfolio{
		User:     user,
		Bets:     bets,
		Stats:    stats,
		Rank:     domain.GetRank(info.TrustScore),
		UserInfo: info,
		Estimate: !snap.params.FeeKnown,
	}, nil
}

// Leaderboard lee todos los apostadores en paralelo sobre un único snapshot de
// eventos y devuelve el ranking. Si store no es nil, lo persiste.
func (s *Service) Leaderboard(ctx context.Context) (ports.LeaderboardRun, error) {
	snap, err := s.loadSnapshot(ctx)
	if err != nil {
		return ports.LeaderboardRun{}, fmt.Errorf("standings.Leaderboard: %w", err)
	}

	bettors, err := s.chain.ListBettors(ctx)
	if err != nil {
		return ports.LeaderboardRun{}, fmt.Errorf("standings.Leaderboard: list bettors: %w: %w", domain.ErrInsufficientData, err)
	}

	stats := make([]domain.UserStats, len(bettors))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.Workers)
	for i, user := range bettors {
		g.Go(func() error {
			bets, err := s.userBets(gctx, snap, user)
			if err != nil {
				return err
			}
			stats[i] = domain.UserStatsFromPortfolio(user, domain.AggregatePortfolio(bets))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return ports.LeaderboardRun{}, fmt.Errorf("standings.Leaderboard: %w", err)
	}

	run := ports.LeaderboardRun{
		ID:         s.newID(),
		ComputedAt: s.now(),
		FeeBps:     snap.params.FeeBps,
		Estimate:   !snap.params.FeeKnown,
		Entries:    domain.RankLeaderboard(stats),
	}

	slog.Info("leaderboard computed",
		"run_id", run.ID,
		"users", len(run.Entries),
		"events", len(snap.events),
		"estimate", run.Estimate,
	)

	if s.store != nil {
		if err := s.store.SaveLeaderboard(ctx, run); err != nil {
			return run, fmt.Errorf("standings.Leaderboard: save: %w", err)
		}
	}
	return run, nil
}

// LatestLeaderboard devuelve el último leaderboard persistido.
func (s *Service) LatestLeaderboard(ctx context.Context) (ports.LeaderboardRun, error) {
	if s.store == nil {
		return ports.LeaderboardRun{}, fmt.Errorf("standings.LatestLeaderboard: no store configured: %w", domain.ErrNotFound)
	}
	return s.store.LatestLeaderboard(ctx)
}

// History devuelve las posiciones de user en los leaderboards guardados
// desde since, del más reciente al más viejo.
func (s *Service) History(ctx context.Context, user string, since time.Time) ([]domain.LeaderboardEntry, error) {
	if s.store == nil {
		return nil, fmt.Errorf("standings.History: no store configured: %w", domain.ErrNotFound)
	}
	entries, err := s.store.UserHistory(ctx, user, since, s.now())
	if err != nil {
		return nil, fmt.Errorf("standings.History: %w", err)
	}
	return entries, nil
}

// loadSnapshot lee eventos y fee. Eventos inválidos se descartan con warning;
// inconsistencias se loguean y se siguen usando.
func (s *Service) loadSnapshot(ctx context.Context) (snapshot, error) {
	events, err := s.chain.GetAllEvents(ctx)
	if err != nil {
		return snapshot{}, fmt.Errorf("load events: %w: %w", domain.ErrInsufficientData, err)
	}

	snap := snapshot{
		events:   make([]domain.Event, 0, len(events)),
		eventIDs: make([]string, 0, len(events)),
		byID:     make(map[string]*domain.Event, len(events)),
		params:   s.settlementParams(ctx),
	}
	for _, ev := range events {
		if err := ev.Validate(); err != nil {
			slog.Warn("skipping invalid event", "event_id", ev.ID, "err", err)
			continue
		}
		if err := ev.CheckConsistency(); err != nil {
			slog.Warn("inconsistent event pools", "event_id", ev.ID, "err", err)
		}
		snap.events = append(snap.events, ev)
	}
	for i := range snap.events {
		snap.eventIDs = append(snap.eventIDs, snap.events[i].ID)
		snap.byID[snap.events[i].ID] = &snap.events[i]
	}
	return snap, nil
}

// settlementParams resuelve el fee. Con FeeFromChain desactivado el fee
// configurado se toma como el real. Si la cadena no lo devuelve se liquida con
// fee 0 y todo queda marcado como estimación.
func (s *Service) settlementParams(ctx context.Context) domain.SettlementParams {
	params := domain.SettlementParams{Decimals: s.cfg.Decimals}
	if !s.cfg.FeeFromChain {
		params.FeeBps = s.cfg.FeeBpsDefault
		params.FeeKnown = true
		return params
	}
	fee, err := s.chain.GetPlatformFee(ctx)
	if err != nil {
		slog.Warn("platform fee unavailable, payouts are estimates", "err", err)
		return params
	}
	params.FeeBps = fee
	params.FeeKnown = true
	return params
}

// userBets lee las apuestas de user (con reintentos) y las liquida.
func (s *Service) userBets(ctx context.Context, snap snapshot, user string) ([]domain.PnLBet, error) {
	var (
		raw []domain.UserBet
		err error
	)
	for attempt := 0; attempt <= s.cfg.FetchRetries; attempt++ {
		raw, err = s.fetchBets(ctx, snap.eventIDs, user)
		if err == nil || errors.Is(err, domain.ErrValidation) || ctx.Err() != nil {
			break
		}
		slog.Debug("user bets fetch failed", "user", user, "attempt", attempt+1, "err", err)
		if attempt == s.cfg.FetchRetries || !s.backoff(ctx, attempt) {
			break
		}
	}
	if err != nil {
		return nil, fmt.Errorf("bets of %s: %w: %w", user, domain.ErrInsufficientData, err)
	}

	rows := make([]domain.PnLBet, 0, len(raw))
	for i := range raw {
		bet := raw[i]
		if err := bet.Validate(); err != nil {
			slog.Warn("skipping invalid bet", "user", user, "event_id", bet.EventID, "err", err)
			continue
		}
		if !bet.HasStake() {
			continue
		}
		if err := bet.CheckConsistency(); err != nil {
			slog.Warn("bet staked on both sides, YES side wins", "user", user, "err", err)
		}
		rows = append(rows, domain.ResolveSettlement(snap.byID[snap.eventIDs[i]], &bet, snap.params))
	}
	return rows, nil
}

// backoff espera RetryWait × 2^attempt. Devuelve false si ctx se cancela antes.
func (s *Service) backoff(ctx context.Context, attempt int) bool {
	t := time.NewTimer(s.cfg.RetryWait << attempt)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func newRunID() string {
	return uuid.NewString()
}

func (s *Service) fetchBets(ctx context.Context, eventIDs []string, user string) ([]domain.UserBet, error) {
	raw, err := s.chain.GetMultipleUserBets(ctx, eventIDs, user)
	if err != nil {
		return nil, err
	}
	if len(raw) != len(eventIDs) {
		return nil, fmt.Errorf("got %d bets for %d events", len(raw), len(eventIDs))
	}
	return raw, nil
}
