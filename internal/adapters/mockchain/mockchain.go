package mockchain

// mockchain.go — ChainReader en memoria que reemplaza al contrato.
//
// Se carga desde un fixture YAML y además simula el ciclo de vida on-chain
// (apostar, cerrar, resolver, cancelar, reclamar) para tests y demos.
// Las lecturas devuelven copias: quien llama nunca ve un snapshot a medias.

import (
	"context"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/alejandrodnm/intuibets/internal/domain"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Fixture es el formato YAML del mock.
type Fixture struct {
	FeeBps *int64                  `yaml:"fee_bps"` // nil = fee no disponible
	Events []FixtureEvent          `yaml:"events"`
	Bets   map[string][]FixtureBet `yaml:"bets"` // address → apuestas
}

// FixtureEvent es un evento en el fixture. Los montos van como string decimal.
type FixtureEvent struct {
	ID             string    `yaml:"id"`
	Question       string    `yaml:"question"`
	Status         string    `yaml:"status"`
	YesPool        string    `yaml:"yes_pool"`
	NoPool         string    `yaml:"no_pool"`
	TotalPool      string    `yaml:"total_pool"` // vacío = yes + no
	WinningOutcome string    `yaml:"winning_outcome"`
	MinStake       string    `yaml:"min_stake"`
	MaxStake       string    `yaml:"max_stake"`
	EndDate        time.Time `yaml:"end_date"`
}

// FixtureBet es la apuesta de un usuario en un evento.
type FixtureBet struct {
	EventID string `yaml:"event_id"`
	Yes     string `yaml:"yes"`
	No      string `yaml:"no"`
	Claimed bool   `yaml:"claimed"`
}

// Reader implementa ports.ChainReader sobre datos en memoria.
type Reader struct {
	mu     sync.RWMutex
	feeBps *int64
	order  []string                             // IDs en orden de creación
	events map[string]domain.Event              // eventID → evento
	bets   map[string]map[string]domain.UserBet // user → eventID → apuesta
}

// Load lee y valida un fixture YAML.
func Load(path string) (*Reader, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("mockchain.Load: read %q: %w", path, err)
	}
	var fx Fixture
	if err := yaml.Unmarshal(data, &fx); err != nil {
		return nil, fmt.Errorf("mockchain.Load: parse YAML: %w", err)
	}
	r, err := New(fx)
	if err != nil {
		return nil, fmt.Errorf("mockchain.Load: %w", err)
	}
	return r, nil
}

// New construye un Reader a partir de un fixture ya parseado.
func New(fx Fixture) (*Reader, error) {
	if fx.FeeBps != nil {
		if err := domain.ValidateFeeBps(*fx.FeeBps); err != nil {
			return nil, fmt.Errorf("fee_bps %d: %w", *fx.FeeBps, err)
		}
		fee := *fx.FeeBps
		fx.FeeBps = &fee
	}
	r := &Reader{
		feeBps: fx.FeeBps,
		events: make(map[string]domain.Event, len(fx.Events)),
		bets:   make(map[string]map[string]domain.UserBet, len(fx.Bets)),
	}

	for _, fe := range fx.Events {
		ev, err := fe.toDomain()
		if err != nil {
			return nil, err
		}
		if _, dup := r.events[ev.ID]; dup {
			return nil, fmt.Errorf("event %s: duplicated id: %w", ev.ID, domain.ErrValidation)
		}
		r.events[ev.ID] = ev
		r.order = append(r.order, ev.ID)
	}

	for user, bets := range fx.Bets {
		key := normalizeAddress(user)
		for _, fb := range bets {
			if _, ok := r.events[fb.EventID]; !ok {
				return nil, fmt.Errorf("bet of %s: unknown event %q: %w", user, fb.EventID, domain.ErrValidation)
			}
			bet, err := fb.toDomain()
			if err != nil {
				return nil, fmt.Errorf("bet of %s: %w", user, err)
			}
			if r.bets[key] == nil {
				r.bets[key] = make(map[string]domain.UserBet)
			}
			r.bets[key][bet.EventID] = bet
		}
	}
	return r, nil
}

// GetAllEvents devuelve una copia de los eventos en orden de creación.
func (r *Reader) GetAllEvents(_ context.Context) ([]domain.Event, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]domain.Event, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.events[id])
	}
	return out, nil
}

// GetMultipleUserBets devuelve las apuestas alineadas con eventIDs.
func (r *Reader) GetMultipleUserBets(_ context.Context, eventIDs []string, user string) ([]domain.UserBet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	userBets := r.bets[normalizeAddress(user)]
	out := make([]domain.UserBet, len(eventIDs))
	for i, id := range eventIDs {
		if b, ok := userBets[id]; ok {
			out[i] = b
			continue
		}
		out[i] = domain.UserBet{EventID: id}
	}
	return out, nil
}

// GetPlatformFee devuelve el fee del fixture o ErrNotFound si no se definió.
func (r *Reader) GetPlatformFee(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.feeBps == nil {
		return 0, fmt.Errorf("mockchain: platform fee: %w", domain.ErrNotFound)
	}
	if err := domain.ValidateFeeBps(*r.feeBps); err != nil {
		return 0, fmt.Errorf("mockchain: platform fee %d: %w", *r.feeBps, err)
	}
	return *r.feeBps, nil
}

// ListBettors devuelve las direcciones con al menos una apuesta, ordenadas.
func (r *Reader) ListBettors(_ context.Context) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.bets))
	for user, bets := range r.bets {
		for _, b := range bets {
			if b.HasStake() {
				out = append(out, user)
				break
			}
		}
	}
	sort.Strings(out)
	return out, nil
}

// --- ciclo de vida simulado ---

// PlaceBet suma amount al lado elegido. El evento debe estar abierto, el monto
// dentro de [MinStake, MaxStake] y el usuario no puede cambiar de lado.
func (r *Reader) PlaceBet(user, eventID string, side domain.Side, amount decimal.Decimal) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ev, ok := r.events[eventID]
	if !ok {
		return fmt.Errorf("mockchain.PlaceBet: event %s: %w", eventID, domain.ErrNotFound)
	}
	if ev.Status != domain.StatusOpen {
		return fmt.Errorf("mockchain.PlaceBet: event %s is %s: %w", eventID, ev.Status, domain.ErrValidation)
	}
	if !amount.IsPositive() {
		return fmt.Errorf("mockchain.PlaceBet: amount %s: %w", amount, domain.ErrValidation)
	}
	if ev.MinStake.IsPositive() && amount.LessThan(ev.MinStake) {
		return fmt.Errorf("mockchain.PlaceBet: amount %s below min %s: %w", amount, ev.MinStake, domain.ErrValidation)
	}

	key := normalizeAddress(user)
	bet := r.bets[key][eventID]
	bet.EventID = eventID

	var current decimal.Decimal
	switch side {
	case domain.SideYes:
		if bet.NoAmount.IsPositive() {
			return fmt.Errorf("mockchain.PlaceBet: %s already staked NO on %s: %w", user, eventID, domain.ErrValidation)
		}
		current = bet.YesAmount
	case domain.SideNo:
		if bet.YesAmount.IsPositive() {
			return fmt.Errorf("mockchain.PlaceBet: %s already staked YES on %s: %w", user, eventID, domain.ErrValidation)
		}
		current = bet.NoAmount
	default:
		return fmt.Errorf("mockchain.PlaceBet: side %q: %w", side, domain.ErrValidation)
	}

	next := current.Add(amount)
	if ev.MaxStake.IsPositive() && next.GreaterThan(ev.MaxStake) {
		return fmt.Errorf("mockchain.PlaceBet: stake %s above max %s: %w", next, ev.MaxStake, domain.ErrValidation)
	}

	if side == domain.SideYes {
		bet.YesAmount = next
		ev.Outcomes.Yes = ev.Outcomes.Yes.Add(amount)
	} else {
		bet.NoAmount = next
		ev.Outcomes.No = ev.Outcomes.No.Add(amount)
	}
	ev.TotalPool = ev.TotalPool.Add(amount)

	if r.bets[key] == nil {
		r.bets[key] = make(map[string]domain.UserBet)
	}
	r.bets[key][eventID] = bet
	r.events[eventID] = ev
	return nil
}

// CloseEvent bloquea nuevas apuestas.
func (r *Reader) CloseEvent(eventID string) error {
	return r.transition(eventID, func(ev *domain.Event) error {
		if ev.Status != domain.StatusOpen {
			return fmt.Errorf("event %s is %s: %w", eventID, ev.Status, domain.ErrValidation)
		}
		ev.Status = domain.StatusClosed
		return nil
	})
}

// ResolveEvent marca el evento como finished con el lado ganador.
func (r *Reader) ResolveEvent(eventID string, winner domain.Side, at time.Time) error {
	if winner != domain.SideYes && winner != domain.SideNo {
		return fmt.Errorf("mockchain.ResolveEvent: side %q: %w", winner, domain.ErrValidation)
	}
	return r.transition(eventID, func(ev *domain.Event) error {
		ev.Status = domain.StatusFinished
		ev.WinningOutcome = winner
		ev.EndDate = at
		return nil
	})
}

// CancelEvent marca el evento como canceled; todas las apuestas se reembolsan.
func (r *Reader) CancelEvent(eventID string, at time.Time) error {
	return r.transition(eventID, func(ev *domain.Event) error {
		ev.Status = domain.StatusCanceled
		ev.EndDate = at
		return nil
	})
}

// Claim marca como reclamado el payout o reembolso del usuario.
func (r *Reader) Claim(user, eventID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ev, ok := r.events[eventID]
	if !ok {
		return fmt.Errorf("mockchain.Claim: event %s: %w", eventID, domain.ErrNotFound)
	}
	key := normalizeAddress(user)
	bet, ok := r.bets[key][eventID]
	if !ok || !bet.HasStake() {
		return fmt.Errorf("mockchain.Claim: %s has no bet on %s: %w", user, eventID, domain.ErrNotFound)
	}

	row := domain.ResolveSettlement(&ev, &bet, domain.SettlementParams{})
	if row.Outcome != domain.OutcomeWon && row.Outcome != domain.OutcomeRefundable {
		return fmt.Errorf("mockchain.Claim: %s on %s is %s: %w", user, eventID, row.Outcome, domain.ErrValidation)
	}
	bet.Claimed = true
	r.bets[key][eventID] = bet
	return nil
}

// transition aplica fn a un evento no terminal. Un evento terminal es inmutable.
func (r *Reader) transition(eventID string, fn func(ev *domain.Event) error) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	ev, ok := r.events[eventID]
	if !ok {
		return fmt.Errorf("mockchain: event %s: %w", eventID, domain.ErrNotFound)
	}
	if ev.Status.IsTerminal() {
		return fmt.Errorf("mockchain: event %s already %s: %w", eventID, ev.Status, domain.ErrValidation)
	}
	if err := fn(&ev); err != nil {
		return fmt.Errorf("mockchain: %w", err)
	}
	r.events[eventID] = ev
	return nil
}

// --- conversión del fixture ---

func (fe FixtureEvent) toDomain() (domain.Event, error) {
	ev := domain.Event{
		ID:             fe.ID,
		Question:       fe.Question,
		Status:         domain.EventStatus(strings.ToLower(fe.Status)),
		WinningOutcome: domain.Side(strings.ToUpper(fe.WinningOutcome)),
		EndDate:        fe.EndDate,
	}
	if ev.ID == "" {
		return ev, fmt.Errorf("event without id: %w", domain.ErrValidation)
	}
	if ev.Status == "" {
		ev.Status = domain.StatusOpen
	}

	var err error
	if ev.Outcomes.Yes, err = parseAmount("event "+fe.ID+" yes_pool", fe.YesPool); err != nil {
		return ev, err
	}
	if ev.Outcomes.No, err = parseAmount("event "+fe.ID+" no_pool", fe.NoPool); err != nil {
		return ev, err
	}
	if ev.MinStake, err = parseAmount("event "+fe.ID+" min_stake", fe.MinStake); err != nil {
		return ev, err
	}
	if ev.MaxStake, err = parseAmount("event "+fe.ID+" max_stake", fe.MaxStake); err != nil {
		return ev, err
	}
	if fe.TotalPool == "" {
		ev.TotalPool = ev.Outcomes.Sum()
	} else if ev.TotalPool, err = parseAmount("event "+fe.ID+" total_pool", fe.TotalPool); err != nil {
		return ev, err
	}

	if err := ev.Validate(); err != nil {
		return ev, err
	}
	return ev, nil
}

func (fb FixtureBet) toDomain() (domain.UserBet, error) {
	bet := domain.UserBet{EventID: fb.EventID, Claimed: fb.Claimed}
	var err error
	if bet.YesAmount, err = parseAmount("bet "+fb.EventID+" yes", fb.Yes); err != nil {
		return bet, err
	}
	if bet.NoAmount, err = parseAmount("bet "+fb.EventID+" no", fb.No); err != nil {
		return bet, err
	}
	return bet, bet.Validate()
}

// parseAmount parsea un monto decimal; vacío = 0.
func parseAmount(field, s string) (decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(strings.TrimSpace(s))
	if err != nil {
		return decimal.Zero, &domain.ValidationError{Field: field, Reason: err.Error()}
	}
	if d.IsNegative() {
		return decimal.Zero, &domain.ValidationError{Field: field, Reason: "negative"}
	}
	return d, nil
}

func normalizeAddress(addr string) string {
	return strings.ToLower(strings.TrimSpace(addr))
}
