package domain

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// EventStatus es el estado del ciclo de vida de un mercado.
type EventStatus string

const (
	StatusOpen     EventStatus = "open"
	StatusClosed   EventStatus = "closed"   // apuestas bloqueadas
	StatusFinished EventStatus = "finished" // terminal, WinningOutcome definido
	StatusCanceled EventStatus = "canceled" // terminal, reembolsos
)

// IsTerminal devuelve true para finished y canceled.
func (s EventStatus) IsTerminal() bool {
	return s == StatusFinished || s == StatusCanceled
}

// Side es uno de los dos lados de un mercado binario.
type Side string

const (
	SideYes Side = "YES"
	SideNo  Side = "NO"
)

// poolTolerance es la diferencia máxima aceptada entre TotalPool y Yes+No.
var poolTolerance = decimal.New(1, -9)

// Pools contiene el monto apostado en cada lado, en unidades decimales del token.
type Pools struct {
	Yes decimal.Decimal
	No  decimal.Decimal
}

// Sum devuelve Yes + No.
func (p Pools) Sum() decimal.Decimal {
	return p.Yes.Add(p.No)
}

// Event es un mercado de predicción yes/no.
type Event struct {
	ID             string
	Question       string
	Status         EventStatus
	Outcomes       Pools
	TotalPool      decimal.Decimal
	WinningOutcome Side // solo cuando Status == finished
	MinStake       decimal.Decimal
	MaxStake       decimal.Decimal
	EndDate        time.Time // fecha de resolución
}

// WinningPool devuelve el pool del lado ganador, o cero si el evento no terminó.
func (e Event) WinningPool() decimal.Decimal {
	if e.Status != StatusFinished {
		return decimal.Zero
	}
	switch e.WinningOutcome {
	case SideYes:
		return e.Outcomes.Yes
	case SideNo:
		return e.Outcomes.No
	}
	return decimal.Zero
}

// Validate rechaza montos negativos y estados desconocidos.
func (e Event) Validate() error {
	switch e.Status {
	case StatusOpen, StatusClosed, StatusCanceled:
	case StatusFinished:
		if e.WinningOutcome != SideYes && e.WinningOutcome != SideNo {
			return invalid("event "+e.ID+" winningOutcome", fmt.Sprintf("unknown side %q", e.WinningOutcome))
		}
	default:
		return invalid("event "+e.ID+" status", fmt.Sprintf("unknown status %q", e.Status))
	}
	if e.Outcomes.Yes.IsNegative() {
		return invalid("event "+e.ID+" outcomes.yes", "negative pool")
	}
	if e.Outcomes.No.IsNegative() {
		return invalid("event "+e.ID+" outcomes.no", "negative pool")
	}
	if e.TotalPool.IsNegative() {
		return invalid("event "+e.ID+" totalPool", "negative pool")
	}
	return nil
}

// CheckConsistency verifica TotalPool == Yes + No dentro de la tolerancia.
// El resultado es informativo: quien llama lo loguea y sigue.
func (e Event) CheckConsistency() error {
	if e.TotalPool.Sub(e.Outcomes.Sum()).Abs().GreaterThan(poolTolerance) {
		return fmt.Errorf("event %s: totalPool %s != yes %s + no %s: %w",
			e.ID, e.TotalPool, e.Outcomes.Yes, e.Outcomes.No, ErrInconsistentInput)
	}
	return nil
}

// UserBet es la posición de un usuario en un evento.
type UserBet struct {
	EventID   string
	YesAmount decimal.Decimal
	NoAmount  decimal.Decimal
	Claimed   bool
}

// HasStake devuelve true si el usuario apostó algo en cualquiera de los lados.
func (b UserBet) HasStake() bool {
	return b.YesAmount.IsPositive() || b.NoAmount.IsPositive()
}

// StakedSide devuelve el lado que controla la apuesta. Si ambos montos son
// positivos gana YES; CheckConsistency lo reporta.
func (b UserBet) StakedSide() Side {
	if b.YesAmount.IsPositive() {
		return SideYes
	}
	return SideNo
}

// Stake devuelve el monto del lado que controla la apuesta.
func (b UserBet) Stake() decimal.Decimal {
	if b.StakedSide() == SideYes {
		return b.YesAmount
	}
	return b.NoAmount
}

// Validate rechaza montos negativos.
func (b UserBet) Validate() error {
	if b.YesAmount.IsNegative() {
		return invalid("bet "+b.EventID+" yesAmount", "negative stake")
	}
	if b.NoAmount.IsNegative() {
		return invalid("bet "+b.EventID+" noAmount", "negative stake")
	}
	return nil
}

// CheckConsistency reporta apuestas con ambos lados distintos de cero.
func (b UserBet) CheckConsistency() error {
	if b.YesAmount.IsPositive() && b.NoAmount.IsPositive() {
		return fmt.Errorf("bet %s: both sides staked (yes %s, no %s): %w",
			b.EventID, b.YesAmount, b.NoAmount, ErrInconsistentInput)
	}
	return nil
}

// AmountFromFloat convierte un float de la capa de presentación en un monto.
// NaN, Inf y negativos son ErrValidation.
func AmountFromFloat(field string, f float64) (decimal.Decimal, error) {
	switch {
	case math.IsNaN(f):
		return decimal.Zero, invalid(field, "NaN")
	case math.IsInf(f, 0):
		return decimal.Zero, invalid(field, "infinite")
	case f < 0:
		return decimal.Zero, invalid(field, "negative")
	}
	return decimal.NewFromFloat(f), nil
}
