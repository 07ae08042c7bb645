package domain

import (
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

const (
	// DefaultTokenDecimals es la precisión del token nativo (18, como ETH).
	DefaultTokenDecimals int32 = 18

	// MaxFeeBps es el fee máximo posible: 100% del pool.
	MaxFeeBps = 10_000

	bpsDenominator = 10_000
)

// BetOutcome es la clasificación de una apuesta tras liquidar su evento.
type BetOutcome int

const (
	OutcomePending BetOutcome = iota
	OutcomeWon
	OutcomeLost
	OutcomeClaimed
	OutcomeRefundable
	OutcomeRefunded
)

func (o BetOutcome) String() string {
	switch o {
	case OutcomePending:
		return "Pending"
	case OutcomeWon:
		return "Won"
	case OutcomeLost:
		return "Lost"
	case OutcomeClaimed:
		return "Claimed"
	case OutcomeRefundable:
		return "Refundable"
	case OutcomeRefunded:
		return "Refunded"
	}
	return "Unknown"
}

// IsWin devuelve true para Won y Claimed.
func (o BetOutcome) IsWin() bool {
	return o == OutcomeWon || o == OutcomeClaimed
}

// IsRefund devuelve true para Refundable y Refunded.
func (o BetOutcome) IsRefund() bool {
	return o == OutcomeRefundable || o == OutcomeRefunded
}

// SettlementParams es el contexto que aporta la autoridad de liquidación.
type SettlementParams struct {
	FeeBps   int64 // fee de plataforma en basis points
	FeeKnown bool  // false: fee desconocido, el payout es una estimación
	Decimals int32 // decimales del token (0 = DefaultTokenDecimals)
}

func (p SettlementParams) decimals() int32 {
	if p.Decimals <= 0 {
		return DefaultTokenDecimals
	}
	return p.Decimals
}

// ValidateFeeBps rechaza fees fuera de 0..MaxFeeBps.
func ValidateFeeBps(feeBps int64) error {
	if feeBps < 0 || feeBps > MaxFeeBps {
		return invalid("fee_bps", "must be within 0..10000")
	}
	return nil
}

// feeKnown es false si el fee no vino de la autoridad o no es un fee posible.
func (p SettlementParams) feeKnown() bool {
	return p.FeeKnown && ValidateFeeBps(p.FeeBps) == nil
}

func (p SettlementParams) feeBps() int64 {
	if !p.feeKnown() {
		return 0
	}
	return p.FeeBps
}

// PnLBet es una fila derivada (evento, apuesta) para un usuario.
// Se recalcula en cada lectura; nunca se persiste por separado.
type PnLBet struct {
	EventID       string
	EventQuestion string
	UserBet       Side
	StakedAmount  decimal.Decimal
	Date          time.Time
	Outcome       BetOutcome
	Winnings      decimal.Decimal
	PnL           decimal.Decimal
	Estimate      bool // payout calculado sin fee conocido
}

// ResolveSettlement clasifica la apuesta de un usuario y calcula payout y PnL.
// Un evento o apuesta ausente no es un error: devuelve Pending con ceros.
// Una apuesta sin stake (valor cero) cuenta como ausente.
// Un fee fuera de 0..MaxFeeBps se trata como desconocido.
func ResolveSettlement(event *Event, bet *UserBet, params SettlementParams) PnLBet {
	if event == nil || bet == nil || !bet.HasStake() {
		row := PnLBet{Outcome: OutcomePending, Estimate: !params.feeKnown()}
		if event != nil {
			row.EventID = event.ID
			row.EventQuestion = event.Question
			row.Date = event.EndDate
		} else if bet != nil {
			row.EventID = bet.EventID
		}
		return row
	}

	side := bet.StakedSide()
	stake := bet.Stake()
	row := PnLBet{
		EventID:       event.ID,
		EventQuestion: event.Question,
		UserBet:       side,
		StakedAmount:  stake,
		Date:          event.EndDate,
		Outcome:       classify(event, bet.Claimed, side),
		Estimate:      !params.feeKnown(),
	}

	switch row.Outcome {
	case OutcomeRefundable, OutcomeRefunded:
		row.Winnings = stake
		row.PnL = decimal.Zero
	case OutcomeWon, OutcomeClaimed:
		row.Winnings = winnings(event, stake, params)
		row.PnL = row.Winnings.Sub(stake)
	case OutcomeLost:
		row.Winnings = decimal.Zero
		row.PnL = stake.Neg()
	case OutcomePending:
		row.Winnings = decimal.Zero
		row.PnL = decimal.Zero
	}
	return row
}

// classify implementa la tabla de transiciones (status, ganador, claimed, lado).
func classify(event *Event, claimed bool, side Side) BetOutcome {
	switch event.Status {
	case StatusCanceled:
		if claimed {
			return OutcomeRefunded
		}
		return OutcomeRefundable
	case StatusFinished:
		if side != event.WinningOutcome {
			return OutcomeLost
		}
		if claimed {
			return OutcomeClaimed
		}
		return OutcomeWon
	}
	return OutcomePending
}

// winnings calcula el payout en aritmética entera sobre unidades base.
func winnings(event *Event, stake decimal.Decimal, params SettlementParams) decimal.Decimal {
	dec := params.decimals()
	payout := PayoutBaseUnits(
		ToBaseUnits(stake, dec),
		ToBaseUnits(event.TotalPool, dec),
		ToBaseUnits(event.WinningPool(), dec),
		params.feeBps(),
	)
	return FromBaseUnits(payout, dec)
}

// PlatformFeeBaseUnits devuelve totalPool × feeBps / 10000 (división entera).
// feeBps se acota a 0..MaxFeeBps: el fee nunca supera el pool.
func PlatformFeeBaseUnits(totalPool *big.Int, feeBps int64) *big.Int {
	if feeBps <= 0 {
		return new(big.Int)
	}
	feeBps = min(feeBps, MaxFeeBps)
	fee := new(big.Int).Mul(totalPool, big.NewInt(feeBps))
	return fee.Quo(fee, big.NewInt(bpsDenominator))
}

// PayoutBaseUnits es el payout exacto de un ganador, tal como lo calcula el
// contrato: stake × (totalPool − fee) / winningPool con división entera.
// Con winningPool == 0 devuelve el stake.
func PayoutBaseUnits(stake, totalPool, winningPool *big.Int, feeBps int64) *big.Int {
	if winningPool.Sign() <= 0 {
		return new(big.Int).Set(stake)
	}
	distributable := new(big.Int).Sub(totalPool, PlatformFeeBaseUnits(totalPool, feeBps))
	out := new(big.Int).Mul(stake, distributable)
	return out.Quo(out, winningPool)
}

// ToBaseUnits escala un monto decimal a unidades base enteras (trunca).
func ToBaseUnits(amount decimal.Decimal, decimals int32) *big.Int {
	return amount.Shift(decimals).BigInt()
}

// FromBaseUnits convierte unidades base enteras a un monto decimal.
func FromBaseUnits(units *big.Int, decimals int32) decimal.Decimal {
	return decimal.NewFromBigInt(units, -decimals)
}
