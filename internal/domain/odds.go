package domain

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// ComputeOdds devuelve las cuotas implícitas del lado A: (A + B) / A.
// Sin apuestas en A devuelve 1 (1:1), evitando la división por cero.
func ComputeOdds(poolA, poolB decimal.Decimal) float64 {
	if !poolA.IsPositive() {
		return 1
	}
	odds, _ := poolA.Add(poolB).DivRound(poolA, 16).Float64()
	return odds
}

// ComputeWinPercentage devuelve la probabilidad implícita de YES (0–100).
// Sin apuestas en YES devuelve 50 (display neutral), igual que el frontend.
func ComputeWinPercentage(yesPool, noPool decimal.Decimal) float64 {
	if !yesPool.IsPositive() {
		return 50
	}
	pct, _ := yesPool.Mul(hundred).DivRound(yesPool.Add(noPool), 16).Float64()
	return pct
}

// Odds agrupa las métricas de display de un evento.
type Odds struct {
	Yes        float64
	No         float64
	YesPercent float64
	NoPercent  float64
}

// EventOdds calcula cuotas y porcentajes de ambos lados de un evento.
func EventOdds(e Event) Odds {
	yesPct := ComputeWinPercentage(e.Outcomes.Yes, e.Outcomes.No)
	return Odds{
		Yes:        ComputeOdds(e.Outcomes.Yes, e.Outcomes.No),
		No:         ComputeOdds(e.Outcomes.No, e.Outcomes.Yes),
		YesPercent: yesPct,
		NoPercent:  100 - yesPct,
	}
}
