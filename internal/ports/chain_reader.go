package ports

import (
	"context"

	"github.com/alejandrodnm/intuibets/internal/domain"
)

// ChainReader lee el estado de la autoridad de liquidación (contrato o mock).
// El engine no sabe qué implementación está en uso.
type ChainReader interface {
	// GetAllEvents devuelve todos los eventos conocidos.
	GetAllEvents(ctx context.Context) ([]domain.Event, error)

	// GetMultipleUserBets devuelve las apuestas del usuario alineadas por índice
	// con eventIDs. Un evento sin apuesta devuelve un UserBet con montos en cero.
	GetMultipleUserBets(ctx context.Context, eventIDs []string, user string) ([]domain.UserBet, error)

	// GetPlatformFee devuelve el fee de plataforma en basis points.
	GetPlatformFee(ctx context.Context) (int64, error)

	// ListBettors devuelve las direcciones que apostaron al menos una vez.
	ListBettors(ctx context.Context) ([]string, error)
}
