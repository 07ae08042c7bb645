package main

import (
	"context"
	"fmt"

	"github.com/alejandrodnm/intuibets/config"
	"github.com/alejandrodnm/intuibets/internal/adapters/chain"
	"github.com/alejandrodnm/intuibets/internal/adapters/mockchain"
	"github.com/alejandrodnm/intuibets/internal/ports"
)

// openChain construye el ChainReader de la fuente configurada.
// El func devuelto libera la conexión RPC; para el mock no hace nada.
func openChain(ctx context.Context, cfg *config.Config) (ports.ChainReader, func(), error) {
	switch cfg.Chain.Source {
	case config.SourceMock:
		r, err := mockchain.Load(cfg.Chain.FixturePath)
		if err != nil {
			return nil, nil, err
		}
		return r, func() {}, nil
	case config.SourceRPC:
		r, closeFn, err := chain.Dial(ctx, cfg.Chain.RPCURL, chain.Config{
			Contract:   cfg.Chain.Contract,
			Decimals:   cfg.Engine.TokenDecimals,
			RatePerSec: cfg.Chain.RatePerSec,
		})
		if err != nil {
			return nil, nil, err
		}
		return r, closeFn, nil
	}
	return nil, nil, fmt.Errorf("openChain: unknown source %q", cfg.Chain.Source)
}
