// Package cache implementa la caché de saldo de las cajas.
package cache

import (
	"context"

	"github.com/jhoicas/Caja-api/internal/application/cashdrawer"
	"github.com/jhoicas/Caja-api/internal/domain/entity"
)

var _ cashdrawer.BalanceCache = NoopBalanceCache{}

// NoopBalanceCache se usa cuando no hay Redis configurado: toda lectura es un fallo de caché.
type NoopBalanceCache struct{}

func (NoopBalanceCache) Get(_ context.Context, _ string) (*entity.CashRegister, error) {
	return nil, nil
}

func (NoopBalanceCache) Set(_ context.Context, _ *entity.CashRegister) error { return nil }

func (NoopBalanceCache) Delete(_ context.Context, _ string) error { return nil }
