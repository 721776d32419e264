package memory

import (
	"context"
	"sync"

	"github.com/jhoicas/Caja-api/internal/application/cashdrawer"
	"github.com/jhoicas/Caja-api/internal/domain/entity"
)

var _ cashdrawer.BalanceCache = (*BalanceCache)(nil)

// BalanceCache es la caché de saldo en proceso, con la misma regla de versión que la de Redis.
type BalanceCache struct {
	mu    sync.RWMutex
	items map[string]entity.CashRegister
}

func NewBalanceCache() *BalanceCache {
	return &BalanceCache{items: make(map[string]entity.CashRegister)}
}

func (c *BalanceCache) Get(_ context.Context, registerID string) (*entity.CashRegister, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	reg, ok := c.items[registerID]
	if !ok {
		return nil, nil
	}
	return &reg, nil
}

func (c *BalanceCache) Set(_ context.Context, reg *entity.CashRegister) error {
	if reg == nil {
		return nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if cur, ok := c.items[reg.ID]; ok && cur.Version >= reg.Version {
		return nil
	}
	c.items[reg.ID] = *reg
	return nil
}

func (c *BalanceCache) Delete(_ context.Context, registerID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.items, registerID)
	return nil
}
