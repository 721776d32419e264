package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/jhoicas/Caja-api/internal/application/cashdrawer"
	"github.com/jhoicas/Caja-api/internal/domain/entity"
)

var _ cashdrawer.BalanceCache = (*RedisBalanceCache)(nil)

const keyPrefix = "caja:saldo:"

// setIfNewer escribe el hash {v, d} solo si la versión es mayor a la guardada.
// Un lector lento nunca pisa un estado más nuevo.
var setIfNewer = redis.NewScript(`
local cur = redis.call('HGET', KEYS[1], 'v')
if cur and tonumber(cur) >= tonumber(ARGV[1]) then
  return 0
end
redis.call('HSET', KEYS[1], 'v', ARGV[1], 'd', ARGV[2])
if tonumber(ARGV[3]) > 0 then
  redis.call('PEXPIRE', KEYS[1], ARGV[3])
end
return 1
`)

// RedisBalanceCache guarda el último estado confirmado de cada caja en un hash de Redis.
type RedisBalanceCache struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisBalanceCache crea el cliente. ttl <= 0 deja las entradas sin vencimiento.
func NewRedisBalanceCache(addr, password string, db int, ttl time.Duration) *RedisBalanceCache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	return &RedisBalanceCache{client: client, ttl: ttl}
}

func (c *RedisBalanceCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisBalanceCache) Close() error {
	return c.client.Close()
}

func (c *RedisBalanceCache) Get(ctx context.Context, registerID string) (*entity.CashRegister, error) {
	val, err := c.client.HGet(ctx, keyPrefix+registerID, "d").Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var reg entity.CashRegister
	if err := json.Unmarshal([]byte(val), &reg); err != nil {
		return nil, err
	}
	return &reg, nil
}

func (c *RedisBalanceCache) Set(ctx context.Context, reg *entity.CashRegister) error {
	if reg == nil {
		return nil
	}
	payload, err := json.Marshal(reg)
	if err != nil {
		return err
	}
	keys := []string{keyPrefix + reg.ID}
	return setIfNewer.Run(ctx, c.client, keys,
		strconv.FormatInt(reg.Version, 10), payload, c.ttl.Milliseconds()).Err()
}

func (c *RedisBalanceCache) Delete(ctx context.Context, registerID string) error {
	return c.client.Del(ctx, keyPrefix+registerID).Err()
}
