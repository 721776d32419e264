package cashdrawer

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/jhoicas/Caja-api/internal/domain/entity"
)

// publishBalance deja en caché el estado confirmado de la caja. Si Set falla se borra la entrada
// para que la consulta de saldo vuelva a leer del almacenamiento en lugar de servir un saldo viejo.
func publishBalance(ctx context.Context, cache BalanceCache, log zerolog.Logger, reg *entity.CashRegister) {
	if cache == nil || reg == nil {
		return
	}
	err := cache.Set(ctx, reg)
	if err == nil {
		return
	}
	log.Warn().Err(err).Str("register_id", reg.ID).Msg("no se pudo actualizar la caché de saldo, se invalida")
	if derr := cache.Delete(ctx, reg.ID); derr != nil {
		log.Error().Err(derr).Str("register_id", reg.ID).Msg("no se pudo invalidar la caché de saldo")
	}
}

// checkCachedBalance compara la entrada en caché con el estado guardado de la caja. Si difiere la
// borra (no la reescribe: un escritor posterior puede haber publicado una versión más nueva) y
// devuelve true. Una caché caída o vacía no cuenta como desactualizada.
func checkCachedBalance(ctx context.Context, cache BalanceCache, log zerolog.Logger, reg *entity.CashRegister) bool {
	if cache == nil || reg == nil {
		return false
	}
	cached, err := cache.Get(ctx, reg.ID)
	if err != nil {
		log.Debug().Err(err).Str("register_id", reg.ID).Msg("caché de saldo no disponible")
		return false
	}
	if cached == nil {
		return false
	}
	switch {
	case cached.Version > reg.Version:
		// publicada por un escritor que confirmó después de esta lectura
		return false
	case cached.Version == reg.Version && cached.CurrentBalance.Equal(reg.CurrentBalance) && cached.Status == reg.Status:
		return false
	}
	log.Warn().
		Str("register_id", reg.ID).
		Int64("cached_version", cached.Version).
		Int64("version", reg.Version).
		Str("cached", cached.CurrentBalance.String()).
		Str("stored", reg.CurrentBalance.String()).
		Msg("caché de saldo desactualizada, se invalida")
	if err := cache.Delete(ctx, reg.ID); err != nil {
		log.Error().Err(err).Str("register_id", reg.ID).Msg("no se pudo invalidar la caché de saldo")
	}
	return true
}
