package memory_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Caja-api/internal/domain"
	"github.com/jhoicas/Caja-api/internal/domain/entity"
	"github.com/jhoicas/Caja-api/internal/domain/money"
	"github.com/jhoicas/Caja-api/internal/domain/repository"
	"github.com/jhoicas/Caja-api/internal/infrastructure/memory"
)

func seedRegister(t *testing.T, s *memory.Store) *entity.CashRegister {
	t.Helper()
	reg := &entity.CashRegister{
		ID: "caja-1", CompanyID: "org-1", Name: "Caja", Currency: "USD",
		Status: entity.RegisterStatusClosed, Version: 1,
		OpeningBalance: money.Zero("USD"), CurrentBalance: money.Zero("USD"),
	}
	require.NoError(t, s.Registers().Create(context.Background(), reg))
	return reg
}

func TestRunCash_RollbackNoDejaRastro(t *testing.T) {
	s := memory.NewStore()
	seedRegister(t, s)
	ctx := context.Background()
	boom := errors.New("falla")

	err := s.RunCash(ctx, func(regs repository.CashRegisterRepository, sess repository.CashSessionRepository, movs repository.CashMovementRepository) error {
		reg, err := regs.GetForUpdate(ctx, "caja-1")
		require.NoError(t, err)
		reg.Status = entity.RegisterStatusOpen
		require.NoError(t, regs.Update(ctx, reg))
		require.NoError(t, sess.Create(ctx, &entity.CashSession{ID: "s1", RegisterID: "caja-1", Status: entity.SessionStatusOpen}))
		require.NoError(t, movs.Append(ctx, &entity.CashMovement{ID: "m1", RegisterID: "caja-1", SessionID: "s1", Sequence: 1, ReferenceID: "r1"}))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	reg, err := s.Registers().GetByID(ctx, "caja-1")
	require.NoError(t, err)
	assert.Equal(t, entity.RegisterStatusClosed, reg.Status)
	assert.Equal(t, int64(1), reg.Version)

	n, err := s.Sessions().CountByRegister(ctx, "caja-1")
	require.NoError(t, err)
	assert.Zero(t, n)

	exists, err := s.Movements().ExistsReference(ctx, "caja-1", "r1")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestRunCash_LecturasVenEscriturasPropias(t *testing.T) {
	s := memory.NewStore()
	seedRegister(t, s)
	ctx := context.Background()

	err := s.RunCash(ctx, func(_ repository.CashRegisterRepository, sess repository.CashSessionRepository, movs repository.CashMovementRepository) error {
		require.NoError(t, sess.Create(ctx, &entity.CashSession{ID: "s1", RegisterID: "caja-1", Status: entity.SessionStatusOpen}))
		require.NoError(t, movs.Append(ctx, &entity.CashMovement{ID: "m2", SessionID: "s1", RegisterID: "caja-1", Sequence: 2}))
		require.NoError(t, movs.Append(ctx, &entity.CashMovement{ID: "m1", SessionID: "s1", RegisterID: "caja-1", Sequence: 1, ReferenceID: "r"}))

		list, err := movs.ListBySession(ctx, "s1")
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, int64(1), list[0].Sequence)

		err = movs.Append(ctx, &entity.CashMovement{ID: "m3", SessionID: "s1", RegisterID: "caja-1", Sequence: 3, ReferenceID: "r"})
		assert.ErrorIs(t, err, domain.ErrDuplicateMovement)

		err = sess.Create(ctx, &entity.CashSession{ID: "s2", RegisterID: "caja-1", Status: entity.SessionStatusOpen})
		assert.ErrorIs(t, err, domain.ErrAlreadyOpen)
		return nil
	})
	require.NoError(t, err)

	n, err := s.Sessions().CountByRegister(ctx, "caja-1")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRunCash_VersionDesactualizada(t *testing.T) {
	s := memory.NewStore()
	seedRegister(t, s)
	ctx := context.Background()

	err := s.RunCash(ctx, func(regs repository.CashRegisterRepository, _ repository.CashSessionRepository, _ repository.CashMovementRepository) error {
		reg, err := regs.GetForUpdate(ctx, "caja-1")
		require.NoError(t, err)
		reg.Version = 7
		return regs.Update(ctx, reg)
	})
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestRunCash_BloqueoRespetaContexto(t *testing.T) {
	s := memory.NewStore()
	seedRegister(t, s)

	locked := make(chan struct{})
	release := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- s.RunCash(context.Background(), func(regs repository.CashRegisterRepository, _ repository.CashSessionRepository, _ repository.CashMovementRepository) error {
			if _, err := regs.GetForUpdate(context.Background(), "caja-1"); err != nil {
				return err
			}
			close(locked)
			<-release
			return nil
		})
	}()
	<-locked

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err := s.RunCash(ctx, func(regs repository.CashRegisterRepository, _ repository.CashSessionRepository, _ repository.CashMovementRepository) error {
		_, err := regs.GetForUpdate(ctx, "caja-1")
		return err
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	close(release)
	require.NoError(t, <-done)
}

func TestBalanceCache_IgnoraVersionVieja(t *testing.T) {
	c := memory.NewBalanceCache()
	ctx := context.Background()
	require.NoError(t, c.Set(ctx, &entity.CashRegister{ID: "a", Version: 3, CurrentBalance: money.MustParse("3.00", "USD")}))
	require.NoError(t, c.Set(ctx, &entity.CashRegister{ID: "a", Version: 2, CurrentBalance: money.MustParse("2.00", "USD")}))

	got, err := c.Get(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.Version)
}

func TestListOpen_PaginaPorID(t *testing.T) {
	s := memory.NewStore()
	ctx := context.Background()
	for _, id := range []string{"c", "a", "b", "d"} {
		status := entity.RegisterStatusOpen
		if id == "d" {
			status = entity.RegisterStatusClosed
		}
		require.NoError(t, s.Registers().Create(ctx, &entity.CashRegister{
			ID: id, CompanyID: "org-1", Currency: "USD", Status: status, Version: 1,
			OpeningBalance: money.Zero("USD"), CurrentBalance: money.Zero("USD"),
		}))
	}

	first, err := s.Registers().ListOpen(ctx, "", 2)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, "a", first[0].ID)
	assert.Equal(t, "b", first[1].ID)

	rest, err := s.Registers().ListOpen(ctx, first[1].ID, 2)
	require.NoError(t, err)
	require.Len(t, rest, 1)
	assert.Equal(t, "c", rest[0].ID)
}
