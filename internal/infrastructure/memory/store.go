// Package memory implementa los repositorios de caja en memoria para desarrollo y pruebas.
// Respeta la misma semántica transaccional que Postgres: bloqueo por caja, escrituras
// preparadas que solo se ven al confirmar y nada visible tras un Rollback o una cancelación.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/jhoicas/Caja-api/internal/application/cashdrawer"
	"github.com/jhoicas/Caja-api/internal/domain"
	"github.com/jhoicas/Caja-api/internal/domain/entity"
	"github.com/jhoicas/Caja-api/internal/domain/repository"
)

var _ cashdrawer.TxRunner = (*Store)(nil)

// Store guarda cajas, sesiones y movimientos confirmados.
type Store struct {
	mu        sync.RWMutex
	registers map[string]*entity.CashRegister
	sessions  map[string]*entity.CashSession
	movements map[string][]*entity.CashMovement // por sesión, en orden de secuencia
	refs      map[string]struct{}               // registerID + "/" + referenceID

	locksMu sync.Mutex
	locks   map[string]chan struct{} // una ficha por caja: el equivalente a FOR UPDATE
}

// NewStore crea un store vacío.
func NewStore() *Store {
	return &Store{
		registers: make(map[string]*entity.CashRegister),
		sessions:  make(map[string]*entity.CashSession),
		movements: make(map[string][]*entity.CashMovement),
		refs:      make(map[string]struct{}),
		locks:     make(map[string]chan struct{}),
	}
}

// Registers devuelve el repositorio de cajas fuera de transacción.
func (s *Store) Registers() repository.CashRegisterRepository { return &registerRepo{s: s} }

// Sessions devuelve el repositorio de sesiones fuera de transacción.
func (s *Store) Sessions() repository.CashSessionRepository { return &sessionRepo{s: s} }

// Movements devuelve el libro fuera de transacción.
func (s *Store) Movements() repository.CashMovementRepository { return &movementRepo{s: s} }

// RunCash ejecuta fn con repositorios transaccionales. Las escrituras se aplican de una vez al confirmar.
func (s *Store) RunCash(ctx context.Context, fn func(
	registerRepo repository.CashRegisterRepository,
	sessionRepo repository.CashSessionRepository,
	movementRepo repository.CashMovementRepository,
) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	t := newTx(s)
	defer t.release()

	if err := fn(&txRegisterRepo{t: t}, &txSessionRepo{t: t}, &txMovementRepo{t: t}); err != nil {
		return err
	}
	// el plazo vencido aborta antes de confirmar
	if err := ctx.Err(); err != nil {
		return err
	}
	return t.commit()
}

func (s *Store) lockFor(registerID string) chan struct{} {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	ch, ok := s.locks[registerID]
	if !ok {
		ch = make(chan struct{}, 1)
		s.locks[registerID] = ch
	}
	return ch
}

func refKey(registerID, referenceID string) string { return registerID + "/" + referenceID }

// ─── tx ──────────────────────────────────────────────────────────────────────

type tx struct {
	s    *Store
	held map[string]chan struct{}

	registers   map[string]*entity.CashRegister // creadas o actualizadas
	deleted     map[string]bool
	sessions    map[string]*entity.CashSession
	newSessions []string
	movements   []*entity.CashMovement
	refs        map[string]struct{}
}

func newTx(s *Store) *tx {
	return &tx{
		s:         s,
		held:      make(map[string]chan struct{}),
		registers: make(map[string]*entity.CashRegister),
		deleted:   make(map[string]bool),
		sessions:  make(map[string]*entity.CashSession),
		refs:      make(map[string]struct{}),
	}
}

func (t *tx) lock(ctx context.Context, registerID string) error {
	if _, ok := t.held[registerID]; ok {
		return nil
	}
	ch := t.s.lockFor(registerID)
	select {
	case ch <- struct{}{}:
		t.held[registerID] = ch
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (t *tx) release() {
	for id, ch := range t.held {
		<-ch
		delete(t.held, id)
	}
}

// register devuelve la vista de la caja dentro de la transacción (sin copiar).
func (t *tx) register(id string) *entity.CashRegister {
	if t.deleted[id] {
		return nil
	}
	if r, ok := t.registers[id]; ok {
		return r
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	return t.s.registers[id]
}

func (t *tx) session(id string) *entity.CashSession {
	if s, ok := t.sessions[id]; ok {
		return s
	}
	t.s.mu.RLock()
	defer t.s.mu.RUnlock()
	return t.s.sessions[id]
}

func (t *tx) commit() error {
	s := t.s
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, r := range t.registers {
		s.registers[id] = r
	}
	for id := range t.deleted {
		delete(s.registers, id)
	}
	for id, sess := range t.sessions {
		s.sessions[id] = sess
	}
	for _, m := range t.movements {
		s.movements[m.SessionID] = append(s.movements[m.SessionID], m)
	}
	for k := range t.refs {
		s.refs[k] = struct{}{}
	}
	return nil
}

// ─── repos transaccionales ───────────────────────────────────────────────────

type txRegisterRepo struct{ t *tx }

func (r *txRegisterRepo) Create(_ context.Context, reg *entity.CashRegister) error {
	if r.t.register(reg.ID) != nil {
		return fmt.Errorf("caja %s: %w", reg.ID, domain.ErrConflict)
	}
	cp := *reg
	r.t.registers[reg.ID] = &cp
	delete(r.t.deleted, reg.ID)
	return nil
}

func (r *txRegisterRepo) GetByID(_ context.Context, id string) (*entity.CashRegister, error) {
	return cloneRegister(r.t.register(id)), nil
}

func (r *txRegisterRepo) GetForUpdate(ctx context.Context, id string) (*entity.CashRegister, error) {
	if err := r.t.lock(ctx, id); err != nil {
		return nil, err
	}
	return cloneRegister(r.t.register(id)), nil
}

func (r *txRegisterRepo) Update(_ context.Context, reg *entity.CashRegister) error {
	cur := r.t.register(reg.ID)
	if cur == nil {
		return domain.ErrNotFound
	}
	if cur.Version != reg.Version {
		return fmt.Errorf("caja %s versión %d != %d: %w", reg.ID, reg.Version, cur.Version, domain.ErrConflict)
	}
	reg.Version++
	cp := *reg
	r.t.registers[reg.ID] = &cp
	return nil
}

func (r *txRegisterRepo) ListByCompany(ctx context.Context, companyID, branchID string, limit, offset int) ([]*entity.CashRegister, error) {
	return (&registerRepo{s: r.t.s}).ListByCompany(ctx, companyID, branchID, limit, offset)
}

func (r *txRegisterRepo) ListOpen(ctx context.Context, afterID string, limit int) ([]*entity.CashRegister, error) {
	return (&registerRepo{s: r.t.s}).ListOpen(ctx, afterID, limit)
}

func (r *txRegisterRepo) Delete(_ context.Context, id string) error {
	if r.t.register(id) == nil {
		return domain.ErrNotFound
	}
	delete(r.t.registers, id)
	r.t.deleted[id] = true
	return nil
}

type txSessionRepo struct{ t *tx }

func (r *txSessionRepo) Create(_ context.Context, sess *entity.CashSession) error {
	if open := r.openSession(sess.RegisterID); open != nil {
		return &domain.AlreadyOpenError{RegisterID: sess.RegisterID, SessionID: open.ID, Since: open.OpenedAt, By: open.OpenedBy}
	}
	cp := *sess
	r.t.sessions[sess.ID] = &cp
	r.t.newSessions = append(r.t.newSessions, sess.ID)
	return nil
}

func (r *txSessionRepo) openSession(registerID string) *entity.CashSession {
	for _, sess := range r.t.sessions {
		if sess.RegisterID == registerID && sess.IsOpen() {
			return sess
		}
	}
	r.t.s.mu.RLock()
	defer r.t.s.mu.RUnlock()
	for id, sess := range r.t.s.sessions {
		if _, staged := r.t.sessions[id]; staged {
			continue
		}
		if sess.RegisterID == registerID && sess.IsOpen() {
			return sess
		}
	}
	return nil
}

func (r *txSessionRepo) GetByID(_ context.Context, id string) (*entity.CashSession, error) {
	return cloneSession(r.t.session(id)), nil
}

func (r *txSessionRepo) Seal(_ context.Context, sess *entity.CashSession) error {
	cur := r.t.session(sess.ID)
	if cur == nil {
		return domain.ErrNotFound
	}
	if !cur.IsOpen() {
		return fmt.Errorf("sesión %s ya sellada: %w", sess.ID, domain.ErrConflict)
	}
	cp := *sess
	r.t.sessions[sess.ID] = &cp
	return nil
}

func (r *txSessionRepo) ListByRegister(ctx context.Context, registerID string, limit, offset int) ([]*entity.CashSession, error) {
	return (&sessionRepo{s: r.t.s}).ListByRegister(ctx, registerID, limit, offset)
}

func (r *txSessionRepo) CountByRegister(ctx context.Context, registerID string) (int, error) {
	n, err := (&sessionRepo{s: r.t.s}).CountByRegister(ctx, registerID)
	if err != nil {
		return 0, err
	}
	for _, id := range r.t.newSessions {
		if r.t.sessions[id].RegisterID == registerID {
			n++
		}
	}
	return n, nil
}

type txMovementRepo struct{ t *tx }

func (r *txMovementRepo) Append(ctx context.Context, m *entity.CashMovement) error {
	if m.ReferenceID != "" {
		exists, err := r.ExistsReference(ctx, m.RegisterID, m.ReferenceID)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("referencia %s: %w", m.ReferenceID, domain.ErrDuplicateMovement)
		}
		r.t.refs[refKey(m.RegisterID, m.ReferenceID)] = struct{}{}
	}
	cp := *m
	r.t.movements = append(r.t.movements, &cp)
	return nil
}

func (r *txMovementRepo) ListBySession(ctx context.Context, sessionID string) ([]*entity.CashMovement, error) {
	out, err := (&movementRepo{s: r.t.s}).ListBySession(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	for _, m := range r.t.movements {
		if m.SessionID == sessionID {
			cp := *m
			out = append(out, &cp)
		}
	}
	sortBySequence(out)
	return out, nil
}

func (r *txMovementRepo) ExistsReference(ctx context.Context, registerID, referenceID string) (bool, error) {
	if _, ok := r.t.refs[refKey(registerID, referenceID)]; ok {
		return true, nil
	}
	return (&movementRepo{s: r.t.s}).ExistsReference(ctx, registerID, referenceID)
}

// ─── repos fuera de transacción ──────────────────────────────────────────────

type registerRepo struct{ s *Store }

func (r *registerRepo) Create(_ context.Context, reg *entity.CashRegister) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.registers[reg.ID]; ok {
		return fmt.Errorf("caja %s: %w", reg.ID, domain.ErrConflict)
	}
	cp := *reg
	r.s.registers[reg.ID] = &cp
	return nil
}

func (r *registerRepo) GetByID(_ context.Context, id string) (*entity.CashRegister, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return cloneRegister(r.s.registers[id]), nil
}

// GetForUpdate fuera de transacción no bloquea: el bloqueo vive lo que vive la transacción.
func (r *registerRepo) GetForUpdate(ctx context.Context, id string) (*entity.CashRegister, error) {
	return r.GetByID(ctx, id)
}

func (r *registerRepo) Update(_ context.Context, reg *entity.CashRegister) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.registers[reg.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if cur.Version != reg.Version {
		return fmt.Errorf("caja %s: %w", reg.ID, domain.ErrConflict)
	}
	reg.Version++
	cp := *reg
	r.s.registers[reg.ID] = &cp
	return nil
}

func (r *registerRepo) ListByCompany(_ context.Context, companyID, branchID string, limit, offset int) ([]*entity.CashRegister, error) {
	r.s.mu.RLock()
	var out []*entity.CashRegister
	for _, reg := range r.s.registers {
		if reg.CompanyID != companyID {
			continue
		}
		if branchID != "" && reg.BranchID != "" && reg.BranchID != branchID {
			continue
		}
		out = append(out, cloneRegister(reg))
	}
	r.s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return page(out, limit, offset), nil
}

func (r *registerRepo) ListOpen(_ context.Context, afterID string, limit int) ([]*entity.CashRegister, error) {
	r.s.mu.RLock()
	var out []*entity.CashRegister
	for _, reg := range r.s.registers {
		if reg.IsOpen() && reg.ID > afterID {
			out = append(out, cloneRegister(reg))
		}
	}
	r.s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return page(out, limit, 0), nil
}

func (r *registerRepo) Delete(_ context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.registers[id]; !ok {
		return domain.ErrNotFound
	}
	delete(r.s.registers, id)
	return nil
}

type sessionRepo struct{ s *Store }

// Create fuera de transacción no tiene la caja bloqueada; la exclusividad se verifica bajo el mutex.
func (r *sessionRepo) Create(_ context.Context, sess *entity.CashSession) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, cur := range r.s.sessions {
		if cur.RegisterID == sess.RegisterID && cur.IsOpen() {
			return &domain.AlreadyOpenError{RegisterID: cur.RegisterID, SessionID: cur.ID, Since: cur.OpenedAt, By: cur.OpenedBy}
		}
	}
	cp := *sess
	r.s.sessions[sess.ID] = &cp
	return nil
}

func (r *sessionRepo) GetByID(_ context.Context, id string) (*entity.CashSession, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return cloneSession(r.s.sessions[id]), nil
}

func (r *sessionRepo) Seal(_ context.Context, sess *entity.CashSession) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	cur, ok := r.s.sessions[sess.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if !cur.IsOpen() {
		return fmt.Errorf("sesión %s ya sellada: %w", sess.ID, domain.ErrConflict)
	}
	cp := *sess
	r.s.sessions[sess.ID] = &cp
	return nil
}

func (r *sessionRepo) ListByRegister(_ context.Context, registerID string, limit, offset int) ([]*entity.CashSession, error) {
	r.s.mu.RLock()
	var out []*entity.CashSession
	for _, sess := range r.s.sessions {
		if sess.RegisterID == registerID {
			out = append(out, cloneSession(sess))
		}
	}
	r.s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].OpenedAt.Equal(out[j].OpenedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].OpenedAt.After(out[j].OpenedAt)
	})
	return page(out, limit, offset), nil
}

func (r *sessionRepo) CountByRegister(_ context.Context, registerID string) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	n := 0
	for _, sess := range r.s.sessions {
		if sess.RegisterID == registerID {
			n++
		}
	}
	return n, nil
}

type movementRepo struct{ s *Store }

func (r *movementRepo) Append(_ context.Context, m *entity.CashMovement) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if m.ReferenceID != "" {
		k := refKey(m.RegisterID, m.ReferenceID)
		if _, ok := r.s.refs[k]; ok {
			return fmt.Errorf("referencia %s: %w", m.ReferenceID, domain.ErrDuplicateMovement)
		}
		r.s.refs[k] = struct{}{}
	}
	cp := *m
	r.s.movements[m.SessionID] = append(r.s.movements[m.SessionID], &cp)
	return nil
}

func (r *movementRepo) ListBySession(_ context.Context, sessionID string) ([]*entity.CashMovement, error) {
	r.s.mu.RLock()
	src := r.s.movements[sessionID]
	out := make([]*entity.CashMovement, 0, len(src))
	for _, m := range src {
		cp := *m
		out = append(out, &cp)
	}
	r.s.mu.RUnlock()
	sortBySequence(out)
	return out, nil
}

func (r *movementRepo) ExistsReference(_ context.Context, registerID, referenceID string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	_, ok := r.s.refs[refKey(registerID, referenceID)]
	return ok, nil
}

// ─── helpers ─────────────────────────────────────────────────────────────────

func cloneRegister(r *entity.CashRegister) *entity.CashRegister {
	if r == nil {
		return nil
	}
	cp := *r
	return &cp
}

func cloneSession(s *entity.CashSession) *entity.CashSession {
	if s == nil {
		return nil
	}
	cp := *s
	return &cp
}

func sortBySequence(ms []*entity.CashMovement) {
	sort.SliceStable(ms, func(i, j int) bool { return ms[i].Sequence < ms[j].Sequence })
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
