package service

// In-memory repository fakes. DB() returns nil so runTx executes the callback
// directly, without a real transaction.

import (
	"context"
	"sort"
	"sync"
	"time"

	"trebolsoft/internal/model"
	"trebolsoft/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ── MovimientoRepository ──────────────────────────────────────────────────────

// Like the database it stands in for, the fake admits concurrent calls.
type fakeMovimientoRepo struct {
	mu   sync.Mutex
	movs []model.MovimientoCaja
}

func (r *fakeMovimientoRepo) DB() *gorm.DB { return nil }

func (r *fakeMovimientoRepo) CreateTx(_ *gorm.DB, m *model.MovimientoCaja) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	r.movs = append(r.movs, *m)
	return nil
}

func (r *fakeMovimientoRepo) List(_ context.Context, operadorID uuid.UUID, f repository.MovimientoFiltro) ([]model.MovimientoCaja, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var result []model.MovimientoCaja
	for _, m := range r.movs {
		if m.OperadorID != operadorID {
			continue
		}
		if f.Tipo != "" && m.Tipo != f.Tipo {
			continue
		}
		if f.Desde != nil && m.CreatedAt.Before(*f.Desde) {
			continue
		}
		if f.Hasta != nil && m.CreatedAt.After(*f.Hasta) {
			continue
		}
		result = append(result, m)
	}
	return result, nil
}

func (r *fakeMovimientoRepo) ListDesde(ctx context.Context, operadorID uuid.UUID, desde time.Time) ([]model.MovimientoCaja, error) {
	return r.List(ctx, operadorID, repository.MovimientoFiltro{Desde: &desde})
}

func (r *fakeMovimientoRepo) SumPorTipo(_ context.Context, operadorID uuid.UUID, desde time.Time) (map[string]decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sumPorTipo(operadorID, desde), nil
}

func (r *fakeMovimientoRepo) SumPorTipoTx(_ *gorm.DB, operadorID uuid.UUID, desde time.Time) (map[string]decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.sumPorTipo(operadorID, desde), nil
}

func (r *fakeMovimientoRepo) sumPorTipo(operadorID uuid.UUID, desde time.Time) map[string]decimal.Decimal {
	sums := make(map[string]decimal.Decimal)
	for _, m := range r.movs {
		if m.OperadorID != operadorID || m.CreatedAt.Before(desde) {
			continue
		}
		sums[m.Tipo] = sums[m.Tipo].Add(m.Monto)
	}
	return sums
}

func (r *fakeMovimientoRepo) FindUltimoVolado(_ context.Context, clienteID uuid.UUID) (*model.MovimientoCaja, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.movs) - 1; i >= 0; i-- {
		m := r.movs[i]
		if m.Tipo == model.TipoVolado && m.ClienteRefID != nil && *m.ClienteRefID == clienteID {
			return &m, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeMovimientoRepo) SumPagosCliente(_ context.Context, clienteID uuid.UUID, desde time.Time) (decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	total := decimal.Zero
	for _, m := range r.movs {
		if m.Tipo == model.TipoPago && m.ClienteRefID != nil && *m.ClienteRefID == clienteID && !m.CreatedAt.Before(desde) {
			total = total.Add(m.Monto)
		}
	}
	return total, nil
}

func (r *fakeMovimientoRepo) ListVolados(_ context.Context, operadorIDs []uuid.UUID) ([]model.MovimientoCaja, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	permitido := func(id uuid.UUID) bool {
		if operadorIDs == nil {
			return true
		}
		for _, op := range operadorIDs {
			if op == id {
				return true
			}
		}
		return false
	}
	var result []model.MovimientoCaja
	for _, m := range r.movs {
		if m.Tipo == model.TipoVolado && permitido(m.OperadorID) {
			result = append(result, m)
		}
	}
	return result, nil
}

var _ repository.MovimientoRepository = (*fakeMovimientoRepo)(nil)

// ── CierreRepository ──────────────────────────────────────────────────────────

type fakeCierreRepo struct {
	mu      sync.Mutex
	cierres []*model.CierreCaja
}

func (r *fakeCierreRepo) DB() *gorm.DB { return nil }

func (r *fakeCierreRepo) CreateTx(_ *gorm.DB, c *model.CierreCaja) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	clon := *c
	r.cierres = append(r.cierres, &clon)
	return nil
}

func (r *fakeCierreRepo) UpdateTx(_ *gorm.DB, c *model.CierreCaja) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, existente := range r.cierres {
		if existente.ID == c.ID {
			clon := *c
			r.cierres[i] = &clon
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func (r *fakeCierreRepo) FindByID(_ context.Context, id uuid.UUID) (*model.CierreCaja, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, c := range r.cierres {
		if c.ID == id {
			clon := *c
			return &clon, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeCierreRepo) FindAbierto(_ context.Context, operadorID uuid.UUID) (*model.CierreCaja, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findAbierto(operadorID)
}

func (r *fakeCierreRepo) FindAbiertoTx(_ *gorm.DB, operadorID uuid.UUID) (*model.CierreCaja, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findAbierto(operadorID)
}

func (r *fakeCierreRepo) findAbierto(operadorID uuid.UUID) (*model.CierreCaja, error) {
	for _, c := range r.cierres {
		if c.OperadorID == operadorID && c.Estado == "abierta" {
			clon := *c
			return &clon, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeCierreRepo) FindUltimoCerrado(_ context.Context, operadorID uuid.UUID) (*model.CierreCaja, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findUltimoCerrado(operadorID)
}

func (r *fakeCierreRepo) FindUltimoCerradoTx(_ *gorm.DB, operadorID uuid.UUID) (*model.CierreCaja, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.findUltimoCerrado(operadorID)
}

func (r *fakeCierreRepo) findUltimoCerrado(operadorID uuid.UUID) (*model.CierreCaja, error) {
	var ultimo *model.CierreCaja
	for _, c := range r.cierres {
		if c.OperadorID != operadorID || c.Estado != "cerrada" {
			continue
		}
		if ultimo == nil || c.ClosedAt.After(*ultimo.ClosedAt) {
			ultimo = c
		}
	}
	if ultimo == nil {
		return nil, gorm.ErrRecordNotFound
	}
	clon := *ultimo
	return &clon, nil
}

func (r *fakeCierreRepo) ListCerrados(_ context.Context, operadorIDs []uuid.UUID, page, limit int) ([]model.CierreCaja, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	permitido := func(id uuid.UUID) bool {
		if operadorIDs == nil {
			return true
		}
		for _, op := range operadorIDs {
			if op == id {
				return true
			}
		}
		return false
	}
	var all []model.CierreCaja
	for _, c := range r.cierres {
		if c.Estado == "cerrada" && permitido(c.OperadorID) {
			all = append(all, *c)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ClosedAt.After(*all[j].ClosedAt) })
	total := int64(len(all))
	start := (page - 1) * limit
	if start >= len(all) {
		return nil, total, nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

var _ repository.CierreRepository = (*fakeCierreRepo)(nil)

// ── UsuarioRepository ─────────────────────────────────────────────────────────

type fakeUsuarioRepo struct {
	usuarios map[uuid.UUID]*model.Usuario
}

func newFakeUsuarioRepo() *fakeUsuarioRepo {
	return &fakeUsuarioRepo{usuarios: make(map[uuid.UUID]*model.Usuario)}
}

func (r *fakeUsuarioRepo) agregar(rol string, supervisorID *uuid.UUID) uuid.UUID {
	id := uuid.New()
	r.usuarios[id] = &model.Usuario{
		ID: id, Username: "u-" + id.String()[:8], Nombre: "Usuario " + id.String()[:8],
		Rol: rol, SupervisorID: supervisorID, Activo: true,
	}
	return id
}

func (r *fakeUsuarioRepo) Create(_ context.Context, u *model.Usuario) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	r.usuarios[u.ID] = u
	return nil
}

func (r *fakeUsuarioRepo) FindByUsername(_ context.Context, username string) (*model.Usuario, error) {
	for _, u := range r.usuarios {
		if u.Username == username && u.Activo {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *fakeUsuarioRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Usuario, error) {
	u, ok := r.usuarios[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func (r *fakeUsuarioRepo) List(_ context.Context) ([]model.Usuario, error) {
	var result []model.Usuario
	for _, u := range r.usuarios {
		if u.Activo {
			result = append(result, *u)
		}
	}
	return result, nil
}

func (r *fakeUsuarioRepo) ListAll(_ context.Context) ([]model.Usuario, error) {
	var result []model.Usuario
	for _, u := range r.usuarios {
		result = append(result, *u)
	}
	return result, nil
}

func (r *fakeUsuarioRepo) ListSupervisados(_ context.Context, supervisorID uuid.UUID) ([]model.Usuario, error) {
	var result []model.Usuario
	for _, u := range r.usuarios {
		if u.SupervisorID != nil && *u.SupervisorID == supervisorID && u.Activo {
			result = append(result, *u)
		}
	}
	return result, nil
}

func (r *fakeUsuarioRepo) Update(_ context.Context, u *model.Usuario) error {
	r.usuarios[u.ID] = u
	return nil
}

func (r *fakeUsuarioRepo) SoftDelete(_ context.Context, id uuid.UUID) error {
	if u, ok := r.usuarios[id]; ok {
		u.Activo = false
	}
	return nil
}

func (r *fakeUsuarioRepo) Reactivar(_ context.Context, id uuid.UUID) error {
	if u, ok := r.usuarios[id]; ok {
		u.Activo = true
	}
	return nil
}

var _ repository.UsuarioRepository = (*fakeUsuarioRepo)(nil)

// ── ClienteRepository ─────────────────────────────────────────────────────────

type fakeClienteRepo struct {
	clientes map[uuid.UUID]*model.Cliente
}

func newFakeClienteRepo() *fakeClienteRepo {
	return &fakeClienteRepo{clientes: make(map[uuid.UUID]*model.Cliente)}
}

func (r *fakeClienteRepo) agregar() uuid.UUID {
	id := uuid.New()
	r.clientes[id] = &model.Cliente{ID: id, Nombre: "Cliente " + id.String()[:8], Activo: true}
	return id
}

func (r *fakeClienteRepo) Create(_ context.Context, c *model.Cliente) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	r.clientes[c.ID] = c
	return nil
}

func (r *fakeClienteRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Cliente, error) {
	c, ok := r.clientes[id]
	if !ok {
		return nil, gorm.ErrRecordNotFound
	}
	return c, nil
}

func (r *fakeClienteRepo) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	c, ok := r.clientes[id]
	return ok && c.Activo, nil
}

func (r *fakeClienteRepo) List(_ context.Context, zona string, incluirInactivos bool) ([]model.Cliente, error) {
	var result []model.Cliente
	for _, c := range r.clientes {
		if !incluirInactivos && !c.Activo {
			continue
		}
		if zona != "" && (c.Zona == nil || *c.Zona != zona) {
			continue
		}
		result = append(result, *c)
	}
	return result, nil
}

func (r *fakeClienteRepo) Update(_ context.Context, c *model.Cliente) error {
	r.clientes[c.ID] = c
	return nil
}

func (r *fakeClienteRepo) SoftDelete(_ context.Context, id uuid.UUID) error {
	if c, ok := r.clientes[id]; ok {
		c.Activo = false
	}
	return nil
}

var _ repository.ClienteRepository = (*fakeClienteRepo)(nil)

// ── Entorno de prueba ─────────────────────────────────────────────────────────

type entorno struct {
	movimientos *fakeMovimientoRepo
	cierres     *fakeCierreRepo
	usuarios    *fakeUsuarioRepo
	clientes    *fakeClienteRepo

	caja    CajaService
	cierre  CierreService
	volados VoladoService

	admin      Caller
	supervisor Caller
	cobrador   Caller
}

func nuevoEntorno() *entorno {
	e := &entorno{
		movimientos: &fakeMovimientoRepo{},
		cierres:     &fakeCierreRepo{},
		usuarios:    newFakeUsuarioRepo(),
		clientes:    newFakeClienteRepo(),
	}

	adminID := e.usuarios.agregar(model.RolAdministrador, nil)
	supervisorID := e.usuarios.agregar(model.RolSupervisor, nil)
	cobradorID := e.usuarios.agregar(model.RolCobrador, &supervisorID)

	e.admin = Caller{ID: adminID, Rol: model.RolAdministrador}
	e.supervisor = Caller{ID: supervisorID, Rol: model.RolSupervisor}
	e.cobrador = Caller{ID: cobradorID, Rol: model.RolCobrador}

	proyector := NewProyector(e.movimientos, e.cierres)
	e.caja = NewCajaService(e.movimientos, e.cierres, e.usuarios, proyector)
	e.cierre = NewCierreService(e.caja, e.movimientos, e.cierres, proyector, nil)
	e.volados = NewVoladoService(e.caja, e.movimientos, e.clientes)
	return e
}

func d(valor float64) decimal.Decimal { return decimal.NewFromFloat(valor) }
