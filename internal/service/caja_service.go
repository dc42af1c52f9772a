package service

import (
	"context"
	"errors"
	"time"

	"trebolsoft/internal/model"
	"trebolsoft/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Caller is the authenticated identity on whose behalf an operation runs.
// Built by the HTTP layer from JWT claims; the services trust it.
type Caller struct {
	ID  uuid.UUID
	Rol string
}

// MovimientoDraft is an uncommitted movement. ID and CreatedAt are always
// server-assigned at commit time.
type MovimientoDraft struct {
	OperadorID   uuid.UUID
	Tipo         string
	Monto        decimal.Decimal
	Descripcion  string
	ClienteRefID *uuid.UUID
}

// CajaService is the single entry point for every balance read and write.
// The cierre and volado services are specialized callers of this one; the HTTP
// layer never touches the stores directly.
type CajaService interface {
	Saldo(ctx context.Context, caller Caller, operadorID uuid.UUID) (*Proyeccion, error)
	Movimientos(ctx context.Context, caller Caller, operadorID uuid.UUID, f repository.MovimientoFiltro) ([]model.MovimientoCaja, error)
	RegistrarMovimiento(ctx context.Context, caller Caller, draft MovimientoDraft) (*model.MovimientoCaja, error)
	// Transferir posts the two legs atomically: transferencia (out) on `de`,
	// ingreso (in) on `a`, sharing a correlacion id. Both commit or neither.
	Transferir(ctx context.Context, caller Caller, de, a uuid.UUID, monto decimal.Decimal, descripcion string) ([]model.MovimientoCaja, error)

	// Intra-package surface for the cierre and volado services.
	puedeVer(ctx context.Context, caller Caller, operadorID uuid.UUID) error
	// visibles returns the operator ids the caller may see; nil means all.
	visibles(ctx context.Context, caller Caller) ([]uuid.UUID, error)
	bloquear(operadorID uuid.UUID) func()
	asegurarPeriodoTx(tx *gorm.DB, operadorID uuid.UUID, ahora time.Time) (*model.CierreCaja, error)
}

type cajaService struct {
	movimientos repository.MovimientoRepository
	cierres     repository.CierreRepository
	usuarios    repository.UsuarioRepository
	proyector   *Proyector
	locks       *operadorLocks
	// Client-keyed locks for the recovery cap check; always taken before
	// (never while holding) an operator lock.
	clienteLocks *operadorLocks
}

func NewCajaService(
	movimientos repository.MovimientoRepository,
	cierres repository.CierreRepository,
	usuarios repository.UsuarioRepository,
	proyector *Proyector,
) CajaService {
	return &cajaService{
		movimientos:  movimientos,
		cierres:      cierres,
		usuarios:     usuarios,
		proyector:    proyector,
		locks:        newOperadorLocks(),
		clienteLocks: newOperadorLocks(),
	}
}

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

// ── Saldo ─────────────────────────────────────────────────────────────────────

func (s *cajaService) Saldo(ctx context.Context, caller Caller, operadorID uuid.UUID) (*Proyeccion, error) {
	if err := s.puedeVer(ctx, caller, operadorID); err != nil {
		return nil, err
	}
	return s.proyector.Proyectar(ctx, operadorID)
}

// ── Movimientos ───────────────────────────────────────────────────────────────

func (s *cajaService) Movimientos(ctx context.Context, caller Caller, operadorID uuid.UUID, f repository.MovimientoFiltro) ([]model.MovimientoCaja, error) {
	if err := s.puedeVer(ctx, caller, operadorID); err != nil {
		return nil, err
	}
	return s.movimientos.List(ctx, operadorID, f)
}

// ── RegistrarMovimiento ───────────────────────────────────────────────────────
// Movements are immutable: no Update/Delete anywhere. Corrections are posted
// as new, sign-inverting movements.

func (s *cajaService) RegistrarMovimiento(ctx context.Context, caller Caller, draft MovimientoDraft) (*model.MovimientoCaja, error) {
	if signo, ok := model.SignoDe(draft.Tipo); !ok || signo == 0 {
		return nil, ErrTipoInvalido
	}
	if !draft.Monto.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if err := s.resolverOperador(ctx, draft.OperadorID); err != nil {
		return nil, err
	}
	if err := s.autorizarRegistro(ctx, caller, draft); err != nil {
		return nil, err
	}

	// A pago referencing a written-off client is a recovery no matter which
	// entry path posted it; the cap is enforced here so none can overshoot.
	if draft.Tipo == model.TipoPago && draft.ClienteRefID != nil {
		soltar := s.clienteLocks.lock(*draft.ClienteRefID)
		defer soltar()
		if err := s.validarRecuperacion(ctx, *draft.ClienteRefID, draft.Monto); err != nil {
			return nil, err
		}
	}

	desbloquear := s.bloquear(draft.OperadorID)
	defer desbloquear()

	ahora := time.Now()
	mov := &model.MovimientoCaja{
		OperadorID:   draft.OperadorID,
		Tipo:         draft.Tipo,
		Monto:        draft.Monto,
		Descripcion:  draft.Descripcion,
		CreadoPor:    caller.ID,
		ClienteRefID: draft.ClienteRefID,
		CreatedAt:    ahora,
	}
	err := runTx(ctx, s.movimientos.DB(), func(tx *gorm.DB) error {
		if _, err := s.asegurarPeriodoTx(tx, draft.OperadorID, ahora); err != nil {
			return err
		}
		return s.movimientos.CreateTx(tx, mov)
	})
	if err != nil {
		return nil, err
	}
	return mov, nil
}

// ── Transferir ────────────────────────────────────────────────────────────────

func (s *cajaService) Transferir(ctx context.Context, caller Caller, de, a uuid.UUID, monto decimal.Decimal, descripcion string) ([]model.MovimientoCaja, error) {
	if !monto.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if de == a {
		return nil, ErrTipoInvalido
	}
	if err := s.resolverOperador(ctx, de); err != nil {
		return nil, err
	}
	if err := s.resolverOperador(ctx, a); err != nil {
		return nil, err
	}
	if err := s.autorizarTransferencia(ctx, caller, de, a); err != nil {
		return nil, err
	}

	// Both ends locked in ascending UUID order — no deadlock with a concurrent
	// transfer in the opposite direction.
	desbloquear := s.locks.lockPair(de, a)
	defer desbloquear()

	ahora := time.Now()
	correlacion := uuid.New()
	salida := &model.MovimientoCaja{
		OperadorID:    de,
		Tipo:          model.TipoTransferencia,
		Monto:         monto,
		Descripcion:   descripcion,
		CreadoPor:     caller.ID,
		CorrelacionID: &correlacion,
		CreatedAt:     ahora,
	}
	entrada := &model.MovimientoCaja{
		OperadorID:    a,
		Tipo:          model.TipoIngreso,
		Monto:         monto,
		Descripcion:   descripcion,
		CreadoPor:     caller.ID,
		CorrelacionID: &correlacion,
		CreatedAt:     ahora,
	}
	err := runTx(ctx, s.movimientos.DB(), func(tx *gorm.DB) error {
		if _, err := s.asegurarPeriodoTx(tx, de, ahora); err != nil {
			return err
		}
		if _, err := s.asegurarPeriodoTx(tx, a, ahora); err != nil {
			return err
		}
		if err := s.movimientos.CreateTx(tx, salida); err != nil {
			return err
		}
		return s.movimientos.CreateTx(tx, entrada)
	})
	if err != nil {
		return nil, err
	}
	return []model.MovimientoCaja{*salida, *entrada}, nil
}

// ── Periodo ───────────────────────────────────────────────────────────────────

// asegurarPeriodoTx returns the operator's open period, creating it lazily on
// the first movement (saldo inicial seeded from the last sealed cierre). Fails
// with ErrPeriodClosed when `ahora` does not fall strictly after the latest
// seal — a backdated or racing write can never land inside a sealed period.
func (s *cajaService) asegurarPeriodoTx(tx *gorm.DB, operadorID uuid.UUID, ahora time.Time) (*model.CierreCaja, error) {
	periodo, err := s.cierres.FindAbiertoTx(tx, operadorID)
	if err == nil {
		// Clock anomaly guard: never admit a write dated before the period
		// opened (== at or before the previous seal).
		if ahora.Before(periodo.OpenedAt) {
			return nil, ErrPeriodClosed
		}
		// The opening instant of a seeded period is the previous seal's
		// closed_at; it belongs to that seal and its marker, never to a
		// movement. First periods have no seal and admit their own instant.
		if ahora.Equal(periodo.OpenedAt) {
			ultimo, uerr := s.cierres.FindUltimoCerradoTx(tx, operadorID)
			switch {
			case uerr == nil:
				if !ultimo.ClosedAt.Before(periodo.OpenedAt) {
					return nil, ErrPeriodClosed
				}
			case !errors.Is(uerr, gorm.ErrRecordNotFound):
				return nil, uerr
			}
		}
		return periodo, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	inicial := decimal.Zero
	apertura := ahora
	ultimo, err := s.cierres.FindUltimoCerradoTx(tx, operadorID)
	if err == nil {
		if !ahora.After(*ultimo.ClosedAt) {
			return nil, ErrPeriodClosed
		}
		inicial = *ultimo.SaldoFinal
		apertura = *ultimo.ClosedAt
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	periodo = &model.CierreCaja{
		OperadorID:   operadorID,
		Estado:       "abierta",
		SaldoInicial: inicial,
		OpenedAt:     apertura,
	}
	if err := s.cierres.CreateTx(tx, periodo); err != nil {
		return nil, err
	}
	return periodo, nil
}

func (s *cajaService) bloquear(operadorID uuid.UUID) func() {
	return s.locks.lock(operadorID)
}

// ── Autorización ──────────────────────────────────────────────────────────────
// Single predicate per operation, parameterized by (caller, target). The UI
// never re-derives these rules.

func (s *cajaService) puedeVer(ctx context.Context, caller Caller, operadorID uuid.UUID) error {
	if caller.Rol == model.RolAdministrador || caller.ID == operadorID {
		return nil
	}
	if caller.Rol == model.RolSupervisor {
		ok, err := s.supervisa(ctx, caller.ID, operadorID)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
	}
	return ErrForbidden
}

func (s *cajaService) visibles(ctx context.Context, caller Caller) ([]uuid.UUID, error) {
	switch caller.Rol {
	case model.RolAdministrador:
		return nil, nil
	case model.RolSupervisor:
		equipo, err := s.usuarios.ListSupervisados(ctx, caller.ID)
		if err != nil {
			return nil, err
		}
		ids := make([]uuid.UUID, 0, len(equipo)+1)
		ids = append(ids, caller.ID)
		for _, u := range equipo {
			ids = append(ids, u.ID)
		}
		return ids, nil
	default:
		return []uuid.UUID{caller.ID}, nil
	}
}

func (s *cajaService) autorizarRegistro(ctx context.Context, caller Caller, draft MovimientoDraft) error {
	switch caller.Rol {
	case model.RolAdministrador:
		return nil

	case model.RolSupervisor:
		propio := draft.OperadorID == caller.ID
		switch draft.Tipo {
		case model.TipoIngreso, model.TipoGasto, model.TipoRetiro:
			if propio {
				return nil
			}
		case model.TipoVolado, model.TipoPago:
			// Write-offs and their recoveries reach here through VoladoService;
			// a supervisor manages them for the whole team.
			if draft.Tipo == model.TipoPago && draft.ClienteRefID == nil {
				return ErrForbidden
			}
			if propio {
				return nil
			}
			ok, err := s.supervisa(ctx, caller.ID, draft.OperadorID)
			if err != nil {
				return err
			}
			if ok {
				return nil
			}
		}
		return ErrForbidden

	case model.RolCobrador:
		if draft.OperadorID != caller.ID {
			return ErrForbidden
		}
		switch draft.Tipo {
		case model.TipoIngreso, model.TipoGasto, model.TipoRetiro:
			return nil
		case model.TipoPago:
			// Recovery of a volado collected in the field.
			if draft.ClienteRefID != nil {
				return nil
			}
		}
		return ErrForbidden
	}
	return ErrForbidden
}

func (s *cajaService) autorizarTransferencia(ctx context.Context, caller Caller, de, a uuid.UUID) error {
	switch caller.Rol {
	case model.RolAdministrador:
		return nil
	case model.RolSupervisor:
		okDe, err := s.supervisa(ctx, caller.ID, de)
		if err != nil {
			return err
		}
		okA, err := s.supervisa(ctx, caller.ID, a)
		if err != nil {
			return err
		}
		if okDe && okA {
			return nil
		}
	}
	return ErrForbidden
}

func (s *cajaService) supervisa(ctx context.Context, supervisorID, operadorID uuid.UUID) (bool, error) {
	equipo, err := s.usuarios.ListSupervisados(ctx, supervisorID)
	if err != nil {
		return false, err
	}
	for _, u := range equipo {
		if u.ID == operadorID {
			return true, nil
		}
	}
	return false, nil
}

// validarRecuperacion caps client-referenced pagos against the client's latest
// volado: cumulative recovery may reach the written-off amount, never exceed
// it, and a fully recovered volado takes no further referenced pagos. A client
// that was never written off takes referenced pagos freely.
func (s *cajaService) validarRecuperacion(ctx context.Context, clienteID uuid.UUID, monto decimal.Decimal) error {
	volado, err := s.movimientos.FindUltimoVolado(ctx, clienteID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	recuperado, err := s.movimientos.SumPagosCliente(ctx, clienteID, volado.CreatedAt)
	if err != nil {
		return err
	}
	pendiente := volado.Monto.Sub(recuperado)
	if !pendiente.IsPositive() {
		return ErrSinVoladoAbierto
	}
	if monto.GreaterThan(pendiente) {
		return ErrOverRecovery
	}
	return nil
}

func (s *cajaService) resolverOperador(ctx context.Context, operadorID uuid.UUID) error {
	u, err := s.usuarios.FindByID(ctx, operadorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrUnknownOperator
		}
		return err
	}
	if !u.Activo {
		return ErrUnknownOperator
	}
	return nil
}
