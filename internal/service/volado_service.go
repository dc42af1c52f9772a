package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"trebolsoft/internal/model"
	"trebolsoft/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// VoladoAbierto is a client with an outstanding write-off: the original volado
// minus the recovery pagos referencing that client. Derived, never stored.
type VoladoAbierto struct {
	ClienteID  uuid.UUID
	OperadorID uuid.UUID
	Monto      decimal.Decimal
	Recuperado decimal.Decimal
	Pendiente  decimal.Decimal
	CreatedAt  time.Time
}

// VoladoService tracks debts written off as unrecoverable ("volados") and their
// eventual partial recovery. It owns no table: everything is derived from
// volado and pago movements, posted through CajaService like any other write.
type VoladoService interface {
	MarcarVolado(ctx context.Context, caller Caller, clienteID, operadorID uuid.UUID, monto decimal.Decimal, descripcion string) (*model.MovimientoCaja, error)
	RegistrarRecuperacion(ctx context.Context, caller Caller, clienteID uuid.UUID, monto decimal.Decimal) (*model.MovimientoCaja, error)
	ListarAbiertos(ctx context.Context, caller Caller) ([]VoladoAbierto, error)
}

type voladoService struct {
	caja        CajaService
	movimientos repository.MovimientoRepository
	clientes    repository.ClienteRepository
	// Serializes the check-then-post sequence per client so two concurrent
	// recoveries cannot jointly exceed the volado amount. Client locks are
	// always taken before (never while holding) an operator lock.
	locks *operadorLocks
}

func NewVoladoService(
	caja CajaService,
	movimientos repository.MovimientoRepository,
	clientes repository.ClienteRepository,
) VoladoService {
	return &voladoService{
		caja:        caja,
		movimientos: movimientos,
		clientes:    clientes,
		locks:       newOperadorLocks(),
	}
}

// ── MarcarVolado ──────────────────────────────────────────────────────────────

func (s *voladoService) MarcarVolado(ctx context.Context, caller Caller, clienteID, operadorID uuid.UUID, monto decimal.Decimal, descripcion string) (*model.MovimientoCaja, error) {
	if caller.Rol != model.RolAdministrador && caller.Rol != model.RolSupervisor {
		return nil, ErrForbidden
	}
	if !monto.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if err := s.resolverCliente(ctx, clienteID); err != nil {
		return nil, err
	}

	desbloquear := s.locks.lock(clienteID)
	defer desbloquear()

	abierto, err := s.voladoAbierto(ctx, clienteID)
	if err != nil {
		return nil, err
	}
	if abierto != nil {
		return nil, ErrAlreadyWrittenOff
	}

	if descripcion == "" {
		descripcion = "Deuda volada"
	}
	return s.caja.RegistrarMovimiento(ctx, caller, MovimientoDraft{
		OperadorID:   operadorID,
		Tipo:         model.TipoVolado,
		Monto:        monto,
		Descripcion:  descripcion,
		ClienteRefID: &clienteID,
	})
}

// ── RegistrarRecuperacion ─────────────────────────────────────────────────────
// Only pagos carrying the client reference count toward recovery; a generic
// pago never reduces a volado. Cumulative recovery can reach, but never
// exceed, the original volado amount — excess is rejected, not clamped.

func (s *voladoService) RegistrarRecuperacion(ctx context.Context, caller Caller, clienteID uuid.UUID, monto decimal.Decimal) (*model.MovimientoCaja, error) {
	if !monto.IsPositive() {
		return nil, ErrInvalidAmount
	}
	if err := s.resolverCliente(ctx, clienteID); err != nil {
		return nil, err
	}

	desbloquear := s.locks.lock(clienteID)
	defer desbloquear()

	volado, err := s.movimientos.FindUltimoVolado(ctx, clienteID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSinVoladoAbierto
		}
		return nil, err
	}
	recuperado, err := s.movimientos.SumPagosCliente(ctx, clienteID, volado.CreatedAt)
	if err != nil {
		return nil, err
	}
	pendiente := volado.Monto.Sub(recuperado)
	if !pendiente.IsPositive() {
		return nil, ErrSinVoladoAbierto
	}
	if monto.GreaterThan(pendiente) {
		return nil, ErrOverRecovery
	}

	return s.caja.RegistrarMovimiento(ctx, caller, MovimientoDraft{
		OperadorID:   volado.OperadorID,
		Tipo:         model.TipoPago,
		Monto:        monto,
		Descripcion:  fmt.Sprintf("Recuperacion de volado (pendiente %s)", pendiente.Sub(monto).StringFixed(2)),
		ClienteRefID: &clienteID,
	})
}

// ── ListarAbiertos ────────────────────────────────────────────────────────────

func (s *voladoService) ListarAbiertos(ctx context.Context, caller Caller) ([]VoladoAbierto, error) {
	alcance, err := s.caja.visibles(ctx, caller)
	if err != nil {
		return nil, err
	}
	movs, err := s.movimientos.ListVolados(ctx, alcance)
	if err != nil {
		return nil, err
	}

	// Latest volado per client wins; earlier ones are already fully recovered
	// (MarcarVolado rejects a new volado while one remains open).
	ultimos := make(map[uuid.UUID]model.MovimientoCaja)
	orden := make([]uuid.UUID, 0, len(movs))
	for _, m := range movs {
		if m.ClienteRefID == nil {
			continue
		}
		if _, visto := ultimos[*m.ClienteRefID]; !visto {
			orden = append(orden, *m.ClienteRefID)
		}
		ultimos[*m.ClienteRefID] = m
	}

	abiertos := make([]VoladoAbierto, 0, len(ultimos))
	for _, clienteID := range orden {
		volado := ultimos[clienteID]
		recuperado, err := s.movimientos.SumPagosCliente(ctx, clienteID, volado.CreatedAt)
		if err != nil {
			return nil, err
		}
		pendiente := volado.Monto.Sub(recuperado)
		if !pendiente.IsPositive() {
			continue
		}
		abiertos = append(abiertos, VoladoAbierto{
			ClienteID:  clienteID,
			OperadorID: volado.OperadorID,
			Monto:      volado.Monto,
			Recuperado: recuperado,
			Pendiente:  pendiente,
			CreatedAt:  volado.CreatedAt,
		})
	}
	return abiertos, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func (s *voladoService) voladoAbierto(ctx context.Context, clienteID uuid.UUID) (*model.MovimientoCaja, error) {
	volado, err := s.movimientos.FindUltimoVolado(ctx, clienteID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	recuperado, err := s.movimientos.SumPagosCliente(ctx, clienteID, volado.CreatedAt)
	if err != nil {
		return nil, err
	}
	if recuperado.GreaterThanOrEqual(volado.Monto) {
		return nil, nil
	}
	return volado, nil
}

func (s *voladoService) resolverCliente(ctx context.Context, clienteID uuid.UUID) error {
	existe, err := s.clientes.Exists(ctx, clienteID)
	if err != nil {
		return err
	}
	if !existe {
		return ErrUnknownClient
	}
	return nil
}
