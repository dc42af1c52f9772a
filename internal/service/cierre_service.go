package service

import (
	"context"
	"errors"
	"time"

	"trebolsoft/internal/model"
	"trebolsoft/internal/repository"
	"trebolsoft/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// PreviaCierre is the read-only preview of a pending cierre: what the period
// holds right now and what the saldo final would be if sealed at this instant.
type PreviaCierre struct {
	SaldoInicial    decimal.Decimal
	SaldoProyectado decimal.Decimal
	Totales         map[string]decimal.Decimal
	Movimientos     []model.MovimientoCaja
}

type CierreService interface {
	// PrepararCierre has no side effect and may be called any number of times.
	PrepararCierre(ctx context.Context, caller Caller, operadorID uuid.UUID) (*PreviaCierre, error)
	// ConfirmarCierre seals the operator's open period and opens the next one,
	// seeded with the sealed saldo final. Race-free against concurrent
	// RegistrarMovimiento calls: both run under the operator's write lock.
	ConfirmarCierre(ctx context.Context, caller Caller, operadorID uuid.UUID, saldoConfirmado decimal.Decimal) (*model.CierreCaja, error)
	Historial(ctx context.Context, caller Caller, operadorID *uuid.UUID, page, limit int) ([]model.CierreCaja, int64, error)
}

type cierreService struct {
	caja        CajaService
	movimientos repository.MovimientoRepository
	cierres     repository.CierreRepository
	proyector   *Proyector
	dispatcher  *worker.Dispatcher // nil = report export disabled
}

func NewCierreService(
	caja CajaService,
	movimientos repository.MovimientoRepository,
	cierres repository.CierreRepository,
	proyector *Proyector,
	dispatcher *worker.Dispatcher,
) CierreService {
	return &cierreService{
		caja:        caja,
		movimientos: movimientos,
		cierres:     cierres,
		proyector:   proyector,
		dispatcher:  dispatcher,
	}
}

// ── PrepararCierre ────────────────────────────────────────────────────────────

func (s *cierreService) PrepararCierre(ctx context.Context, caller Caller, operadorID uuid.UUID) (*PreviaCierre, error) {
	if err := s.caja.puedeVer(ctx, caller, operadorID); err != nil {
		return nil, err
	}

	proy, err := s.proyector.Proyectar(ctx, operadorID)
	if err != nil {
		return nil, err
	}

	desde := time.Time{}
	if proy.Periodo != nil {
		desde = proy.Periodo.OpenedAt
	}
	movs, err := s.movimientos.ListDesde(ctx, operadorID, desde)
	if err != nil {
		return nil, err
	}
	// The previous seal's marker shares the opening instant; it is not a
	// movement of this period.
	delPeriodo := make([]model.MovimientoCaja, 0, len(movs))
	for _, m := range movs {
		if m.Tipo == model.TipoCierre {
			continue
		}
		delPeriodo = append(delPeriodo, m)
	}

	return &PreviaCierre{
		SaldoInicial:    proy.SaldoInicial,
		SaldoProyectado: proy.Saldo,
		Totales:         proy.Totales,
		Movimientos:     delPeriodo,
	}, nil
}

// ── ConfirmarCierre ───────────────────────────────────────────────────────────
// The confirmed saldo is re-validated against a projection recomputed inside
// the same lock and transaction that seal the period, so a movement posted
// between preview and commit surfaces as ErrStaleClosure instead of being
// silently dropped from (or double-counted into) the snapshot.

func (s *cierreService) ConfirmarCierre(ctx context.Context, caller Caller, operadorID uuid.UUID, saldoConfirmado decimal.Decimal) (*model.CierreCaja, error) {
	if err := s.caja.puedeVer(ctx, caller, operadorID); err != nil {
		return nil, err
	}

	desbloquear := s.caja.bloquear(operadorID)
	defer desbloquear()

	var sellado *model.CierreCaja
	err := runTx(ctx, s.cierres.DB(), func(tx *gorm.DB) error {
		periodo, err := s.cierres.FindAbiertoTx(tx, operadorID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrPeriodClosed
			}
			return err
		}

		proy, err := s.proyector.ProyectarTx(tx, periodo)
		if err != nil {
			return err
		}
		// A period only exists once a movement lands in it; sealing an empty
		// one is always a replay of a cierre that already committed.
		if len(proy.Totales) == 0 {
			return ErrPeriodClosed
		}
		if !proy.Saldo.Equal(saldoConfirmado) {
			return ErrStaleClosure
		}

		ahora := time.Now()
		saldoFinal := proy.Saldo

		marcador := &model.MovimientoCaja{
			OperadorID:  operadorID,
			Tipo:        model.TipoCierre,
			Monto:       saldoFinal.Abs(),
			Descripcion: "Cierre de caja",
			CreadoPor:   caller.ID,
			CreatedAt:   ahora,
		}
		if err := s.movimientos.CreateTx(tx, marcador); err != nil {
			return err
		}

		periodo.Estado = "cerrada"
		periodo.ClosedAt = &ahora
		periodo.SaldoFinal = &saldoFinal
		periodo.SetTotales(proy.Totales)
		if err := s.cierres.UpdateTx(tx, periodo); err != nil {
			return err
		}

		siguiente := &model.CierreCaja{
			OperadorID:   operadorID,
			Estado:       "abierta",
			SaldoInicial: saldoFinal,
			OpenedAt:     ahora,
		}
		if err := s.cierres.CreateTx(tx, siguiente); err != nil {
			return err
		}

		sellado = periodo
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Async report export — never part of the cierre invariant.
	if s.dispatcher != nil {
		if err := s.dispatcher.EnqueueReporte(ctx, worker.ReporteCierrePayload{
			CierreID:   sellado.ID.String(),
			OperadorID: operadorID.String(),
		}); err != nil {
			log.Error().Err(err).Str("cierre_id", sellado.ID.String()).Msg("cierre: no se pudo encolar el reporte")
		}
	}

	return sellado, nil
}

// ── Historial ─────────────────────────────────────────────────────────────────

func (s *cierreService) Historial(ctx context.Context, caller Caller, operadorID *uuid.UUID, page, limit int) ([]model.CierreCaja, int64, error) {
	if operadorID != nil {
		if err := s.caja.puedeVer(ctx, caller, *operadorID); err != nil {
			return nil, 0, err
		}
		return s.cierres.ListCerrados(ctx, []uuid.UUID{*operadorID}, page, limit)
	}
	alcance, err := s.caja.visibles(ctx, caller)
	if err != nil {
		return nil, 0, err
	}
	return s.cierres.ListCerrados(ctx, alcance, page, limit)
}
