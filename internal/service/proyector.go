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

// Proyeccion is the derived state of an operator's cash box: the open period's
// opening balance plus the signed sum of its movements. It is recomputed on
// every read — there is no stored mutable counter to drift.
type Proyeccion struct {
	SaldoInicial decimal.Decimal
	Saldo        decimal.Decimal
	// Totales maps tipo → signed sum for the current period. Invariant:
	// sum(Totales) == Saldo - SaldoInicial, exactly.
	Totales map[string]decimal.Decimal
	// Periodo is nil when the operator never recorded a movement.
	Periodo *model.CierreCaja
}

// Proyector computes balances from the movement log. Pure reads only.
type Proyector struct {
	movimientos repository.MovimientoRepository
	cierres     repository.CierreRepository
}

func NewProyector(movimientos repository.MovimientoRepository, cierres repository.CierreRepository) *Proyector {
	return &Proyector{movimientos: movimientos, cierres: cierres}
}

// Proyectar computes the operator's current balance and per-tipo totals.
// Idempotent: repeated calls with no intervening writes return the same result.
func (p *Proyector) Proyectar(ctx context.Context, operadorID uuid.UUID) (*Proyeccion, error) {
	periodo, err := p.cierres.FindAbierto(ctx, operadorID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	inicial, desde, err := p.base(ctx, operadorID, periodo)
	if err != nil {
		return nil, err
	}

	sums, err := p.movimientos.SumPorTipo(ctx, operadorID, desde)
	if err != nil {
		return nil, err
	}
	saldo, totales := acumular(inicial, sums)
	return &Proyeccion{SaldoInicial: inicial, Saldo: saldo, Totales: totales, Periodo: periodo}, nil
}

// ProyectarTx recomputes the projection of an already-loaded open period inside
// a transaction. Used by the cierre to validate the confirmed balance against
// the same snapshot that seals the period.
func (p *Proyector) ProyectarTx(tx *gorm.DB, periodo *model.CierreCaja) (*Proyeccion, error) {
	sums, err := p.movimientos.SumPorTipoTx(tx, periodo.OperadorID, periodo.OpenedAt)
	if err != nil {
		return nil, err
	}
	saldo, totales := acumular(periodo.SaldoInicial, sums)
	return &Proyeccion{SaldoInicial: periodo.SaldoInicial, Saldo: saldo, Totales: totales, Periodo: periodo}, nil
}

// base resolves the opening balance and the period start. With no open period
// the projection seeds from the last sealed cierre (or zero for new operators).
func (p *Proyector) base(ctx context.Context, operadorID uuid.UUID, periodo *model.CierreCaja) (decimal.Decimal, time.Time, error) {
	if periodo != nil {
		return periodo.SaldoInicial, periodo.OpenedAt, nil
	}
	ultimo, err := p.cierres.FindUltimoCerrado(ctx, operadorID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return decimal.Zero, time.Time{}, nil
		}
		return decimal.Zero, time.Time{}, err
	}
	return *ultimo.SaldoFinal, *ultimo.ClosedAt, nil
}

// acumular applies the fixed sign of each tipo to the magnitude sums.
// The cierre marker contributes zero and is dropped from the totals.
func acumular(inicial decimal.Decimal, sums map[string]decimal.Decimal) (decimal.Decimal, map[string]decimal.Decimal) {
	saldo := inicial
	totales := make(map[string]decimal.Decimal, len(sums))
	for tipo, monto := range sums {
		signo, ok := model.SignoDe(tipo)
		if !ok || signo == 0 {
			continue
		}
		conSigno := monto
		if signo < 0 {
			conSigno = monto.Neg()
		}
		totales[tipo] = conSigno
		saldo = saldo.Add(conSigno)
	}
	return saldo, totales
}
