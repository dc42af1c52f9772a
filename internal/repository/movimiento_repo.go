package repository

import (
	"context"
	"time"

	"trebolsoft/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// MovimientoFiltro narrows a movement listing. Zero values mean "no filter".
type MovimientoFiltro struct {
	Tipo  string
	Desde *time.Time
	Hasta *time.Time
}

// MovimientoRepository is the append-only movement store. There is deliberately
// no Update or Delete — committed movements are immutable facts.
type MovimientoRepository interface {
	DB() *gorm.DB
	// CreateTx appends inside a caller-supplied transaction (nil tx in unit tests).
	CreateTx(tx *gorm.DB, m *model.MovimientoCaja) error
	List(ctx context.Context, operadorID uuid.UUID, f MovimientoFiltro) ([]model.MovimientoCaja, error)
	ListDesde(ctx context.Context, operadorID uuid.UUID, desde time.Time) ([]model.MovimientoCaja, error)
	// SumPorTipo returns the magnitude sums per tipo for movements at or after
	// desde (the period's opened_at). Signs are applied by the caller
	// (model.SignoDe). The boundary instant can only hold the zero-sign cierre
	// marker, because appends require created_at strictly after the last seal.
	SumPorTipo(ctx context.Context, operadorID uuid.UUID, desde time.Time) (map[string]decimal.Decimal, error)
	// SumPorTipoTx is the same aggregate inside a transaction, so a cierre can
	// recompute the balance in the same snapshot that seals the period.
	SumPorTipoTx(tx *gorm.DB, operadorID uuid.UUID, desde time.Time) (map[string]decimal.Decimal, error)

	// Volado lookups — derived view over the same table.
	FindUltimoVolado(ctx context.Context, clienteID uuid.UUID) (*model.MovimientoCaja, error)
	SumPagosCliente(ctx context.Context, clienteID uuid.UUID, desde time.Time) (decimal.Decimal, error)
	ListVolados(ctx context.Context, operadorIDs []uuid.UUID) ([]model.MovimientoCaja, error)
}

type movimientoRepo struct{ db *gorm.DB }

func NewMovimientoRepository(db *gorm.DB) MovimientoRepository { return &movimientoRepo{db: db} }

func (r *movimientoRepo) DB() *gorm.DB { return r.db }

func (r *movimientoRepo) CreateTx(tx *gorm.DB, m *model.MovimientoCaja) error {
	return tx.Create(m).Error
}

func (r *movimientoRepo) List(ctx context.Context, operadorID uuid.UUID, f MovimientoFiltro) ([]model.MovimientoCaja, error) {
	q := r.db.WithContext(ctx).Where("operador_id = ?", operadorID)
	if f.Tipo != "" {
		q = q.Where("tipo = ?", f.Tipo)
	}
	if f.Desde != nil {
		q = q.Where("created_at >= ?", *f.Desde)
	}
	if f.Hasta != nil {
		q = q.Where("created_at <= ?", *f.Hasta)
	}
	var movs []model.MovimientoCaja
	// Ties on created_at resolved by insertion order (id)
	err := q.Order("created_at ASC, id ASC").Find(&movs).Error
	return movs, err
}

func (r *movimientoRepo) ListDesde(ctx context.Context, operadorID uuid.UUID, desde time.Time) ([]model.MovimientoCaja, error) {
	var movs []model.MovimientoCaja
	err := r.db.WithContext(ctx).
		Where("operador_id = ? AND created_at >= ?", operadorID, desde).
		Order("created_at ASC, id ASC").
		Find(&movs).Error
	return movs, err
}

func (r *movimientoRepo) SumPorTipo(ctx context.Context, operadorID uuid.UUID, desde time.Time) (map[string]decimal.Decimal, error) {
	return sumPorTipo(r.db.WithContext(ctx), operadorID, desde)
}

func (r *movimientoRepo) SumPorTipoTx(tx *gorm.DB, operadorID uuid.UUID, desde time.Time) (map[string]decimal.Decimal, error) {
	return sumPorTipo(tx, operadorID, desde)
}

func sumPorTipo(q *gorm.DB, operadorID uuid.UUID, desde time.Time) (map[string]decimal.Decimal, error) {
	type fila struct {
		Tipo  string
		Total decimal.Decimal
	}
	var filas []fila
	err := q.
		Model(&model.MovimientoCaja{}).
		Select("tipo, COALESCE(SUM(monto), 0) AS total").
		Where("operador_id = ? AND created_at >= ?", operadorID, desde).
		Group("tipo").
		Scan(&filas).Error
	if err != nil {
		return nil, err
	}
	sums := make(map[string]decimal.Decimal, len(filas))
	for _, f := range filas {
		sums[f.Tipo] = f.Total
	}
	return sums, nil
}

func (r *movimientoRepo) FindUltimoVolado(ctx context.Context, clienteID uuid.UUID) (*model.MovimientoCaja, error) {
	var m model.MovimientoCaja
	err := r.db.WithContext(ctx).
		Where("cliente_ref_id = ? AND tipo = ?", clienteID, model.TipoVolado).
		Order("created_at DESC, id DESC").
		First(&m).Error
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *movimientoRepo) SumPagosCliente(ctx context.Context, clienteID uuid.UUID, desde time.Time) (decimal.Decimal, error) {
	var total decimal.Decimal
	err := r.db.WithContext(ctx).
		Model(&model.MovimientoCaja{}).
		Select("COALESCE(SUM(monto), 0)").
		Where("cliente_ref_id = ? AND tipo = ? AND created_at >= ?", clienteID, model.TipoPago, desde).
		Scan(&total).Error
	return total, err
}

func (r *movimientoRepo) ListVolados(ctx context.Context, operadorIDs []uuid.UUID) ([]model.MovimientoCaja, error) {
	q := r.db.WithContext(ctx).Where("tipo = ?", model.TipoVolado)
	if operadorIDs != nil {
		q = q.Where("operador_id IN ?", operadorIDs)
	}
	var movs []model.MovimientoCaja
	err := q.Order("created_at ASC, id ASC").Find(&movs).Error
	return movs, err
}
