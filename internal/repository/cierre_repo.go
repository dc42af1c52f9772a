package repository

import (
	"context"

	"trebolsoft/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type CierreRepository interface {
	// DB exposes the connection for service-level transactions (nil in unit tests).
	DB() *gorm.DB
	CreateTx(tx *gorm.DB, c *model.CierreCaja) error
	// UpdateTx is only ever used to seal an open period; sealed rows are frozen.
	UpdateTx(tx *gorm.DB, c *model.CierreCaja) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.CierreCaja, error)
	FindAbierto(ctx context.Context, operadorID uuid.UUID) (*model.CierreCaja, error)
	FindAbiertoTx(tx *gorm.DB, operadorID uuid.UUID) (*model.CierreCaja, error)
	FindUltimoCerrado(ctx context.Context, operadorID uuid.UUID) (*model.CierreCaja, error)
	FindUltimoCerradoTx(tx *gorm.DB, operadorID uuid.UUID) (*model.CierreCaja, error)
	// ListCerrados pages through sealed periods, newest first.
	// nil operadorIDs means no operator restriction.
	ListCerrados(ctx context.Context, operadorIDs []uuid.UUID, page, limit int) ([]model.CierreCaja, int64, error)
}

type cierreRepo struct{ db *gorm.DB }

func NewCierreRepository(db *gorm.DB) CierreRepository { return &cierreRepo{db: db} }

func (r *cierreRepo) DB() *gorm.DB { return r.db }

func (r *cierreRepo) CreateTx(tx *gorm.DB, c *model.CierreCaja) error {
	return tx.Create(c).Error
}

func (r *cierreRepo) UpdateTx(tx *gorm.DB, c *model.CierreCaja) error {
	return tx.Save(c).Error
}

func (r *cierreRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.CierreCaja, error) {
	var c model.CierreCaja
	err := r.db.WithContext(ctx).First(&c, id).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *cierreRepo) FindAbierto(ctx context.Context, operadorID uuid.UUID) (*model.CierreCaja, error) {
	var c model.CierreCaja
	err := r.db.WithContext(ctx).
		Where("operador_id = ? AND estado = 'abierta'", operadorID).
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *cierreRepo) FindAbiertoTx(tx *gorm.DB, operadorID uuid.UUID) (*model.CierreCaja, error) {
	var c model.CierreCaja
	err := tx.Where("operador_id = ? AND estado = 'abierta'", operadorID).First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *cierreRepo) FindUltimoCerrado(ctx context.Context, operadorID uuid.UUID) (*model.CierreCaja, error) {
	var c model.CierreCaja
	err := r.db.WithContext(ctx).
		Where("operador_id = ? AND estado = 'cerrada'", operadorID).
		Order("closed_at DESC").
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *cierreRepo) FindUltimoCerradoTx(tx *gorm.DB, operadorID uuid.UUID) (*model.CierreCaja, error) {
	var c model.CierreCaja
	err := tx.Where("operador_id = ? AND estado = 'cerrada'", operadorID).
		Order("closed_at DESC").
		First(&c).Error
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *cierreRepo) ListCerrados(ctx context.Context, operadorIDs []uuid.UUID, page, limit int) ([]model.CierreCaja, int64, error) {
	q := r.db.WithContext(ctx).Model(&model.CierreCaja{}).Where("estado = 'cerrada'")
	if operadorIDs != nil {
		q = q.Where("operador_id IN ?", operadorIDs)
	}
	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var cierres []model.CierreCaja
	err := q.Order("closed_at DESC").Offset((page - 1) * limit).Limit(limit).Find(&cierres).Error
	return cierres, total, err
}
