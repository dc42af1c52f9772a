package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type MarcarVoladoRequest struct {
	ClienteID   string          `json:"cliente_id"  validate:"required,uuid"`
	OperadorID  string          `json:"operador_id" validate:"omitempty,uuid"`
	Monto       decimal.Decimal `json:"monto"       validate:"required"`
	Descripcion string          `json:"descripcion"`
}

type RecuperacionRequest struct {
	ClienteID string          `json:"cliente_id" validate:"required,uuid"`
	Monto     decimal.Decimal `json:"monto"      validate:"required"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type VoladoAbiertoResponse struct {
	ClienteID  string          `json:"cliente_id"`
	OperadorID string          `json:"operador_id"`
	Monto      decimal.Decimal `json:"monto"`
	Recuperado decimal.Decimal `json:"recuperado"`
	Pendiente  decimal.Decimal `json:"pendiente"`
	CreatedAt  string          `json:"created_at"`
}
