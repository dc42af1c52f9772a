package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type ConfirmarCierreRequest struct {
	OperadorID      string          `json:"operador_id"      validate:"omitempty,uuid"`
	SaldoConfirmado decimal.Decimal `json:"saldo_confirmado" validate:"required"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type PreviaCierreResponse struct {
	SaldoInicial    decimal.Decimal            `json:"saldo_inicial"`
	SaldoProyectado decimal.Decimal            `json:"saldo_proyectado"`
	Totales         map[string]decimal.Decimal `json:"totales"`
	Movimientos     []MovimientoResponse       `json:"movimientos"`
}

type CierreResponse struct {
	ID           string                     `json:"id"`
	OperadorID   string                     `json:"operador_id"`
	Estado       string                     `json:"estado"`
	SaldoInicial decimal.Decimal            `json:"saldo_inicial"`
	SaldoFinal   *decimal.Decimal           `json:"saldo_final"`
	Totales      map[string]decimal.Decimal `json:"totales"`
	OpenedAt     string                     `json:"opened_at"`
	ClosedAt     *string                    `json:"closed_at"`
}

type HistorialCierresResponse struct {
	Items []CierreResponse `json:"items"`
	Total int64            `json:"total"`
	Page  int              `json:"page"`
	Limit int              `json:"limit"`
}
