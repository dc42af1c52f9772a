package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type MovimientoRequest struct {
	OperadorID   string          `json:"operador_id"    validate:"omitempty,uuid"`
	Tipo         string          `json:"tipo"           validate:"required,oneof=ingreso pago prestamo gasto retiro gasto_general microseguro"`
	Monto        decimal.Decimal `json:"monto"          validate:"required"`
	Descripcion  string          `json:"descripcion"    validate:"required,min=3"`
	ClienteRefID *string         `json:"cliente_ref_id" validate:"omitempty,uuid"`
}

type TransferenciaRequest struct {
	DeOperadorID string          `json:"de_operador_id" validate:"required,uuid"`
	AOperadorID  string          `json:"a_operador_id"  validate:"required,uuid"`
	Monto        decimal.Decimal `json:"monto"          validate:"required"`
	Descripcion  string          `json:"descripcion"    validate:"required,min=3"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type MovimientoResponse struct {
	ID            string          `json:"id"`
	OperadorID    string          `json:"operador_id"`
	Tipo          string          `json:"tipo"`
	Monto         decimal.Decimal `json:"monto"`
	MontoConSigno decimal.Decimal `json:"monto_con_signo"`
	Descripcion   string          `json:"descripcion"`
	CreadoPor     string          `json:"creado_por"`
	ClienteRefID  *string         `json:"cliente_ref_id"`
	CorrelacionID *string         `json:"correlacion_id"`
	CreatedAt     string          `json:"created_at"`
}

type SaldoResponse struct {
	OperadorID   string                     `json:"operador_id"`
	SaldoInicial decimal.Decimal            `json:"saldo_inicial"`
	Saldo        decimal.Decimal            `json:"saldo"`
	Totales      map[string]decimal.Decimal `json:"totales"`
	AbiertaDesde *string                    `json:"abierta_desde"`
}

type TransferenciaResponse struct {
	Salida  MovimientoResponse `json:"salida"`
	Entrada MovimientoResponse `json:"entrada"`
}
