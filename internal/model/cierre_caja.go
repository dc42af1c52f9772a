package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CierreCaja is one accounting period of a collector's cash box.
// Estado: "abierta" | "cerrada"
//
// A period opens implicitly with the operator's first movement (saldo inicial =
// saldo final of the previous cierre, or zero) and is sealed exactly once.
// A partial unique index guarantees at most one open period per operator
// (see infra.applySchemaPatches).
type CierreCaja struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OperadorID   uuid.UUID       `gorm:"type:uuid;not null;index:idx_cierres_operador_apertura,unique,priority:1"`
	Estado       string          `gorm:"type:varchar(20);not null;default:'abierta'"`
	SaldoInicial decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	// SaldoFinal is computed on seal: SaldoInicial + SUM(movimientos con signo)
	SaldoFinal *decimal.Decimal `gorm:"type:decimal(12,2)"`
	OpenedAt   time.Time        `gorm:"not null;index:idx_cierres_operador_apertura,unique,priority:2"`
	ClosedAt   *time.Time

	// Signed totals per movement type, frozen at seal time.
	TotalIngresos        decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	TotalGastos          decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	TotalTransferencias  decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	TotalRetiros         decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	TotalGastosGenerales decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	TotalMicroseguros    decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	TotalPrestamos       decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	TotalPagos           decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
	TotalVolados         decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`
}

// SetTotales copies the per-tipo signed sums into the frozen columns.
func (c *CierreCaja) SetTotales(totales map[string]decimal.Decimal) {
	c.TotalIngresos = totales[TipoIngreso]
	c.TotalGastos = totales[TipoGasto]
	c.TotalTransferencias = totales[TipoTransferencia]
	c.TotalRetiros = totales[TipoRetiro]
	c.TotalGastosGenerales = totales[TipoGastoGeneral]
	c.TotalMicroseguros = totales[TipoMicroseguro]
	c.TotalPrestamos = totales[TipoPrestamo]
	c.TotalPagos = totales[TipoPago]
	c.TotalVolados = totales[TipoVolado]
}

// Totales rebuilds the tipo → signed sum map from the frozen columns.
func (c *CierreCaja) Totales() map[string]decimal.Decimal {
	return map[string]decimal.Decimal{
		TipoIngreso:       c.TotalIngresos,
		TipoGasto:         c.TotalGastos,
		TipoTransferencia: c.TotalTransferencias,
		TipoRetiro:        c.TotalRetiros,
		TipoGastoGeneral:  c.TotalGastosGenerales,
		TipoMicroseguro:   c.TotalMicroseguros,
		TipoPrestamo:      c.TotalPrestamos,
		TipoPago:          c.TotalPagos,
		TipoVolado:        c.TotalVolados,
	}
}
