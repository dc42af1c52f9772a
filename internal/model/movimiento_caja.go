package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Tipos de movimiento de caja. El signo con el que cada tipo impacta el saldo
// es fijo (ver signos) — el monto almacenado es siempre la magnitud, nunca negativo.
const (
	TipoIngreso       = "ingreso"
	TipoGasto         = "gasto"
	TipoTransferencia = "transferencia" // pata saliente; la entrante se registra como ingreso
	TipoRetiro        = "retiro"
	TipoGastoGeneral  = "gasto_general"
	TipoMicroseguro   = "microseguro"
	TipoPrestamo      = "prestamo"
	TipoPago          = "pago"
	TipoVolado        = "volado"
	TipoCierre        = "cierre" // marcador, no afecta el saldo
)

var signos = map[string]int{
	TipoIngreso:       1,
	TipoPago:          1,
	TipoPrestamo:      1,
	TipoGasto:         -1,
	TipoTransferencia: -1,
	TipoRetiro:        -1,
	TipoGastoGeneral:  -1,
	TipoMicroseguro:   -1,
	TipoVolado:        -1,
	TipoCierre:        0,
}

// SignoDe returns the fixed sign contribution of a movement type.
// ok is false for unknown types.
func SignoDe(tipo string) (signo int, ok bool) {
	signo, ok = signos[tipo]
	return
}

// MovimientoCaja is an immutable event in a collector's cash ledger.
// Movements are NEVER modified or deleted — corrections create inverse entries.
type MovimientoCaja struct {
	ID          uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	OperadorID  uuid.UUID       `gorm:"type:uuid;not null;index:idx_movimientos_operador_fecha,priority:1"`
	Tipo        string          `gorm:"type:varchar(20);not null"`
	Monto       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Descripcion string          `gorm:"not null"`
	// CreadoPor is the authenticated user that posted the movement; differs from
	// OperadorID when a supervisor or admin operates on a collector's box.
	CreadoPor uuid.UUID `gorm:"type:uuid;not null"`
	// ClienteRefID links volados and their recovery pagos to a client.
	ClienteRefID *uuid.UUID `gorm:"type:uuid;index"`
	// CorrelacionID pairs the two legs of a transferencia.
	CorrelacionID *uuid.UUID `gorm:"type:uuid"`
	CreatedAt    time.Time  `gorm:"index:idx_movimientos_operador_fecha,priority:2"`
}

// MontoConSigno resolves the signed amount from the movement type.
func (m *MovimientoCaja) MontoConSigno() decimal.Decimal {
	signo, ok := signos[m.Tipo]
	if !ok || signo == 0 {
		return decimal.Zero
	}
	if signo < 0 {
		return m.Monto.Neg()
	}
	return m.Monto
}
