package service

import "errors"

// Sentinel errors for the caja core. Handlers classify them with errors.Is and
// map each class to its HTTP status; the messages are what the client sees.
//
// Classes:
//   - authorization:     ErrForbidden
//   - input validation:  ErrInvalidAmount, ErrTipoInvalido, ErrUnknownOperator, ErrUnknownClient
//   - state conflict:    ErrPeriodClosed, ErrStaleClosure (refresh and retry)
//   - business conflict: ErrAlreadyWrittenOff, ErrOverRecovery, ErrSinVoladoAbierto
//
// Storage failures are not swallowed anywhere: they propagate wrapped, and the
// surrounding transaction guarantees no partial movement or cierre is observable.
var (
	ErrForbidden       = errors.New("permisos insuficientes para operar sobre esta caja")
	ErrInvalidAmount   = errors.New("el monto debe ser mayor a cero")
	ErrTipoInvalido    = errors.New("tipo de movimiento desconocido")
	ErrUnknownOperator = errors.New("operador no encontrado")
	ErrUnknownClient   = errors.New("cliente no encontrado")

	ErrPeriodClosed = errors.New("el periodo de caja ya fue cerrado")
	ErrStaleClosure = errors.New("el saldo confirmado no coincide con el saldo actual; refresque y reintente")

	ErrAlreadyWrittenOff = errors.New("el cliente ya tiene un volado abierto")
	ErrOverRecovery      = errors.New("la recuperacion excede el monto volado pendiente")
	ErrSinVoladoAbierto  = errors.New("el cliente no tiene un volado abierto")
)
