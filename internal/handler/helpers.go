package handler

import (
	"errors"
	"net/http"
	"reflect"
	"time"

	"trebolsoft/internal/apierror"
	"trebolsoft/internal/dto"
	"trebolsoft/internal/middleware"
	"trebolsoft/internal/model"
	"trebolsoft/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var validate = validator.New()

func init() {
	// Register decimal.Decimal as a numeric type so that validator tags like
	// min=0, gt=0, required work without panicking ("Bad field type decimal.Decimal").
	validate.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if v, ok := field.Interface().(decimal.Decimal); ok {
			f, _ := v.Float64()
			return f
		}
		return nil
	}, decimal.Decimal{})
}

// bindAndValidate binds JSON body and runs go-playground/validator tags.
// Returns false and writes the error response if validation fails —
// the caller should return immediately without writing another response.
func bindAndValidate(c *gin.Context, req interface{}) bool {
	if err := c.ShouldBindJSON(req); err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("JSON invalido: "+err.Error()))
		return false
	}
	if err := validate.Struct(req); err != nil {
		fields := make(map[string]string)
		for _, fe := range err.(validator.ValidationErrors) {
			fields[fe.Field()] = fe.Tag()
		}
		c.JSON(http.StatusUnprocessableEntity, apierror.NewValidation(fields))
		return false
	}
	return true
}

// mapServiceError classifies the caja sentinel errors into HTTP statuses.
// Anything unrecognized is a 500 with a generic message — internal details
// go to the log via the error handler middleware, never to the client.
func mapServiceError(c *gin.Context, err error) {
	var status int
	switch {
	case errors.Is(err, service.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrUnknownOperator), errors.Is(err, service.ErrUnknownClient):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrPeriodClosed),
		errors.Is(err, service.ErrStaleClosure),
		errors.Is(err, service.ErrAlreadyWrittenOff):
		status = http.StatusConflict
	case errors.Is(err, service.ErrInvalidAmount),
		errors.Is(err, service.ErrTipoInvalido),
		errors.Is(err, service.ErrOverRecovery),
		errors.Is(err, service.ErrSinVoladoAbierto):
		status = http.StatusUnprocessableEntity
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, apierror.New("Error interno del servidor"))
		return
	}
	c.JSON(status, apierror.New(err.Error()))
}

// callerDe builds the service-level identity from the JWT claims.
func callerDe(c *gin.Context) service.Caller {
	claims := middleware.GetClaims(c)
	id, _ := uuid.Parse(claims.UserID)
	return service.Caller{ID: id, Rol: claims.Rol}
}

// operadorDe resolves the target operator: the authenticated user by default,
// or the explicit operador_id when a supervisor/admin acts on another box.
func operadorDe(c *gin.Context, caller service.Caller, explicito string) (uuid.UUID, bool) {
	if explicito == "" {
		return caller.ID, true
	}
	id, err := uuid.Parse(explicito)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("operador_id invalido"))
		return uuid.Nil, false
	}
	return id, true
}

// ── DTO mappers ───────────────────────────────────────────────────────────────

func movimientoToResponse(m *model.MovimientoCaja) dto.MovimientoResponse {
	var clienteRef, correlacion *string
	if m.ClienteRefID != nil {
		s := m.ClienteRefID.String()
		clienteRef = &s
	}
	if m.CorrelacionID != nil {
		s := m.CorrelacionID.String()
		correlacion = &s
	}
	return dto.MovimientoResponse{
		ID:            m.ID.String(),
		OperadorID:    m.OperadorID.String(),
		Tipo:          m.Tipo,
		Monto:         m.Monto,
		MontoConSigno: m.MontoConSigno(),
		Descripcion:   m.Descripcion,
		CreadoPor:     m.CreadoPor.String(),
		ClienteRefID:  clienteRef,
		CorrelacionID: correlacion,
		CreatedAt:     m.CreatedAt.Format(time.RFC3339),
	}
}

func movimientosToResponse(movs []model.MovimientoCaja) []dto.MovimientoResponse {
	resp := make([]dto.MovimientoResponse, len(movs))
	for i := range movs {
		resp[i] = movimientoToResponse(&movs[i])
	}
	return resp
}

func cierreToResponse(cierre *model.CierreCaja) dto.CierreResponse {
	var closedAt *string
	if cierre.ClosedAt != nil {
		s := cierre.ClosedAt.Format(time.RFC3339)
		closedAt = &s
	}
	return dto.CierreResponse{
		ID:           cierre.ID.String(),
		OperadorID:   cierre.OperadorID.String(),
		Estado:       cierre.Estado,
		SaldoInicial: cierre.SaldoInicial,
		SaldoFinal:   cierre.SaldoFinal,
		Totales:      cierre.Totales(),
		OpenedAt:     cierre.OpenedAt.Format(time.RFC3339),
		ClosedAt:     closedAt,
	}
}
