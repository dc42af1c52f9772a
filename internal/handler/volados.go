package handler

import (
	"net/http"
	"time"

	"trebolsoft/internal/apierror"
	"trebolsoft/internal/dto"
	"trebolsoft/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type VoladoHandler struct{ svc service.VoladoService }

func NewVoladoHandler(svc service.VoladoService) *VoladoHandler { return &VoladoHandler{svc: svc} }

// Marcar godoc
// @Summary Marca la deuda de un cliente como volada (incobrable)
// @Tags volados
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.MarcarVoladoRequest true "Volado"
// @Success 201 {object} dto.MovimientoResponse
// @Failure 403 {object} apierror.APIError
// @Failure 409 {object} apierror.APIError
// @Router /v1/caja/volados [post]
func (h *VoladoHandler) Marcar(c *gin.Context) {
	var req dto.MarcarVoladoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	caller := callerDe(c)

	clienteID, err := uuid.Parse(req.ClienteID)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("cliente_id invalido"))
		return
	}
	operadorID, ok := operadorDe(c, caller, req.OperadorID)
	if !ok {
		return
	}

	mov, err := h.svc.MarcarVolado(c.Request.Context(), caller, clienteID, operadorID, req.Monto, req.Descripcion)
	if err != nil {
		mapServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, movimientoToResponse(mov))
}

// Recuperar godoc
// @Summary Registra la recuperacion parcial o total de un volado
// @Tags volados
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.RecuperacionRequest true "Recuperacion"
// @Success 201 {object} dto.MovimientoResponse
// @Failure 403 {object} apierror.APIError
// @Failure 422 {object} apierror.APIError
// @Router /v1/caja/volados/recuperacion [post]
func (h *VoladoHandler) Recuperar(c *gin.Context) {
	var req dto.RecuperacionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	clienteID, err := uuid.Parse(req.ClienteID)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("cliente_id invalido"))
		return
	}

	mov, err := h.svc.RegistrarRecuperacion(c.Request.Context(), callerDe(c), clienteID, req.Monto)
	if err != nil {
		mapServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, movimientoToResponse(mov))
}

// Listar godoc
// @Summary Lista los volados con saldo pendiente visibles para el usuario
// @Tags volados
// @Produce json
// @Security BearerAuth
// @Success 200 {array} dto.VoladoAbiertoResponse
// @Router /v1/caja/volados [get]
func (h *VoladoHandler) Listar(c *gin.Context) {
	abiertos, err := h.svc.ListarAbiertos(c.Request.Context(), callerDe(c))
	if err != nil {
		mapServiceError(c, err)
		return
	}

	resp := make([]dto.VoladoAbiertoResponse, len(abiertos))
	for i, v := range abiertos {
		resp[i] = dto.VoladoAbiertoResponse{
			ClienteID:  v.ClienteID.String(),
			OperadorID: v.OperadorID.String(),
			Monto:      v.Monto,
			Recuperado: v.Recuperado,
			Pendiente:  v.Pendiente,
			CreatedAt:  v.CreatedAt.Format(time.RFC3339),
		}
	}
	c.JSON(http.StatusOK, resp)
}
