package handler

import (
	"net/http"
	"time"

	"trebolsoft/internal/apierror"
	"trebolsoft/internal/dto"
	"trebolsoft/internal/repository"
	"trebolsoft/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type CajaHandler struct{ svc service.CajaService }

func NewCajaHandler(svc service.CajaService) *CajaHandler { return &CajaHandler{svc: svc} }

// Saldo godoc
// @Summary Saldo proyectado de la caja de un operador
// @Tags caja
// @Produce json
// @Security BearerAuth
// @Param operador_id query string false "Operador (por defecto el autenticado)"
// @Success 200 {object} dto.SaldoResponse
// @Failure 403 {object} apierror.APIError
// @Router /v1/caja/saldo [get]
func (h *CajaHandler) Saldo(c *gin.Context) {
	caller := callerDe(c)
	operadorID, ok := operadorDe(c, caller, c.Query("operador_id"))
	if !ok {
		return
	}

	proy, err := h.svc.Saldo(c.Request.Context(), caller, operadorID)
	if err != nil {
		mapServiceError(c, err)
		return
	}

	resp := dto.SaldoResponse{
		OperadorID:   operadorID.String(),
		SaldoInicial: proy.SaldoInicial,
		Saldo:        proy.Saldo,
		Totales:      proy.Totales,
	}
	if proy.Periodo != nil {
		abierta := proy.Periodo.OpenedAt.Format(time.RFC3339)
		resp.AbiertaDesde = &abierta
	}
	c.JSON(http.StatusOK, resp)
}

// Movimientos godoc
// @Summary Lista los movimientos de la caja de un operador
// @Tags caja
// @Produce json
// @Security BearerAuth
// @Param operador_id query string false "Operador (por defecto el autenticado)"
// @Param tipo query string false "Filtrar por tipo"
// @Param desde query string false "RFC 3339"
// @Param hasta query string false "RFC 3339"
// @Success 200 {array} dto.MovimientoResponse
// @Failure 403 {object} apierror.APIError
// @Router /v1/caja/movimientos [get]
func (h *CajaHandler) Movimientos(c *gin.Context) {
	caller := callerDe(c)
	operadorID, ok := operadorDe(c, caller, c.Query("operador_id"))
	if !ok {
		return
	}

	filtro := repository.MovimientoFiltro{Tipo: c.Query("tipo")}
	if raw := c.Query("desde"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, apierror.New("desde invalido: use RFC 3339"))
			return
		}
		filtro.Desde = &t
	}
	if raw := c.Query("hasta"); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, apierror.New("hasta invalido: use RFC 3339"))
			return
		}
		filtro.Hasta = &t
	}

	movs, err := h.svc.Movimientos(c.Request.Context(), caller, operadorID, filtro)
	if err != nil {
		mapServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, movimientosToResponse(movs))
}

// RegistrarMovimiento godoc
// @Summary Registra un movimiento en la caja de un operador
// @Tags caja
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.MovimientoRequest true "Movimiento"
// @Success 201 {object} dto.MovimientoResponse
// @Failure 403 {object} apierror.APIError
// @Failure 409 {object} apierror.APIError
// @Failure 422 {object} apierror.APIError
// @Router /v1/caja/movimientos [post]
func (h *CajaHandler) RegistrarMovimiento(c *gin.Context) {
	var req dto.MovimientoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	caller := callerDe(c)
	operadorID, ok := operadorDe(c, caller, req.OperadorID)
	if !ok {
		return
	}

	draft := service.MovimientoDraft{
		OperadorID:  operadorID,
		Tipo:        req.Tipo,
		Monto:       req.Monto,
		Descripcion: req.Descripcion,
	}
	if req.ClienteRefID != nil {
		clienteID, err := uuid.Parse(*req.ClienteRefID)
		if err != nil {
			c.JSON(http.StatusBadRequest, apierror.New("cliente_ref_id invalido"))
			return
		}
		draft.ClienteRefID = &clienteID
	}

	mov, err := h.svc.RegistrarMovimiento(c.Request.Context(), caller, draft)
	if err != nil {
		mapServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, movimientoToResponse(mov))
}

// Transferir godoc
// @Summary Transfiere efectivo entre dos cajas
// @Tags caja
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.TransferenciaRequest true "Transferencia"
// @Success 201 {object} dto.TransferenciaResponse
// @Failure 403 {object} apierror.APIError
// @Failure 422 {object} apierror.APIError
// @Router /v1/caja/transferencias [post]
func (h *CajaHandler) Transferir(c *gin.Context) {
	var req dto.TransferenciaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	de, err := uuid.Parse(req.DeOperadorID)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("de_operador_id invalido"))
		return
	}
	a, err := uuid.Parse(req.AOperadorID)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("a_operador_id invalido"))
		return
	}

	legs, err := h.svc.Transferir(c.Request.Context(), callerDe(c), de, a, req.Monto, req.Descripcion)
	if err != nil {
		mapServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.TransferenciaResponse{
		Salida:  movimientoToResponse(&legs[0]),
		Entrada: movimientoToResponse(&legs[1]),
	})
}
