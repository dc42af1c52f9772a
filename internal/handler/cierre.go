package handler

import (
	"net/http"
	"strconv"

	"trebolsoft/internal/apierror"
	"trebolsoft/internal/dto"
	"trebolsoft/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type CierreHandler struct{ svc service.CierreService }

func NewCierreHandler(svc service.CierreService) *CierreHandler { return &CierreHandler{svc: svc} }

// Previa godoc
// @Summary Previsualiza el cierre del periodo abierto (sin efectos)
// @Tags cierre
// @Produce json
// @Security BearerAuth
// @Param operador_id query string false "Operador (por defecto el autenticado)"
// @Success 200 {object} dto.PreviaCierreResponse
// @Failure 403 {object} apierror.APIError
// @Router /v1/caja/cierre/info [get]
func (h *CierreHandler) Previa(c *gin.Context) {
	caller := callerDe(c)
	operadorID, ok := operadorDe(c, caller, c.Query("operador_id"))
	if !ok {
		return
	}

	previa, err := h.svc.PrepararCierre(c.Request.Context(), caller, operadorID)
	if err != nil {
		mapServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.PreviaCierreResponse{
		SaldoInicial:    previa.SaldoInicial,
		SaldoProyectado: previa.SaldoProyectado,
		Totales:         previa.Totales,
		Movimientos:     movimientosToResponse(previa.Movimientos),
	})
}

// Confirmar godoc
// @Summary Sella el periodo abierto y abre el siguiente
// @Tags cierre
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.ConfirmarCierreRequest true "Saldo confirmado"
// @Success 201 {object} dto.CierreResponse
// @Failure 403 {object} apierror.APIError
// @Failure 409 {object} apierror.APIError
// @Router /v1/caja/cierre [post]
func (h *CierreHandler) Confirmar(c *gin.Context) {
	var req dto.ConfirmarCierreRequest
	if !bindAndValidate(c, &req) {
		return
	}
	caller := callerDe(c)
	operadorID, ok := operadorDe(c, caller, req.OperadorID)
	if !ok {
		return
	}

	cierre, err := h.svc.ConfirmarCierre(c.Request.Context(), caller, operadorID, req.SaldoConfirmado)
	if err != nil {
		mapServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cierreToResponse(cierre))
}

// Historial godoc
// @Summary Lista los cierres sellados visibles para el usuario
// @Tags cierre
// @Produce json
// @Security BearerAuth
// @Param operador_id query string false "Restringir a un operador"
// @Param page query int false "Pagina (default 1)"
// @Param limit query int false "Tamano de pagina (default 20, max 100)"
// @Success 200 {object} dto.HistorialCierresResponse
// @Failure 403 {object} apierror.APIError
// @Router /v1/caja/cierres [get]
func (h *CierreHandler) Historial(c *gin.Context) {
	caller := callerDe(c)

	var operadorID *uuid.UUID
	if raw := c.Query("operador_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, apierror.New("operador_id invalido"))
			return
		}
		operadorID = &id
	}

	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}

	cierres, total, err := h.svc.Historial(c.Request.Context(), caller, operadorID, page, limit)
	if err != nil {
		mapServiceError(c, err)
		return
	}

	items := make([]dto.CierreResponse, len(cierres))
	for i := range cierres {
		items[i] = cierreToResponse(&cierres[i])
	}
	c.JSON(http.StatusOK, dto.HistorialCierresResponse{Items: items, Total: total, Page: page, Limit: limit})
}
