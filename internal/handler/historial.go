package handler

import (
	"net/http"
	"strconv"

	"cajadiaria/internal/apierror"
	"cajadiaria/internal/dto"
	"cajadiaria/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// HistorialHandler serves the read-only audit views over open and closed
// sessions. Safe to call concurrently with any write.
type HistorialHandler struct{ svc service.HistorialService }

func NewHistorialHandler(svc service.HistorialService) *HistorialHandler {
	return &HistorialHandler{svc: svc}
}

// Listar godoc
// @Summary Lista sesiones de caja con filtros de auditoria
// @Tags historial
// @Produce json
// @Security BearerAuth
// @Param cajero_id query string false "Filtrar por cajero"
// @Param desde query string false "Fecha desde (2006-01-02)"
// @Param hasta query string false "Fecha hasta (2006-01-02)"
// @Param estado query string false "abierta | en_arqueo | cerrada"
// @Success 200 {object} dto.HistorialResponse
// @Router /v1/caja/historial [get]
func (h *HistorialHandler) Listar(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	if cajeroID := c.Query("cajero_id"); cajeroID != "" {
		if _, err := uuid.Parse(cajeroID); err != nil {
			c.JSON(http.StatusBadRequest, apierror.New("cajero_id inválido"))
			return
		}
	}

	filter := dto.HistorialFilter{
		CajeroID: c.Query("cajero_id"),
		Desde:    c.Query("desde"),
		Hasta:    c.Query("hasta"),
		Estado:   c.Query("estado"),
		Page:     page,
		Limit:    limit,
	}

	resp, err := h.svc.ListSesiones(c.Request.Context(), filter)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Detalle godoc
// @Summary Vista completa de auditoria de una sesion
// @Tags historial
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de sesion"
// @Success 200 {object} dto.DetalleSesionResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/caja/{id} [get]
func (h *HistorialHandler) Detalle(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID inválido"))
		return
	}
	resp, err := h.svc.Detalle(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
