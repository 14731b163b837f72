package handler

import (
	"net/http"

	"cajadiaria/internal/apierror"
	"cajadiaria/internal/dto"
	"cajadiaria/internal/middleware"
	"cajadiaria/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type CajaHandler struct{ svc service.CajaService }

func NewCajaHandler(svc service.CajaService) *CajaHandler { return &CajaHandler{svc: svc} }

// Abrir godoc
// @Summary Abre una nueva sesion de caja diaria para el cajero autenticado
// @Tags caja
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.AbrirCajaRequest true "Datos de apertura"
// @Success 201 {object} dto.SesionResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/caja/abrir [post]
func (h *CajaHandler) Abrir(c *gin.Context) {
	var req dto.AbrirCajaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	claims := middleware.GetClaims(c)
	cajeroID, err := uuid.Parse(claims.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID de cajero inválido"))
		return
	}

	resp, err := h.svc.Abrir(c.Request.Context(), cajeroID, req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// RegistrarMovimiento godoc
// @Summary Registra un movimiento en la sesion de caja
// @Tags caja
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.MovimientoRequest true "Movimiento"
// @Success 201 {object} dto.MovimientoResponse
// @Failure 409 {object} apierror.APIError
// @Failure 422 {object} apierror.APIError
// @Router /v1/caja/movimiento [post]
func (h *CajaHandler) RegistrarMovimiento(c *gin.Context) {
	var req dto.MovimientoRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.RegistrarMovimiento(c.Request.Context(), req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// ArqueoParcial godoc
// @Summary Realiza un arqueo parcial (conteo advisorio) sin cerrar la sesion
// @Tags caja
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.ArqueoParcialRequest true "Conteo parcial"
// @Success 200 {object} dto.ArqueoResponse
// @Failure 409 {object} apierror.APIError
// @Router /v1/caja/arqueo [post]
func (h *CajaHandler) ArqueoParcial(c *gin.Context) {
	var req dto.ArqueoParcialRequest
	if !bindAndValidate(c, &req) {
		return
	}
	claims := middleware.GetClaims(c)
	realizadoPor, err := uuid.Parse(claims.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID de usuario inválido"))
		return
	}
	resp, err := h.svc.ArqueoParcial(c.Request.Context(), realizadoPor, req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Cerrar godoc
// @Summary Cierra la sesion con el conteo final, exigiendo justificacion si hay diferencia
// @Tags caja
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.CerrarCajaRequest true "Conteo final"
// @Success 200 {object} dto.ArqueoResponse
// @Failure 409 {object} apierror.APIError
// @Failure 422 {object} apierror.APIError
// @Router /v1/caja/cerrar [post]
func (h *CajaHandler) Cerrar(c *gin.Context) {
	var req dto.CerrarCajaRequest
	if !bindAndValidate(c, &req) {
		return
	}
	claims := middleware.GetClaims(c)
	realizadoPor, err := uuid.Parse(claims.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID de usuario inválido"))
		return
	}
	resp, err := h.svc.Cerrar(c.Request.Context(), realizadoPor, req)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetActiva returns the currently open cash session for the authenticated cashier.
func (h *CajaHandler) GetActiva(c *gin.Context) {
	claims := middleware.GetClaims(c)
	cajeroID, err := uuid.Parse(claims.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID de cajero inválido"))
		return
	}
	resp, err := h.svc.GetActiva(c.Request.Context(), cajeroID)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	if resp == nil {
		c.JSON(http.StatusNotFound, apierror.New("Sin sesión activa"))
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Resumen godoc
// @Summary Resumen por tipo de movimiento y saldo esperado de una sesion
// @Tags caja
// @Produce json
// @Security BearerAuth
// @Param id path string true "ID de sesion"
// @Success 200 {object} dto.ResumenCajaResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/caja/{id}/resumen [get]
func (h *CajaHandler) Resumen(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("ID inválido"))
		return
	}
	resp, err := h.svc.Resumen(c.Request.Context(), id)
	if err != nil {
		respondServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
