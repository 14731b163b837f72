package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type AbrirCajaRequest struct {
	Turno        string          `json:"turno"         validate:"required,oneof=matutino vespertino nocturno"`
	SaldoInicial decimal.Decimal `json:"saldo_inicial" validate:"min=0"`
}

// MovimientoRequest registers one ledger event. "fondo_inicial" is not
// accepted here — it is created exclusively by AbrirCaja.
type MovimientoRequest struct {
	SesionCajaID string          `json:"sesion_caja_id" validate:"required,uuid"`
	Tipo         string          `json:"tipo"           validate:"required,oneof=ingreso egreso retiro_parcial deposito_bancario"`
	Monto        decimal.Decimal `json:"monto"          validate:"required,gt=0"`
	Concepto     string          `json:"concepto"       validate:"required"`
	MetodoPago   string          `json:"metodo_pago"    validate:"required,oneof=efectivo tarjeta transferencia cheque mixto"`
	Referencia   *string         `json:"referencia"`
	Notas        *string         `json:"notas"`
}

type ArqueoParcialRequest struct {
	SesionCajaID string          `json:"sesion_caja_id" validate:"required,uuid"`
	SaldoContado decimal.Decimal `json:"saldo_contado"  validate:"min=0"`
	Notas        *string         `json:"notas"`
}

type CerrarCajaRequest struct {
	SesionCajaID  string          `json:"sesion_caja_id" validate:"required,uuid"`
	SaldoContado  decimal.Decimal `json:"saldo_contado"  validate:"min=0"`
	Justificacion *string         `json:"justificacion"`
	Notas         *string         `json:"notas"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type ArqueoResponse struct {
	ArqueoID      string          `json:"arqueo_id"`
	SesionCajaID  string          `json:"sesion_caja_id"`
	Tipo          string          `json:"tipo"` // parcial | final
	SaldoEsperado decimal.Decimal `json:"saldo_esperado"`
	SaldoContado  decimal.Decimal `json:"saldo_contado"`
	Diferencia    decimal.Decimal `json:"diferencia"`
	Clasificacion string          `json:"clasificacion"` // sobrante | faltante | cuadrada
	Justificacion *string         `json:"justificacion"`
	Notas         *string         `json:"notas"`
	RealizadoEn   string          `json:"realizado_en"`
}

type MovimientoResponse struct {
	ID           string          `json:"id"`
	Tipo         string          `json:"tipo"`
	Monto        decimal.Decimal `json:"monto"`
	Concepto     string          `json:"concepto"`
	MetodoPago   string          `json:"metodo_pago"`
	Referencia   *string         `json:"referencia"`
	Notas        *string         `json:"notas"`
	RegistradoEn string          `json:"registrado_en"`
}

type SesionResponse struct {
	SesionCajaID        string          `json:"sesion_caja_id"`
	Numero              int             `json:"numero"`
	CajeroID            string          `json:"cajero_id"`
	Turno               string          `json:"turno"`
	Estado              string          `json:"estado"`
	SaldoInicial        decimal.Decimal `json:"saldo_inicial"`
	SaldoEsperado       decimal.Decimal `json:"saldo_esperado"`
	SaldoContadoFinal   *decimal.Decimal `json:"saldo_contado_final,omitempty"`
	DiferenciaFinal     *decimal.Decimal `json:"diferencia_final,omitempty"`
	JustificacionCierre *string          `json:"justificacion_cierre,omitempty"`
	NotasCierre         *string          `json:"notas_cierre,omitempty"`
	OpenedAt            string           `json:"opened_at"`
	ClosedAt            *string          `json:"closed_at,omitempty"`
}

// ResumenTipo is one row of the per-tipo movement summary.
type ResumenTipo struct {
	Tipo     string          `json:"tipo"`
	Cantidad int64           `json:"cantidad"`
	Total    decimal.Decimal `json:"total"`
}

type ResumenCajaResponse struct {
	SesionCajaID  string          `json:"sesion_caja_id"`
	Estado        string          `json:"estado"`
	SaldoEsperado decimal.Decimal `json:"saldo_esperado"`
	PorTipo       []ResumenTipo   `json:"por_tipo"`
}
