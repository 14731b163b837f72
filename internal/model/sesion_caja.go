package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Estado de una sesion de caja.
// "en_arqueo" is a transient marker held only while an arqueo parcial runs;
// it never gates movement acceptance.
const (
	EstadoAbierta  = "abierta"
	EstadoEnArqueo = "en_arqueo"
	EstadoCerrada  = "cerrada"
)

// Turnos de trabajo.
const (
	TurnoMatutino   = "matutino"
	TurnoVespertino = "vespertino"
	TurnoNocturno   = "nocturno"
)

// Tipos de movimiento. The sign of a movement is derived from its tipo —
// Monto is always a positive magnitude.
const (
	TipoIngreso          = "ingreso"
	TipoEgreso           = "egreso"
	TipoFondoInicial     = "fondo_inicial"
	TipoRetiroParcial    = "retiro_parcial"
	TipoDepositoBancario = "deposito_bancario"
)

// Metodos de pago.
const (
	MetodoEfectivo      = "efectivo"
	MetodoTarjeta       = "tarjeta"
	MetodoTransferencia = "transferencia"
	MetodoCheque        = "cheque"
	MetodoMixto         = "mixto"
)

// EsCredito reports whether a movement tipo adds to the expected balance.
// Credit set: ingreso, fondo_inicial. Everything else is a debit.
func EsCredito(tipo string) bool {
	return tipo == TipoIngreso || tipo == TipoFondoInicial
}

// SesionCaja represents one cashier's shift-long cash float.
// Estado: "abierta" | "en_arqueo" | "cerrada"
//
// Invariants:
//   - at most one sesion per cajero in estado abierta/en_arqueo (partial
//     unique index, see infra/database.go)
//   - SaldoInicial is fixed at creation and never mutated
//   - closed sessions are immutable history, never deleted
type SesionCaja struct {
	ID     uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	Numero int       `gorm:"uniqueIndex;not null"`
	// CajeroID comes from the authentication module; the engine only indexes it.
	CajeroID     uuid.UUID       `gorm:"type:uuid;not null;index"`
	Turno        string          `gorm:"type:varchar(20);not null"`
	Estado       string          `gorm:"type:varchar(20);not null;default:'abierta'"`
	SaldoInicial decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	// Closing fields — populated only by Cerrar, in the same transaction
	// that creates the final Arqueo row.
	SaldoContadoFinal   *decimal.Decimal `gorm:"type:decimal(12,2)"`
	DiferenciaFinal     *decimal.Decimal `gorm:"type:decimal(12,2)"`
	JustificacionCierre *string
	NotasCierre         *string
	OpenedAt            time.Time
	ClosedAt            *time.Time

	Movimientos []MovimientoCaja `gorm:"foreignKey:SesionCajaID"`
	Arqueos     []Arqueo         `gorm:"foreignKey:SesionCajaID"`
}

// TableName overrides GORM's default pluralization.
func (SesionCaja) TableName() string { return "sesiones_caja" }

// Activa reports whether the session still accepts movements.
func (s *SesionCaja) Activa() bool {
	return s.Estado == EstadoAbierta || s.Estado == EstadoEnArqueo
}

// MovimientoCaja is an immutable event in the cash register ledger.
// Tipo: "ingreso" | "egreso" | "fondo_inicial" | "retiro_parcial" | "deposito_bancario"
// Movements are NEVER modified or deleted — corrections create offsetting entries.
type MovimientoCaja struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SesionCajaID uuid.UUID `gorm:"type:uuid;index;not null"`
	Tipo         string    `gorm:"type:varchar(20);not null"`
	// Monto is a positive magnitude; credit/debit is derived from Tipo.
	Monto      decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Concepto   string          `gorm:"not null"`
	MetodoPago string          `gorm:"type:varchar(20);not null"`
	// Referencia is mandatory for non-cash methods (voucher/transfer/check id).
	Referencia *string
	Notas      *string
	// RegistradoEn is server-assigned and strictly monotonic within a session.
	RegistradoEn time.Time `gorm:"not null;index"`
}

// TableName overrides GORM's default pluralization.
func (MovimientoCaja) TableName() string { return "movimientos_caja" }
