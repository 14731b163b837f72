package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Tipos de arqueo.
const (
	ArqueoParcial = "parcial"
	ArqueoFinal   = "final"
)

// Clasificacion de la diferencia contado − esperado.
const (
	DiferenciaSobrante = "sobrante"
	DiferenciaFaltante = "faltante"
	DiferenciaCuadrada = "cuadrada"
)

// Arqueo is a point-in-time physical count against the ledger's expected
// balance. Parcial arqueos are advisory snapshots; exactly one final arqueo
// exists per closed session and is created atomically with the close.
type Arqueo struct {
	ID           uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SesionCajaID uuid.UUID `gorm:"type:uuid;index;not null"`
	Tipo         string    `gorm:"type:varchar(10);not null"`
	// SaldoEsperado is recomputed from the ledger at arqueo time, never taken
	// as input.
	SaldoEsperado decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	SaldoContado  decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	// Diferencia = contado − esperado. Positive = sobrante, negative = faltante.
	Diferencia    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Clasificacion string          `gorm:"type:varchar(10);not null"`
	Justificacion *string
	Notas         *string
	RealizadoPor  uuid.UUID `gorm:"type:uuid;not null"`
	RealizadoEn   time.Time
}

// TableName overrides GORM's default pluralization.
func (Arqueo) TableName() string { return "arqueos_caja" }
