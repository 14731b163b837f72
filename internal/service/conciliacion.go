package service

import (
	"fmt"
	"strings"

	"cajadiaria/internal/model"

	"github.com/shopspring/decimal"
)

// Evaluacion is the result of comparing a physical count against the
// ledger-derived expected balance. Pure data — nothing here is persisted.
type Evaluacion struct {
	SaldoEsperado decimal.Decimal
	SaldoContado  decimal.Decimal
	Diferencia    decimal.Decimal
	Clasificacion string // sobrante | faltante | cuadrada
}

// Conciliacion computes count-vs-expected differences and enforces the
// justification policy for arqueos parciales and cierres.
type Conciliacion struct {
	// tolerancia is the absolute difference below which a final close never
	// requires justification. Currently exactly zero; kept as a field so the
	// policy can be loosened without touching call sites.
	tolerancia decimal.Decimal
}

func NewConciliacion() *Conciliacion {
	return &Conciliacion{tolerancia: decimal.Zero}
}

// Evaluar classifies the difference contado − esperado.
func (c *Conciliacion) Evaluar(esperado, contado decimal.Decimal) Evaluacion {
	diferencia := contado.Sub(esperado)

	clasificacion := model.DiferenciaCuadrada
	switch {
	case diferencia.IsPositive():
		clasificacion = model.DiferenciaSobrante
	case diferencia.IsNegative():
		clasificacion = model.DiferenciaFaltante
	}

	return Evaluacion{
		SaldoEsperado: esperado,
		SaldoContado:  contado,
		Diferencia:    diferencia,
		Clasificacion: clasificacion,
	}
}

// EnforcePolicy validates the justification requirement for an arqueo.
// Parcial arqueos are advisory and always pass; a final close whose
// difference exceeds the tolerance needs a non-blank justification.
func (c *Conciliacion) EnforcePolicy(tipoArqueo string, diferencia decimal.Decimal, justificacion *string) error {
	if tipoArqueo != model.ArqueoFinal {
		return nil
	}
	if diferencia.Abs().LessThanOrEqual(c.tolerancia) {
		return nil
	}
	if justificacion == nil || strings.TrimSpace(*justificacion) == "" {
		return fmt.Errorf("%w: diferencia de %s", ErrJustificacionRequerida, diferencia.StringFixed(2))
	}
	return nil
}
