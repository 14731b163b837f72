package tests

import (
	"testing"

	"cajadiaria/internal/model"
	"cajadiaria/internal/service"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEvaluarClasificacion(t *testing.T) {
	c := service.NewConciliacion()

	cases := []struct {
		nombre        string
		esperado      float64
		contado       float64
		diferencia    string
		clasificacion string
	}{
		{"cuadrada", 1550, 1550, "0", model.DiferenciaCuadrada},
		{"faltante", 1550, 1530, "-20", model.DiferenciaFaltante},
		{"sobrante", 1550, 1575.5, "25.5", model.DiferenciaSobrante},
		{"esperado cero", 0, 0, "0", model.DiferenciaCuadrada},
		{"faltante total", 300, 0, "-300", model.DiferenciaFaltante},
	}

	for _, tc := range cases {
		eval := c.Evaluar(decimal.NewFromFloat(tc.esperado), decimal.NewFromFloat(tc.contado))
		assert.Equal(t, tc.diferencia, eval.Diferencia.String(), tc.nombre)
		assert.Equal(t, tc.clasificacion, eval.Clasificacion, tc.nombre)
	}
}

func TestEnforcePolicyParcialSiemprePasa(t *testing.T) {
	c := service.NewConciliacion()

	// A parcial never demands justification, no matter the difference
	err := c.EnforcePolicy(model.ArqueoParcial, decimal.NewFromFloat(-9999), nil)
	assert.NoError(t, err)
}

func TestEnforcePolicyFinal(t *testing.T) {
	c := service.NewConciliacion()

	// Exact match closes without justification
	require.NoError(t, c.EnforcePolicy(model.ArqueoFinal, decimal.Zero, nil))

	// Any non-zero difference requires one
	err := c.EnforcePolicy(model.ArqueoFinal, decimal.NewFromFloat(-0.01), nil)
	assert.ErrorIs(t, err, service.ErrJustificacionRequerida)

	err = c.EnforcePolicy(model.ArqueoFinal, decimal.NewFromFloat(0.01), nil)
	assert.ErrorIs(t, err, service.ErrJustificacionRequerida)

	// Whitespace-only justification is treated as absent
	blanco := "  \t "
	err = c.EnforcePolicy(model.ArqueoFinal, decimal.NewFromFloat(-20), &blanco)
	assert.ErrorIs(t, err, service.ErrJustificacionRequerida)

	just := "faltante por cambio no registrado"
	assert.NoError(t, c.EnforcePolicy(model.ArqueoFinal, decimal.NewFromFloat(-20), &just))
}
