package service

import (
	"cajadiaria/internal/dto"
	"cajadiaria/internal/model"

	"github.com/shopspring/decimal"
)

const timeLayout = "2006-01-02T15:04:05Z"

func sesionToResponse(s *model.SesionCaja, saldoEsperado decimal.Decimal) dto.SesionResponse {
	resp := dto.SesionResponse{
		SesionCajaID:        s.ID.String(),
		Numero:              s.Numero,
		CajeroID:            s.CajeroID.String(),
		Turno:               s.Turno,
		Estado:              s.Estado,
		SaldoInicial:        s.SaldoInicial,
		SaldoEsperado:       saldoEsperado,
		SaldoContadoFinal:   s.SaldoContadoFinal,
		DiferenciaFinal:     s.DiferenciaFinal,
		JustificacionCierre: s.JustificacionCierre,
		NotasCierre:         s.NotasCierre,
		OpenedAt:            s.OpenedAt.UTC().Format(timeLayout),
	}
	if s.ClosedAt != nil {
		t := s.ClosedAt.UTC().Format(timeLayout)
		resp.ClosedAt = &t
	}
	return resp
}

func movimientoToResponse(m *model.MovimientoCaja) dto.MovimientoResponse {
	return dto.MovimientoResponse{
		ID:           m.ID.String(),
		Tipo:         m.Tipo,
		Monto:        m.Monto,
		Concepto:     m.Concepto,
		MetodoPago:   m.MetodoPago,
		Referencia:   m.Referencia,
		Notas:        m.Notas,
		RegistradoEn: m.RegistradoEn.UTC().Format(timeLayout),
	}
}

func arqueoToResponse(a *model.Arqueo) dto.ArqueoResponse {
	return dto.ArqueoResponse{
		ArqueoID:      a.ID.String(),
		SesionCajaID:  a.SesionCajaID.String(),
		Tipo:          a.Tipo,
		SaldoEsperado: a.SaldoEsperado,
		SaldoContado:  a.SaldoContado,
		Diferencia:    a.Diferencia,
		Clasificacion: a.Clasificacion,
		Justificacion: a.Justificacion,
		Notas:         a.Notas,
		RealizadoEn:   a.RealizadoEn.UTC().Format(timeLayout),
	}
}
