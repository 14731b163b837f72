package worker

// cierre_worker.go
// Processes resumen_cierre jobs: renders the closing summary of a cash
// session and mails it to the supervisor distribution address.

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"cajadiaria/internal/infra"

	"github.com/rs/zerolog/log"
)

// ResumenCierrePayload is the job envelope sent to QueueResumenCierre.
type ResumenCierrePayload struct {
	SesionCajaID  string `json:"sesion_caja_id"`
	Numero        int    `json:"numero"`
	CajeroID      string `json:"cajero_id"`
	Turno         string `json:"turno"`
	SaldoInicial  string `json:"saldo_inicial"`
	SaldoEsperado string `json:"saldo_esperado"`
	SaldoContado  string `json:"saldo_contado"`
	Diferencia    string `json:"diferencia"`
	Clasificacion string `json:"clasificacion"`
	Justificacion string `json:"justificacion,omitempty"`
	ClosedAt      string `json:"closed_at"`
}

// CierreWorker mails closing summaries. SMTP sends go through a circuit
// breaker so a dead relay fast-fails instead of stalling every worker.
type CierreWorker struct {
	mailer  *infra.Mailer
	breaker *infra.CircuitBreaker
	to      string
}

func NewCierreWorker(mailer *infra.Mailer, breaker *infra.CircuitBreaker, to string) *CierreWorker {
	return &CierreWorker{mailer: mailer, breaker: breaker, to: to}
}

// Process renders and sends one closing summary. A returned error means the
// pool should retry (and eventually DLQ) the job.
func (w *CierreWorker) Process(_ context.Context, raw json.RawMessage) error {
	var p ResumenCierrePayload
	if err := json.Unmarshal(raw, &p); err != nil {
		log.Error().Err(err).Msg("cierre_worker: invalid payload")
		return nil // malformed payloads are not retryable
	}
	if w.to == "" {
		log.Warn().Msg("cierre_worker: no destination configured — skipping")
		return nil
	}

	subject := fmt.Sprintf("Cierre de caja #%d — %s", p.Numero, p.Clasificacion)
	body := renderResumen(p)

	err := w.breaker.Execute(func() error {
		return w.mailer.SendResumenCierre(w.to, subject, body)
	})
	if err != nil {
		log.Error().Err(err).Int("numero", p.Numero).Msg("cierre_worker: failed to send resumen")
		return err
	}
	log.Info().Int("numero", p.Numero).Str("to", w.to).Msg("cierre_worker: resumen sent")
	return nil
}

func renderResumen(p ResumenCierrePayload) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Cierre de caja diaria #%d\n\n", p.Numero)
	fmt.Fprintf(&b, "Sesión:         %s\n", p.SesionCajaID)
	fmt.Fprintf(&b, "Cajero:         %s\n", p.CajeroID)
	fmt.Fprintf(&b, "Turno:          %s\n", p.Turno)
	fmt.Fprintf(&b, "Cerrada:        %s\n\n", p.ClosedAt)
	fmt.Fprintf(&b, "Saldo inicial:  %s\n", p.SaldoInicial)
	fmt.Fprintf(&b, "Saldo esperado: %s\n", p.SaldoEsperado)
	fmt.Fprintf(&b, "Saldo contado:  %s\n", p.SaldoContado)
	fmt.Fprintf(&b, "Diferencia:     %s (%s)\n", p.Diferencia, p.Clasificacion)
	if p.Justificacion != "" {
		fmt.Fprintf(&b, "\nJustificación: %s\n", p.Justificacion)
	}
	return b.String()
}
