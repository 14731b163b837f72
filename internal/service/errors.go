package service

import "errors"

// Domain error kinds. Handlers map these to HTTP statuses via errors.Is;
// the text reaches the operator verbatim, so it stays actionable.
var (
	// ErrSesionYaAbierta: the cashier already owns a session in abierta/en_arqueo.
	ErrSesionYaAbierta = errors.New("el cajero ya tiene una caja abierta")

	// ErrSesionNoAbierta: movement, arqueo or cierre attempted against a
	// session that is not open (includes already-closed sessions).
	ErrSesionNoAbierta = errors.New("la sesión de caja no está abierta")

	// ErrMovimientoInvalido: non-positive amount, blank concepto, or missing
	// referencia for a non-cash payment method.
	ErrMovimientoInvalido = errors.New("movimiento inválido")

	// ErrJustificacionRequerida: final close with non-zero difference and a
	// blank justification.
	ErrJustificacionRequerida = errors.New("se requiere justificación para cerrar con diferencia")

	// ErrNoEncontrado: unknown session or movement id.
	ErrNoEncontrado = errors.New("no encontrado")
)
