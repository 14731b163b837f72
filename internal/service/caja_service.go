package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"cajadiaria/internal/dto"
	"cajadiaria/internal/model"
	"cajadiaria/internal/repository"
	"cajadiaria/internal/worker"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type CajaService interface {
	Abrir(ctx context.Context, cajeroID uuid.UUID, req dto.AbrirCajaRequest) (*dto.SesionResponse, error)
	RegistrarMovimiento(ctx context.Context, req dto.MovimientoRequest) (*dto.MovimientoResponse, error)
	ArqueoParcial(ctx context.Context, realizadoPor uuid.UUID, req dto.ArqueoParcialRequest) (*dto.ArqueoResponse, error)
	Cerrar(ctx context.Context, realizadoPor uuid.UUID, req dto.CerrarCajaRequest) (*dto.ArqueoResponse, error)
	// GetActiva returns (nil, nil) when the cashier has no active session.
	GetActiva(ctx context.Context, cajeroID uuid.UUID) (*dto.SesionResponse, error)
	Resumen(ctx context.Context, sesionID uuid.UUID) (*dto.ResumenCajaResponse, error)
}

type cajaService struct {
	repo         repository.CajaRepository
	conciliacion *Conciliacion
	locks        *sesionLocks
	dispatcher   *worker.Dispatcher
}

// NewCajaService wires the session engine. dispatcher may be nil (unit tests),
// in which case closing summaries are simply not enqueued.
func NewCajaService(repo repository.CajaRepository, conciliacion *Conciliacion, dispatcher *worker.Dispatcher) CajaService {
	return &cajaService{
		repo:         repo,
		conciliacion: conciliacion,
		locks:        newSesionLocks(),
		dispatcher:   dispatcher,
	}
}

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

// ── Abrir ─────────────────────────────────────────────────────────────────────

func (s *cajaService) Abrir(ctx context.Context, cajeroID uuid.UUID, req dto.AbrirCajaRequest) (*dto.SesionResponse, error) {
	if req.SaldoInicial.IsNegative() {
		return nil, fmt.Errorf("%w: el saldo inicial no puede ser negativo", ErrMovimientoInvalido)
	}

	// Pre-check for a friendly error; the partial unique index on
	// (cajero_id) WHERE estado IN ('abierta','en_arqueo') closes the race
	// between two concurrent opens.
	if existing, err := s.repo.FindSesionActivaPorCajero(ctx, cajeroID); err != nil {
		return nil, err
	} else if existing != nil {
		return nil, ErrSesionYaAbierta
	}

	now := time.Now().UTC()
	var sesion model.SesionCaja

	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		numero, err := s.repo.NextNumeroSesion(ctx, tx)
		if err != nil {
			return err
		}

		sesion = model.SesionCaja{
			Numero:       numero,
			CajeroID:     cajeroID,
			Turno:        req.Turno,
			Estado:       model.EstadoAbierta,
			SaldoInicial: req.SaldoInicial,
			OpenedAt:     now,
		}
		if err := s.repo.CreateSesionTx(ctx, tx, &sesion); err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrSesionYaAbierta
			}
			return err
		}

		// The ledger is the single source of truth: the saldo inicial lives
		// as a fondo_inicial movement, so the fold alone reproduces it.
		// A zero float opens without a movement — movement amounts must be
		// strictly positive.
		if sesion.SaldoInicial.IsPositive() {
			mov := model.MovimientoCaja{
				SesionCajaID: sesion.ID,
				Tipo:         model.TipoFondoInicial,
				Monto:        sesion.SaldoInicial,
				Concepto:     "Fondo inicial de apertura",
				MetodoPago:   model.MetodoEfectivo,
				RegistradoEn: now,
			}
			return s.repo.CreateMovimientoTx(tx, &mov)
		}
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	return s.buildSesionResponse(ctx, &sesion)
}

// ── RegistrarMovimiento ───────────────────────────────────────────────────────
// Movements are immutable — no Update/Delete anywhere; corrections are new
// offsetting movements.

func (s *cajaService) RegistrarMovimiento(ctx context.Context, req dto.MovimientoRequest) (*dto.MovimientoResponse, error) {
	sesionID, err := uuid.Parse(req.SesionCajaID)
	if err != nil {
		return nil, fmt.Errorf("sesion_caja_id inválido: %w", err)
	}
	if err := validarMovimiento(req); err != nil {
		return nil, err
	}

	unlock := s.locks.Acquire(sesionID)
	defer unlock()

	sesion, err := s.findSesion(ctx, sesionID)
	if err != nil {
		return nil, err
	}
	if sesion.Estado != model.EstadoAbierta {
		return nil, ErrSesionNoAbierta
	}

	var mov model.MovimientoCaja
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		// Server-assigned timestamp, strictly greater than the previous
		// movement's for this session (total order within the ledger).
		registradoEn := time.Now().UTC()
		last, err := s.repo.UltimoRegistradoEn(tx, sesionID)
		if err != nil {
			return err
		}
		if !registradoEn.After(last) {
			registradoEn = last.Add(time.Microsecond)
		}

		mov = model.MovimientoCaja{
			SesionCajaID: sesionID,
			Tipo:         req.Tipo,
			Monto:        req.Monto,
			Concepto:     req.Concepto,
			MetodoPago:   req.MetodoPago,
			Referencia:   req.Referencia,
			Notas:        req.Notas,
			RegistradoEn: registradoEn,
		}
		return s.repo.CreateMovimientoTx(tx, &mov)
	})
	if txErr != nil {
		return nil, txErr
	}

	resp := movimientoToResponse(&mov)
	return &resp, nil
}

// tiposMovimiento are the tipos accepted from callers. fondo_inicial is
// deliberately absent: only Abrir appends it, exactly once per session.
var tiposMovimiento = map[string]bool{
	model.TipoIngreso:          true,
	model.TipoEgreso:           true,
	model.TipoRetiroParcial:    true,
	model.TipoDepositoBancario: true,
}

// validarMovimiento re-states every client-side check server-side: the engine
// is the sole authority, UI validation is advisory only.
func validarMovimiento(req dto.MovimientoRequest) error {
	if !tiposMovimiento[req.Tipo] {
		return fmt.Errorf("%w: tipo de movimiento %q no permitido", ErrMovimientoInvalido, req.Tipo)
	}
	if !req.Monto.IsPositive() {
		return fmt.Errorf("%w: el monto debe ser mayor a cero", ErrMovimientoInvalido)
	}
	if strings.TrimSpace(req.Concepto) == "" {
		return fmt.Errorf("%w: el concepto no puede estar vacío", ErrMovimientoInvalido)
	}
	if req.MetodoPago != model.MetodoEfectivo {
		if req.Referencia == nil || strings.TrimSpace(*req.Referencia) == "" {
			return fmt.Errorf("%w: se requiere referencia para el método %s", ErrMovimientoInvalido, req.MetodoPago)
		}
	}
	return nil
}

// ── ArqueoParcial ─────────────────────────────────────────────────────────────
// Advisory mid-shift count: records the snapshot, warns the operator via the
// returned diferencia, never blocks subsequent movements and never requires
// justification. The en_arqueo marker exists only inside this transaction.

func (s *cajaService) ArqueoParcial(ctx context.Context, realizadoPor uuid.UUID, req dto.ArqueoParcialRequest) (*dto.ArqueoResponse, error) {
	sesionID, err := uuid.Parse(req.SesionCajaID)
	if err != nil {
		return nil, fmt.Errorf("sesion_caja_id inválido: %w", err)
	}

	unlock := s.locks.Acquire(sesionID)
	defer unlock()

	sesion, err := s.findSesion(ctx, sesionID)
	if err != nil {
		return nil, err
	}
	if sesion.Estado != model.EstadoAbierta {
		return nil, ErrSesionNoAbierta
	}

	esperado, err := s.repo.SaldoEsperado(ctx, sesionID)
	if err != nil {
		return nil, err
	}
	eval := s.conciliacion.Evaluar(esperado, req.SaldoContado)

	var arqueo model.Arqueo
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		sesion.Estado = model.EstadoEnArqueo
		if err := s.repo.UpdateSesionTx(tx, sesion); err != nil {
			return err
		}

		arqueo = model.Arqueo{
			SesionCajaID:  sesionID,
			Tipo:          model.ArqueoParcial,
			SaldoEsperado: eval.SaldoEsperado,
			SaldoContado:  eval.SaldoContado,
			Diferencia:    eval.Diferencia,
			Clasificacion: eval.Clasificacion,
			Notas:         req.Notas,
			RealizadoPor:  realizadoPor,
			RealizadoEn:   time.Now().UTC(),
		}
		if err := s.repo.CreateArqueoTx(tx, &arqueo); err != nil {
			return err
		}

		// Revert the transient marker before commit: an arqueo parcial
		// never leaves the session in en_arqueo.
		sesion.Estado = model.EstadoAbierta
		return s.repo.UpdateSesionTx(tx, sesion)
	})
	if txErr != nil {
		return nil, txErr
	}

	if !eval.Diferencia.IsZero() {
		log.Warn().
			Str("sesion_caja_id", sesionID.String()).
			Str("diferencia", eval.Diferencia.StringFixed(2)).
			Str("clasificacion", eval.Clasificacion).
			Msg("arqueo parcial con diferencia")
	}

	resp := arqueoToResponse(&arqueo)
	return &resp, nil
}

// ── Cerrar ────────────────────────────────────────────────────────────────────
// Terminal transition: final arqueo row + estado=cerrada commit atomically.
// After close the ledger is sealed — every subsequent movement fails with
// ErrSesionNoAbierta.

func (s *cajaService) Cerrar(ctx context.Context, realizadoPor uuid.UUID, req dto.CerrarCajaRequest) (*dto.ArqueoResponse, error) {
	sesionID, err := uuid.Parse(req.SesionCajaID)
	if err != nil {
		return nil, fmt.Errorf("sesion_caja_id inválido: %w", err)
	}

	unlock := s.locks.Acquire(sesionID)
	defer unlock()

	sesion, err := s.findSesion(ctx, sesionID)
	if err != nil {
		return nil, err
	}
	if !sesion.Activa() {
		return nil, ErrSesionNoAbierta
	}

	esperado, err := s.repo.SaldoEsperado(ctx, sesionID)
	if err != nil {
		return nil, err
	}
	eval := s.conciliacion.Evaluar(esperado, req.SaldoContado)

	if err := s.conciliacion.EnforcePolicy(model.ArqueoFinal, eval.Diferencia, req.Justificacion); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	var arqueo model.Arqueo
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		arqueo = model.Arqueo{
			SesionCajaID:  sesionID,
			Tipo:          model.ArqueoFinal,
			SaldoEsperado: eval.SaldoEsperado,
			SaldoContado:  eval.SaldoContado,
			Diferencia:    eval.Diferencia,
			Clasificacion: eval.Clasificacion,
			Justificacion: req.Justificacion,
			Notas:         req.Notas,
			RealizadoPor:  realizadoPor,
			RealizadoEn:   now,
		}
		if err := s.repo.CreateArqueoTx(tx, &arqueo); err != nil {
			return err
		}

		contado := eval.SaldoContado
		diferencia := eval.Diferencia
		sesion.Estado = model.EstadoCerrada
		sesion.ClosedAt = &now
		sesion.SaldoContadoFinal = &contado
		sesion.DiferenciaFinal = &diferencia
		sesion.JustificacionCierre = req.Justificacion
		sesion.NotasCierre = req.Notas
		return s.repo.UpdateSesionTx(tx, sesion)
	})
	if txErr != nil {
		return nil, txErr
	}

	// Best-effort closing summary — never rolls back a committed cierre.
	if s.dispatcher != nil {
		payload := worker.ResumenCierrePayload{
			SesionCajaID:  sesionID.String(),
			Numero:        sesion.Numero,
			CajeroID:      sesion.CajeroID.String(),
			Turno:         sesion.Turno,
			SaldoInicial:  sesion.SaldoInicial.StringFixed(2),
			SaldoEsperado: eval.SaldoEsperado.StringFixed(2),
			SaldoContado:  eval.SaldoContado.StringFixed(2),
			Diferencia:    eval.Diferencia.StringFixed(2),
			Clasificacion: eval.Clasificacion,
			ClosedAt:      now.Format("2006-01-02T15:04:05Z"),
		}
		if req.Justificacion != nil {
			payload.Justificacion = *req.Justificacion
		}
		if err := s.dispatcher.EnqueueResumenCierre(ctx, payload); err != nil {
			log.Error().Err(err).Int("numero", sesion.Numero).Msg("failed to enqueue resumen de cierre")
		}
	}

	resp := arqueoToResponse(&arqueo)
	return &resp, nil
}

// ── GetActiva ─────────────────────────────────────────────────────────────────

func (s *cajaService) GetActiva(ctx context.Context, cajeroID uuid.UUID) (*dto.SesionResponse, error) {
	sesion, err := s.repo.FindSesionActivaPorCajero(ctx, cajeroID)
	if err != nil {
		return nil, err
	}
	if sesion == nil {
		return nil, nil
	}
	return s.buildSesionResponse(ctx, sesion)
}

// ── Resumen ───────────────────────────────────────────────────────────────────

func (s *cajaService) Resumen(ctx context.Context, sesionID uuid.UUID) (*dto.ResumenCajaResponse, error) {
	sesion, err := s.findSesion(ctx, sesionID)
	if err != nil {
		return nil, err
	}
	esperado, err := s.repo.SaldoEsperado(ctx, sesionID)
	if err != nil {
		return nil, err
	}
	porTipo, err := s.repo.SumMovimientosPorTipo(ctx, sesionID)
	if err != nil {
		return nil, err
	}
	return &dto.ResumenCajaResponse{
		SesionCajaID:  sesionID.String(),
		Estado:        sesion.Estado,
		SaldoEsperado: esperado,
		PorTipo:       porTipo,
	}, nil
}

// ── Helpers ───────────────────────────────────────────────────────────────────

func (s *cajaService) findSesion(ctx context.Context, sesionID uuid.UUID) (*model.SesionCaja, error) {
	sesion, err := s.repo.FindSesionByID(ctx, sesionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: sesión de caja %s", ErrNoEncontrado, sesionID)
		}
		return nil, err
	}
	return sesion, nil
}

func (s *cajaService) buildSesionResponse(ctx context.Context, sesion *model.SesionCaja) (*dto.SesionResponse, error) {
	esperado, err := s.repo.SaldoEsperado(ctx, sesion.ID)
	if err != nil {
		return nil, err
	}
	resp := sesionToResponse(sesion, esperado)
	return &resp, nil
}
