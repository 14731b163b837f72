package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cajadiaria/internal/dto"
	"cajadiaria/internal/model"
	"cajadiaria/internal/repository"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// detalleCacheTTL applies only to closed sessions, which are immutable
// history — the cached audit view can never go stale.
const detalleCacheTTL = 24 * time.Hour

type HistorialService interface {
	ListSesiones(ctx context.Context, filter dto.HistorialFilter) (*dto.HistorialResponse, error)
	Detalle(ctx context.Context, sesionID uuid.UUID) (*dto.DetalleSesionResponse, error)
}

// historialService is the read-only audit side: it never mutates session
// state and takes no session locks, so it can run concurrently with writers.
type historialService struct {
	repo repository.CajaRepository
	rdb  *redis.Client
}

// NewHistorialService builds the audit queries. rdb may be nil (unit tests);
// caching is then skipped entirely.
func NewHistorialService(repo repository.CajaRepository, rdb *redis.Client) HistorialService {
	return &historialService{repo: repo, rdb: rdb}
}

func (s *historialService) ListSesiones(ctx context.Context, filter dto.HistorialFilter) (*dto.HistorialResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 || filter.Limit > 100 {
		filter.Limit = 20
	}

	sesiones, total, err := s.repo.ListSesiones(ctx, filter)
	if err != nil {
		return nil, err
	}

	data := make([]dto.SesionResponse, 0, len(sesiones))
	for i := range sesiones {
		esperado, err := s.repo.SaldoEsperado(ctx, sesiones[i].ID)
		if err != nil {
			return nil, err
		}
		data = append(data, sesionToResponse(&sesiones[i], esperado))
	}

	return &dto.HistorialResponse{
		Data:  data,
		Total: total,
		Page:  filter.Page,
		Limit: filter.Limit,
	}, nil
}

func (s *historialService) Detalle(ctx context.Context, sesionID uuid.UUID) (*dto.DetalleSesionResponse, error) {
	cacheKey := "sesion:detalle:" + sesionID.String()

	// Closed sessions are verbatim immutable history — serve from cache when
	// possible. Open sessions always hit the DB for a live snapshot.
	if s.rdb != nil {
		if cached, err := s.rdb.Get(ctx, cacheKey).Bytes(); err == nil {
			var resp dto.DetalleSesionResponse
			if jsonErr := json.Unmarshal(cached, &resp); jsonErr == nil {
				return &resp, nil
			}
		}
	}

	sesion, err := s.repo.FindSesionByID(ctx, sesionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: sesión de caja %s", ErrNoEncontrado, sesionID)
		}
		return nil, err
	}

	esperado, err := s.repo.SaldoEsperado(ctx, sesionID)
	if err != nil {
		return nil, err
	}
	movs, err := s.repo.ListMovimientos(ctx, sesionID)
	if err != nil {
		return nil, err
	}
	arqueos, err := s.repo.ListArqueos(ctx, sesionID)
	if err != nil {
		return nil, err
	}

	resp := &dto.DetalleSesionResponse{
		Sesion:      sesionToResponse(sesion, esperado),
		Movimientos: make([]dto.MovimientoResponse, 0, len(movs)),
		Arqueos:     make([]dto.ArqueoResponse, 0, len(arqueos)),
	}
	for i := range movs {
		resp.Movimientos = append(resp.Movimientos, movimientoToResponse(&movs[i]))
	}
	for i := range arqueos {
		resp.Arqueos = append(resp.Arqueos, arqueoToResponse(&arqueos[i]))
	}

	// Populate cache — best effort, only for sealed sessions.
	if s.rdb != nil && sesion.Estado == model.EstadoCerrada {
		if b, jsonErr := json.Marshal(resp); jsonErr == nil {
			_ = s.rdb.Set(context.Background(), cacheKey, b, detalleCacheTTL).Err()
		}
	}

	return resp, nil
}
