package repository

import (
	"context"
	"errors"
	"time"

	"cajadiaria/internal/dto"
	"cajadiaria/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CajaRepository interface {
	DB() *gorm.DB // exposes the DB for transaction creation in service layer

	CreateSesionTx(ctx context.Context, tx *gorm.DB, s *model.SesionCaja) error
	NextNumeroSesion(ctx context.Context, tx *gorm.DB) (int, error)
	FindSesionByID(ctx context.Context, id uuid.UUID) (*model.SesionCaja, error)
	// FindSesionActivaPorCajero returns (nil, nil) when the cashier has no
	// session in abierta/en_arqueo.
	FindSesionActivaPorCajero(ctx context.Context, cajeroID uuid.UUID) (*model.SesionCaja, error)
	UpdateSesionTx(tx *gorm.DB, s *model.SesionCaja) error

	CreateMovimientoTx(tx *gorm.DB, m *model.MovimientoCaja) error
	ListMovimientos(ctx context.Context, sesionID uuid.UUID) ([]model.MovimientoCaja, error)
	// UltimoRegistradoEn returns the zero time when the session has no movements.
	UltimoRegistradoEn(tx *gorm.DB, sesionID uuid.UUID) (time.Time, error)
	SaldoEsperado(ctx context.Context, sesionID uuid.UUID) (decimal.Decimal, error)
	SumMovimientosPorTipo(ctx context.Context, sesionID uuid.UUID) ([]dto.ResumenTipo, error)

	CreateArqueoTx(tx *gorm.DB, a *model.Arqueo) error
	ListArqueos(ctx context.Context, sesionID uuid.UUID) ([]model.Arqueo, error)

	ListSesiones(ctx context.Context, filter dto.HistorialFilter) ([]model.SesionCaja, int64, error)
}

type cajaRepo struct{ db *gorm.DB }

func NewCajaRepository(db *gorm.DB) CajaRepository { return &cajaRepo{db: db} }

func (r *cajaRepo) DB() *gorm.DB { return r.db }

func (r *cajaRepo) CreateSesionTx(ctx context.Context, tx *gorm.DB, s *model.SesionCaja) error {
	return tx.WithContext(ctx).Create(s).Error
}

func (r *cajaRepo) NextNumeroSesion(ctx context.Context, tx *gorm.DB) (int, error) {
	// PostgreSQL sequence keeps the human-facing numero gapless enough and
	// atomic under concurrent opens.
	var num int
	err := tx.WithContext(ctx).Raw("SELECT nextval('sesiones_caja_numero_seq')").Scan(&num).Error
	return num, err
}

func (r *cajaRepo) FindSesionByID(ctx context.Context, id uuid.UUID) (*model.SesionCaja, error) {
	var s model.SesionCaja
	err := r.db.WithContext(ctx).First(&s, "id = ?", id).Error
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *cajaRepo) FindSesionActivaPorCajero(ctx context.Context, cajeroID uuid.UUID) (*model.SesionCaja, error) {
	var s model.SesionCaja
	err := r.db.WithContext(ctx).
		Where("cajero_id = ? AND estado IN ?", cajeroID, []string{model.EstadoAbierta, model.EstadoEnArqueo}).
		First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *cajaRepo) UpdateSesionTx(tx *gorm.DB, s *model.SesionCaja) error {
	return tx.Save(s).Error
}

func (r *cajaRepo) CreateMovimientoTx(tx *gorm.DB, m *model.MovimientoCaja) error {
	return tx.Create(m).Error
}

func (r *cajaRepo) ListMovimientos(ctx context.Context, sesionID uuid.UUID) ([]model.MovimientoCaja, error) {
	var movs []model.MovimientoCaja
	err := r.db.WithContext(ctx).
		Where("sesion_caja_id = ?", sesionID).
		Order("registrado_en ASC").
		Find(&movs).Error
	return movs, err
}

func (r *cajaRepo) UltimoRegistradoEn(tx *gorm.DB, sesionID uuid.UUID) (time.Time, error) {
	var last *time.Time
	err := tx.Model(&model.MovimientoCaja{}).
		Where("sesion_caja_id = ?", sesionID).
		Select("MAX(registrado_en)").
		Scan(&last).Error
	if err != nil || last == nil {
		return time.Time{}, err
	}
	return *last, nil
}

// SaldoEsperado folds the whole ledger: Σ credits − Σ debits. No running
// total is ever stored, so the result is always re-derivable for audit.
func (r *cajaRepo) SaldoEsperado(ctx context.Context, sesionID uuid.UUID) (decimal.Decimal, error) {
	var row struct{ Saldo decimal.Decimal }
	err := r.db.WithContext(ctx).Raw(`
		SELECT COALESCE(SUM(CASE WHEN tipo IN ('ingreso', 'fondo_inicial') THEN monto ELSE -monto END), 0) AS saldo
		FROM movimientos_caja
		WHERE sesion_caja_id = ?`, sesionID).Scan(&row).Error
	return row.Saldo, err
}

func (r *cajaRepo) SumMovimientosPorTipo(ctx context.Context, sesionID uuid.UUID) ([]dto.ResumenTipo, error) {
	var rows []dto.ResumenTipo
	err := r.db.WithContext(ctx).Raw(`
		SELECT tipo, COUNT(*) AS cantidad, SUM(monto) AS total
		FROM movimientos_caja
		WHERE sesion_caja_id = ?
		GROUP BY tipo
		ORDER BY tipo`, sesionID).Scan(&rows).Error
	return rows, err
}

func (r *cajaRepo) CreateArqueoTx(tx *gorm.DB, a *model.Arqueo) error {
	return tx.Create(a).Error
}

func (r *cajaRepo) ListArqueos(ctx context.Context, sesionID uuid.UUID) ([]model.Arqueo, error) {
	var arqueos []model.Arqueo
	err := r.db.WithContext(ctx).
		Where("sesion_caja_id = ?", sesionID).
		Order("realizado_en ASC").
		Find(&arqueos).Error
	return arqueos, err
}

func (r *cajaRepo) ListSesiones(ctx context.Context, filter dto.HistorialFilter) ([]model.SesionCaja, int64, error) {
	var sesiones []model.SesionCaja
	var total int64
	offset := (filter.Page - 1) * filter.Limit

	q := r.db.WithContext(ctx).Model(&model.SesionCaja{})

	if filter.CajeroID != "" {
		q = q.Where("cajero_id = ?", filter.CajeroID)
	}
	if filter.Estado != "" && filter.Estado != "all" {
		q = q.Where("estado = ?", filter.Estado)
	}
	if filter.Desde != "" {
		q = q.Where("DATE(opened_at) >= ?", filter.Desde)
	}
	if filter.Hasta != "" {
		q = q.Where("DATE(opened_at) <= ?", filter.Hasta)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	err := q.Order("opened_at DESC").
		Offset(offset).Limit(filter.Limit).
		Find(&sesiones).Error

	return sesiones, total, err
}
