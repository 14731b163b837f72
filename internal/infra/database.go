package infra

import (
	"fmt"

	"cajadiaria/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx, runs AutoMigrate
// for the engine's tables, then applies the idempotent SQL patches GORM
// cannot express (the partial unique index backing the single-active-session
// invariant and the sesion numero sequence).
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
		// Lets the service layer match unique-violation errors via
		// gorm.ErrDuplicatedKey instead of parsing SQLSTATE strings.
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := RunMigrations(db); err != nil {
		return nil, err
	}

	return db, nil
}

// RunMigrations applies AutoMigrate plus the schema patches. Also used by
// the integration test setup against a disposable container database.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Usuario{},
		&model.SesionCaja{},
		&model.MovimientoCaja{},
		&model.Arqueo{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	return applySchemaPatches(db)
}

// applySchemaPatches runs idempotent DDL that AutoMigrate cannot produce.
// Each statement uses IF NOT EXISTS / existence-guard semantics so
// re-running on an already-patched DB is safe.
func applySchemaPatches(db *gorm.DB) error {
	patches := []struct{ descr, sql string }{
		// At most one sesion per cajero in abierta/en_arqueo. The partial
		// unique index makes concurrent opens race-safe: the loser gets a
		// unique violation, surfaced as ErrSesionYaAbierta.
		{"partial unique index for single active session per cajero", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'uni_sesiones_caja_cajero_activa') THEN
    CREATE UNIQUE INDEX uni_sesiones_caja_cajero_activa
        ON sesiones_caja (cajero_id)
        WHERE estado IN ('abierta', 'en_arqueo');
  END IF;
END $$`},

		// Human-facing sequential session number.
		{"sequence for sesiones_caja.numero",
			`CREATE SEQUENCE IF NOT EXISTS sesiones_caja_numero_seq`},

		// Composite index serving both the ledger fold and the ordered
		// movement listing for a session.
		{"composite index on movimientos (sesion, registrado_en)", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_movimientos_sesion_registrado') THEN
    CREATE INDEX idx_movimientos_sesion_registrado
        ON movimientos_caja (sesion_caja_id, registrado_en);
  END IF;
END $$`},

		// Historial default ordering is opened_at DESC.
		{"index on sesiones_caja.opened_at", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_sesiones_caja_opened_at') THEN
    CREATE INDEX idx_sesiones_caja_opened_at
        ON sesiones_caja (opened_at DESC);
  END IF;
END $$`},
	}

	for _, p := range patches {
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("schema patch %q: %w", p.descr, err)
		}
	}
	return nil
}
