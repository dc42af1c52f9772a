package infra

import (
	"fmt"

	"trebolsoft/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx, runs AutoMigrate to
// create / update all tables, then applies any idempotent SQL patches that GORM
// cannot express (partial indexes, check constraints).
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
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

// RunMigrations applies AutoMigrate plus the SQL patches. Exposed separately so
// integration tests can run it against a disposable database.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Usuario{},
		&model.Cliente{},
		&model.MovimientoCaja{},
		&model.CierreCaja{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	return applySchemaPatches(db)
}

// applySchemaPatches runs idempotent DDL statements that GORM AutoMigrate cannot
// express. Each statement is guarded by an existence check so re-running on an
// already-patched schema is a no-op.
func applySchemaPatches(db *gorm.DB) error {
	patches := []struct{ descr, sql string }{
		// At most one open period per operator. The service layer also enforces
		// this, but the partial unique index makes it a database invariant.
		{"partial unique index: one open cierre per operador", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_cierre_cajas_abierta') THEN
    CREATE UNIQUE INDEX idx_cierre_cajas_abierta
        ON cierre_cajas (operador_id)
        WHERE estado = 'abierta';
  END IF;
END $$`},
		// Stored amounts are magnitudes; the sign lives in the tipo.
		{"check constraint: monto never negative", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = 'chk_movimiento_cajas_monto_positivo') THEN
    ALTER TABLE movimiento_cajas
      ADD CONSTRAINT chk_movimiento_cajas_monto_positivo CHECK (monto >= 0);
  END IF;
END $$`},
		// Partial index for the open-volado lookup (latest volado per client).
		{"partial index: volados por cliente", `
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_movimiento_cajas_volados_cliente') THEN
    CREATE INDEX idx_movimiento_cajas_volados_cliente
        ON movimiento_cajas (cliente_ref_id, created_at DESC)
        WHERE tipo = 'volado';
  END IF;
END $$`},
	}
	for _, p := range patches {
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", p.descr, err)
		}
	}
	return nil
}
