package infra

import (
	"fmt"

	"spazatrack/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase opens a GORM connection for driver ("postgres" or "sqlite"),
// then brings the schema up to date with Migrate.
func NewDatabase(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "postgres":
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	if driver == "sqlite" {
		// sqlite allows a single writer; one connection serializes transactions
		// instead of failing them with SQLITE_BUSY.
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
	}

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate creates / updates all tables, then applies the postgres-only
// constraints that AutoMigrate cannot derive from plain foreign-key fields.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Shop{},
		&model.User{},
		&model.Product{},
		&model.Sale{},
		&model.ActivityLog{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	if db.Dialector.Name() != "postgres" {
		return nil
	}
	if err := applySchemaPatches(db); err != nil {
		return fmt.Errorf("schema patches: %w", err)
	}
	return nil
}

// applySchemaPatches adds foreign keys between tenant tables. Each statement is
// guarded by an existence check so re-running on a patched schema is a no-op.
// sales.product_id deliberately has no constraint: a product may be deleted
// while its sales stay.
func applySchemaPatches(db *gorm.DB) error {
	fks := []struct{ table, name, column, ref, onDelete string }{
		{"users", "fk_users_shop", "shop_id", "shops(id)", "RESTRICT"},
		{"products", "fk_products_shop", "shop_id", "shops(id)", "RESTRICT"},
		{"products", "fk_products_created_by", "created_by", "users(id)", "SET NULL"},
		{"sales", "fk_sales_shop", "shop_id", "shops(id)", "RESTRICT"},
		{"sales", "fk_sales_employee", "employee_id", "users(id)", "RESTRICT"},
		{"activity_logs", "fk_activity_logs_shop", "shop_id", "shops(id)", "RESTRICT"},
		{"activity_logs", "fk_activity_logs_user", "user_id", "users(id)", "RESTRICT"},
	}
	for _, fk := range fks {
		sql := fmt.Sprintf(`
DO $$ BEGIN
  IF NOT EXISTS (SELECT 1 FROM pg_constraint WHERE conname = '%s') THEN
    ALTER TABLE %s ADD CONSTRAINT %s FOREIGN KEY (%s) REFERENCES %s ON DELETE %s;
  END IF;
END $$`, fk.name, fk.table, fk.name, fk.column, fk.ref, fk.onDelete)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", fk.name, err)
		}
	}
	return nil
}
