// Package migrations owns the database schema.
//
// Postgres runs the versioned SQL files under sql/ through golang-migrate.
// SQLite (development and tests) uses gorm AutoMigrate plus the partial
// indexes gorm tags cannot express.
package migrations

import (
	"embed"
	"errors"
	"fmt"

	"home-services-api/models"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed sql/*.sql
var files embed.FS

// VendorSlotIndex keeps one live booking per vendor, date and slot.
const VendorSlotIndex = "idx_bookings_vendor_slot_active"

const createVendorSlotIndex = `CREATE UNIQUE INDEX IF NOT EXISTS ` + VendorSlotIndex + `
	ON bookings (vendor_id, date, time_slot)
	WHERE vendor_id IS NOT NULL AND status IN ('PENDING', 'ACCEPTED', 'ACTIVE')`

// Models lists every persisted type in dependency order.
func Models() []any {
	return []any{
		&models.User{},
		&models.Category{},
		&models.SubCategory{},
		&models.ServiceItem{},
		&models.Booking{},
		&models.BookingStatusHistory{},
		&models.PaymentOrder{},
		&models.Transaction{},
		&models.OthersRequest{},
		&models.Notification{},
	}
}

// Up applies all pending versioned migrations to a Postgres database URL.
func Up(databaseURL string) error {
	m, err := newMigrate(databaseURL)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}
	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return err
	}
	zap.S().Infow("database migrated", "version", version, "dirty", dirty)
	return nil
}

// Down rolls back the given number of migrations.
func Down(databaseURL string, steps int) error {
	m, err := newMigrate(databaseURL)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Steps(-steps); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("rollback migrations: %w", err)
	}
	return nil
}

func newMigrate(databaseURL string) (*migrate.Migrate, error) {
	src, err := iofs.New(files, "sql")
	if err != nil {
		return nil, fmt.Errorf("open embedded migrations: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", src, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("init migrate: %w", err)
	}
	return m, nil
}

// AutoMigrate builds the schema from the gorm models. Used for SQLite.
func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(Models()...); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	if err := db.Exec(createVendorSlotIndex).Error; err != nil {
		return fmt.Errorf("create %s: %w", VendorSlotIndex, err)
	}
	return nil
}

// Run migrates db with the strategy matching its driver.
func Run(db *gorm.DB, driver, dsn string) error {
	if driver == "postgres" {
		return Up(dsn)
	}
	return AutoMigrate(db)
}
