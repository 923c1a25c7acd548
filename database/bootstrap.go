// database/bootstrap.go
package database

import (
	"fmt"
	"strings"

	sqlite "github.com/glebarez/sqlite" // CGO-free driver
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/hbiaou/crop-rotation/entities"
)

// OpenSQLite opens the database with foreign keys on and a single connection,
// then migrates the schema.
func OpenSQLite(path string) (*gorm.DB, error) {
	dsn := path
	if !strings.Contains(dsn, "_pragma=foreign_keys") {
		sep := "?"
		if strings.Contains(dsn, "?") {
			sep = "&"
		}
		dsn += sep + "_pragma=foreign_keys(1)"
	}

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite handle: %w", err)
	}
	// SQLite has one writer; ":memory:" databases also live per connection.
	sqlDB.SetMaxOpenConns(1)

	if err := Migrate(db); err != nil {
		return nil, err
	}
	return db, nil
}

// Migrate brings the schema up to date.
func Migrate(db *gorm.DB) error {
	// run the dedupe BEFORE AutoMigrate so the unique index can be created
	if err := dedupeCyclePlans(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	if err := db.AutoMigrate(
		&entities.Setting{},
		&entities.Garden{},
		&entities.SubBed{},
		&entities.Crop{},
		&entities.RotationStep{},
		&entities.CycleRun{},
		&entities.CyclePlan{},
		&entities.CategoryTarget{},
		&entities.CropTarget{},
	); err != nil {
		return fmt.Errorf("automigrate: %w", err)
	}
	return nil
}

// dedupeCyclePlans keeps the newest row per (sub_bed_id, cycle) in databases
// created before that pair was unique.
func dedupeCyclePlans(db *gorm.DB) error {
	var tbl string
	if err := db.Raw(`SELECT name FROM sqlite_master WHERE type='table' AND name='cycle_plans'`).Scan(&tbl).Error; err != nil {
		return fmt.Errorf("check table exist: %w", err)
	}
	if tbl == "" {
		// fresh DB, nothing to do
		return nil
	}

	var idx string
	if err := db.Raw(`SELECT name FROM sqlite_master WHERE type='index' AND name='idx_plan_sub_bed_cycle'`).Scan(&idx).Error; err != nil {
		return fmt.Errorf("check index exist: %w", err)
	}
	if idx != "" {
		return nil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		return tx.Exec(`
DELETE FROM cycle_plans
WHERE plan_id NOT IN (
    SELECT MAX(plan_id) FROM cycle_plans GROUP BY sub_bed_id, cycle
)`).Error
	})
}
