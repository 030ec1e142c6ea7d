package db

import (
	"fmt"
	"log"

	"github.com/gosimple/slug"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tnsecretariat/regadmin/internal/models"
)

var conn *gorm.DB

// Init opens (or creates) the sqlite database at path and migrates the schema.
func Init(path string) error {
	var err error
	dsn := fmt.Sprintf("%s?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on", path)
	conn, err = gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		return err
	}

	// SQLite works best with a single writer; cap the pool accordingly.
	sqlDB, err := conn.DB()
	if err != nil {
		return err
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	if err := conn.AutoMigrate(
		&models.User{},
		&models.Sphere{},
		&models.Group{},
		&models.Event{},
		&models.ActivityLog{},
		&models.UserFile{},
	); err != nil {
		return fmt.Errorf("auto-migrate: %w", err)
	}

	// Composite indexes GORM doesn't create from struct tags. The name pair
	// carries every duplicate lookup the importer does.
	conn.Exec("CREATE INDEX IF NOT EXISTS idx_users_name_pair ON users(first_name, last_name)")
	conn.Exec("CREATE INDEX IF NOT EXISTS idx_users_sheet_row ON users(source_sheet, source_row)")
	conn.Exec("CREATE INDEX IF NOT EXISTS idx_activity_entity ON activity_logs(entity_type, entity_id)")

	log.Printf("database ready (sqlite: %s)", path)
	return nil
}

func Conn() *gorm.DB {
	return conn
}

// CanonicalSpheres is the fixed taxonomy. Imports resolve against it and
// never add to it.
var CanonicalSpheres = []string{
	"Church/Ministry",
	"Family/Community",
	"Government",
	"Education",
	"Business/Economics",
	"Media/Arts/Entertainment",
	"Every Nation Campus (ENC)",
}

// SeedSpheres upserts the canonical sphere list, keyed by slug so renames of
// display text don't duplicate rows.
func SeedSpheres(g *gorm.DB) error {
	for _, name := range CanonicalSpheres {
		var s models.Sphere
		err := g.Where(models.Sphere{Slug: slug.Make(name)}).
			Assign(models.Sphere{Name: name}).
			FirstOrCreate(&s).Error
		if err != nil {
			return fmt.Errorf("seed sphere %q: %w", name, err)
		}
	}
	return nil
}
