package database

import (
	_ "embed"
	"fmt"
	"log"
	"strings"

	"brigade/internal/config"
	"brigade/internal/models"

	"github.com/jinzhu/gorm"
	_ "github.com/jinzhu/gorm/dialects/postgres" // PostgreSQL driver
	_ "github.com/jinzhu/gorm/dialects/sqlite"   // SQLite driver
)

//go:embed triggers.sql
var triggersSQL string

var (
	DB        *gorm.DB
	activeDSN string
)

// InitDB opens the configured database, tunes the pool and stores the handle for CloseDB.
// For postgres the backup host is tried when the primary cannot be reached.
func InitDB(cfg config.DatabaseConfig, debug bool) (*gorm.DB, error) {
	db, dsn, err := open(cfg)
	if err != nil {
		return nil, err
	}

	db.LogMode(debug)

	if cfg.Dialect == config.DialectSQLite {
		// SQLite allows a single writer, and every :memory: connection is its own database.
		db.DB().SetMaxOpenConns(1)
		db.DB().SetMaxIdleConns(1)
		if err := db.Exec("PRAGMA foreign_keys = ON").Error; err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply pragmas: %w", err)
		}
	} else {
		db.DB().SetMaxIdleConns(cfg.MaxIdleConns)
		db.DB().SetMaxOpenConns(cfg.MaxOpenConns)
		db.DB().SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	DB = db
	activeDSN = dsn
	return db, nil
}

func open(cfg config.DatabaseConfig) (*gorm.DB, string, error) {
	if cfg.Dialect == config.DialectSQLite {
		db, err := gorm.Open("sqlite3", cfg.Path)
		if err != nil {
			return nil, "", fmt.Errorf("failed to connect to database: %w", err)
		}
		return db, cfg.Path, nil
	}

	dsn := DSN(cfg, cfg.Host, cfg.Port)
	db, err := gorm.Open("postgres", dsn)
	if err == nil {
		log.Printf("Database pool initialized for host: %s", cfg.Host)
		return db, dsn, nil
	}
	if cfg.HostBackup == "" {
		return nil, "", fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Printf("Database host %s unavailable (%v), failing over to %s:%d", cfg.Host, err, cfg.HostBackup, cfg.PortBackup)
	dsn = DSN(cfg, cfg.HostBackup, cfg.PortBackup)
	db, backupErr := gorm.Open("postgres", dsn)
	if backupErr != nil {
		return nil, "", fmt.Errorf("failed to connect to primary (%v) and backup database: %w", err, backupErr)
	}
	return db, dsn, nil
}

// ActiveDSN is the connection string InitDB succeeded with. The notification
// listener dials the same server.
func ActiveDSN() string {
	return activeDSN
}

// DSN builds a lib/pq connection string for the given host.
func DSN(cfg config.DatabaseConfig, host string, port int) string {
	parts := []string{
		fmt.Sprintf("host=%s", host),
		fmt.Sprintf("port=%d", port),
		fmt.Sprintf("dbname=%s", cfg.Name),
		fmt.Sprintf("sslmode=%s", cfg.SSLMode),
	}
	if cfg.User != "" {
		parts = append(parts, fmt.Sprintf("user=%s", cfg.User))
	}
	if cfg.Password != "" {
		parts = append(parts, fmt.Sprintf("password=%s", cfg.Password))
	}
	return strings.Join(parts, " ")
}

// Migrate creates the kitchen tables. On postgres it also installs the
// triggers that NOTIFY listeners when orders or items change.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(&models.KitchenOrder{}, &models.KitchenOrderItem{}).Error; err != nil {
		return fmt.Errorf("failed to migrate kitchen tables: %w", err)
	}

	if db.Dialect().GetName() != "postgres" {
		return nil
	}
	if err := db.Exec(triggersSQL).Error; err != nil {
		return fmt.Errorf("failed to install notify triggers: %w", err)
	}
	return nil
}

// WithTx runs fn inside a transaction. The transaction is rolled back when fn
// returns an error or panics, and committed otherwise.
func WithTx(db *gorm.DB, fn func(tx *gorm.DB) error) (err error) {
	tx := db.Begin()
	if tx.Error != nil {
		return tx.Error
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
			panic(r)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback().Error; rbErr != nil {
			log.Printf("Rollback failed: %v", rbErr)
		}
		return err
	}
	return tx.Commit().Error
}

// CloseDB closes the database connection
func CloseDB() error {
	if DB != nil {
		return DB.Close()
	}
	return nil
}
