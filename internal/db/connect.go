package db

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/zulandar/crashcalc/internal/config"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// DSN builds a MySQL DSN for the report database.
func DSN(cfg config.DatabaseConfig) string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&charset=utf8mb4",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name)
}

// SQLiteDSN builds a SQLite DSN with foreign key enforcement enabled.
func SQLiteDSN(path string) string {
	return fmt.Sprintf("file:%s?_foreign_keys=on", path)
}

// Connect opens a GORM connection using the configured driver. With debug
// set, GORM logs every statement.
func Connect(cfg config.DatabaseConfig, debug bool) (*gorm.DB, error) {
	gcfg := &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}
	if debug {
		gcfg.Logger = logger.Default.LogMode(logger.Info)
	}

	switch cfg.Driver {
	case config.DriverMySQL:
		db, err := gorm.Open(mysql.Open(DSN(cfg)), gcfg)
		if err != nil {
			return nil, fmt.Errorf("db: connect to %s:%d/%s: %w", cfg.Host, cfg.Port, cfg.Name, err)
		}
		return db, nil
	case config.DriverSQLite:
		if dir := filepath.Dir(cfg.Path); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("db: create directory %s: %w", dir, err)
			}
		}
		db, err := gorm.Open(sqlite.Open(SQLiteDSN(cfg.Path)), gcfg)
		if err != nil {
			return nil, fmt.Errorf("db: open %s: %w", cfg.Path, err)
		}
		// SQLite allows a single writer; one connection avoids SQLITE_BUSY
		// under concurrent requests.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("db: open %s: %w", cfg.Path, err)
		}
		sqlDB.SetMaxOpenConns(1)
		return db, nil
	default:
		return nil, fmt.Errorf("db: unsupported driver %q", cfg.Driver)
	}
}

// ConnectAdmin opens a GORM connection to the MySQL server without selecting
// a database, used for CREATE DATABASE operations.
func ConnectAdmin(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%d)/?parseTime=true", cfg.User, cfg.Password, cfg.Host, cfg.Port)
	db, err := gorm.Open(mysql.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("db: admin connect to %s:%d: %w", cfg.Host, cfg.Port, err)
	}
	return db, nil
}

// CreateDatabase creates the named database if it doesn't already exist.
func CreateDatabase(adminDB *gorm.DB, name string) error {
	sql := fmt.Sprintf("CREATE DATABASE IF NOT EXISTS `%s`", name)
	if err := adminDB.Exec(sql).Error; err != nil {
		return fmt.Errorf("db: create database %s: %w", name, err)
	}
	return nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("db: close: %w", err)
	}
	return sqlDB.Close()
}
