package database

import (
	"fmt"
	"log"
	"os"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/camden-git/genealogybackend/config"
	"github.com/camden-git/genealogybackend/models"
)

// InitGormDB initializes and returns a GORM database instance for the given driver
func InitGormDB(driver, dataSourceName string, debug bool) (*gorm.DB, error) {
	logLevel := logger.Warn
	if debug {
		logLevel = logger.Info
	}
	gormLogger := logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags), // io writer
		logger.Config{
			SlowThreshold:             time.Second,
			LogLevel:                  logLevel,
			IgnoreRecordNotFoundError: true,
			Colorful:                  debug,
		},
	)

	var dialector gorm.Dialector
	switch driver {
	case config.DriverSQLite:
		dialector = sqlite.Open(dataSourceName)
	case config.DriverPostgres:
		dialector = postgres.Open(dataSourceName)
	default:
		return nil, fmt.Errorf("unsupported database driver '%s'", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:         gormLogger,
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database using GORM: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB from GORM: %w", err)
	}

	if driver == config.DriverSQLite {
		// enable write-ahead Logging for better concurrency
		if err := db.Exec("PRAGMA journal_mode=WAL;").Error; err != nil {
			log.Printf("warning: failed to set WAL mode: %v", err)
		}
	}

	sqlDB.SetMaxIdleConns(10)
	sqlDB.SetMaxOpenConns(100)
	sqlDB.SetConnMaxLifetime(time.Hour)

	log.Printf("GORM database (%s) initialized successfully", driver)
	return db, nil
}

const singleCurrentNameIndex = `CREATE UNIQUE INDEX IF NOT EXISTS idx_names_single_current
	ON names (individual_id) WHERE date_to IS NULL`

// AutoMigrateModels creates or updates every table. Owners are listed before
// the tables that reference them.
func AutoMigrateModels(db *gorm.DB) error {
	err := db.AutoMigrate(
		&models.Individual{},
		&models.Name{},
		&models.Occupation{},
		&models.Image{},
		&models.ParentOf{},
		&models.MarriedTo{},
		&models.SiblingTo{},
		&models.User{},
		&models.FormerCountry{},
	)
	if err != nil {
		return fmt.Errorf("GORM AutoMigrate failed: %w", err)
	}
	// at most one open-ended name per individual, also under concurrent writers
	if err := db.Exec(singleCurrentNameIndex).Error; err != nil {
		return fmt.Errorf("failed to create current name index: %w", err)
	}
	log.Println("GORM AutoMigrate completed successfully.")
	return nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) {
	sqlDB, err := db.DB()
	if err != nil {
		log.Printf("warning: failed to get sql.DB for close: %v", err)
		return
	}
	if err := sqlDB.Close(); err != nil {
		log.Printf("warning: failed to close database: %v", err)
	}
}
