package database

import (
	"fmt"
	"strings"

	"gorm.io/gorm"

	"github.com/camden-git/genealogybackend/config"
)

// MemoryDSN builds a named shared-cache in-memory sqlite DSN.
func MemoryDSN(name string) string {
	safe := strings.NewReplacer("/", "_", " ", "_", "#", "_", "?", "_", "&", "_").Replace(name)
	return config.SQLiteDSN(fmt.Sprintf("file:%s?mode=memory&cache=shared", safe))
}

// OpenInMemory opens and migrates a throwaway sqlite database. It backs
// DATABASE_PATH=:memory: in dev mode and the package tests.
func OpenInMemory(name string) (*gorm.DB, error) {
	db, err := InitGormDB(config.DriverSQLite, MemoryDSN(name), false)
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// one connection keeps the shared-cache database free of table locks
	sqlDB.SetMaxOpenConns(1)

	if err := AutoMigrateModels(db); err != nil {
		Close(db)
		return nil, err
	}
	return db, nil
}
