package database

import (
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"gorm.io/gorm"

	"github.com/camden-git/genealogybackend/config"
)

// SQL gives hand-built squirrel queries access to the same pool GORM uses.
type SQL struct {
	DB      *sql.DB
	Builder sq.StatementBuilderType
}

// NewSQL wraps the GORM connection with a statement builder using the
// driver's placeholder style.
func NewSQL(db *gorm.DB, driver string) (*SQL, error) {
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB from GORM: %w", err)
	}
	var placeholder sq.PlaceholderFormat = sq.Question
	if driver == config.DriverPostgres {
		placeholder = sq.Dollar
	}
	return &SQL{
		DB:      sqlDB,
		Builder: sq.StatementBuilder.PlaceholderFormat(placeholder),
	}, nil
}
