package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"

	"github.com/camden-git/genealogybackend/models"
)

var formerCountryColumns = []string{"id", "former_name", "modern_name", "date_from", "date_to"}

func scanFormerCountries(rows *sql.Rows) ([]models.FormerCountry, error) {
	defer rows.Close()
	entries := []models.FormerCountry{}
	for rows.Next() {
		var fc models.FormerCountry
		var from, to sql.NullTime
		if err := rows.Scan(&fc.ID, &fc.FormerName, &fc.ModernName, &from, &to); err != nil {
			return nil, fmt.Errorf("failed to scan former country row: %w", err)
		}
		if from.Valid {
			t := from.Time
			fc.DateFrom = &t
		}
		if to.Valid {
			t := to.Time
			fc.DateTo = &t
		}
		entries = append(entries, fc)
	}
	if err := rows.Err(); err != nil {
		return entries, fmt.Errorf("error iterating former country rows: %w", err)
	}
	return entries, nil
}

func (s *SQL) queryFormerCountries(ctx context.Context, queryBuilder sq.SelectBuilder, label string) ([]models.FormerCountry, error) {
	sqlStr, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build SQL for %s: %w", label, err)
	}
	rows, err := s.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute %s query: %w", label, err)
	}
	return scanFormerCountries(rows)
}

// ListFormerCountries returns the whole lookup table ordered by former name
// and validity start.
func (s *SQL) ListFormerCountries(ctx context.Context) ([]models.FormerCountry, error) {
	queryBuilder := s.Builder.Select(formerCountryColumns...).
		From("former_countries").
		OrderBy("former_name ASC", "date_from ASC")
	return s.queryFormerCountries(ctx, queryBuilder, "ListFormerCountries")
}

// FindFormerCountriesByName returns every row for a historical name, case-insensitively.
func (s *SQL) FindFormerCountriesByName(ctx context.Context, formerName string) ([]models.FormerCountry, error) {
	queryBuilder := s.Builder.Select(formerCountryColumns...).
		From("former_countries").
		Where(sq.Eq{"LOWER(former_name)": strings.ToLower(strings.TrimSpace(formerName))}).
		OrderBy("date_from ASC")
	return s.queryFormerCountries(ctx, queryBuilder, "FindFormerCountriesByName")
}

// FormerNamesOf lists the distinct historical names that map to a modern country.
func (s *SQL) FormerNamesOf(ctx context.Context, modernName string) ([]string, error) {
	queryBuilder := s.Builder.Select("DISTINCT former_name").
		From("former_countries").
		Where(sq.Eq{"LOWER(modern_name)": strings.ToLower(strings.TrimSpace(modernName))}).
		OrderBy("former_name ASC")
	sqlStr, args, err := queryBuilder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build SQL for FormerNamesOf: %w", err)
	}
	rows, err := s.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute FormerNamesOf query for %s: %w", modernName, err)
	}
	defer rows.Close()
	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan former name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
