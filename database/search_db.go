package database

import (
	"context"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

// IndividualSearch filters individuals by any of their names and by birth country.
type IndividualSearch struct {
	Query          string   // substring of given, middle or surname
	BirthCountries []string // matched case-insensitively; empty means any
	IncludePrivate bool
}

// SearchIndividualIDs returns matching individual ids in ascending order.
func (s *SQL) SearchIndividualIDs(ctx context.Context, params IndividualSearch) ([]uint, error) {
	queryBuilder := s.Builder.Select("DISTINCT i.id").
		From("individuals i").
		LeftJoin("names n ON n.individual_id = i.id")

	if q := strings.ToLower(strings.TrimSpace(params.Query)); q != "" {
		like := "%" + q + "%"
		queryBuilder = queryBuilder.Where(sq.Or{
			sq.Expr("LOWER(n.given_name) LIKE ?", like),
			sq.Expr("LOWER(n.surname) LIKE ?", like),
			sq.Expr("LOWER(COALESCE(n.middle_name, '')) LIKE ?", like),
		})
	}

	if len(params.BirthCountries) > 0 {
		lowered := make([]string, 0, len(params.BirthCountries))
		for _, c := range params.BirthCountries {
			lowered = append(lowered, strings.ToLower(strings.TrimSpace(c)))
		}
		queryBuilder = queryBuilder.Where(sq.Eq{"LOWER(i.birth_country)": lowered})
	}

	if !params.IncludePrivate {
		queryBuilder = queryBuilder.Where(sq.Eq{"i.is_private": false})
	}

	sqlStr, args, err := queryBuilder.OrderBy("i.id ASC").ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build SQL for SearchIndividualIDs: %w", err)
	}

	rows, err := s.DB.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to execute SearchIndividualIDs query: %w", err)
	}
	defer rows.Close()

	ids := []uint{}
	for rows.Next() {
		var id uint
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan individual id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return ids, fmt.Errorf("error iterating search rows: %w", err)
	}
	return ids, nil
}
