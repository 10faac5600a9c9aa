package services

import (
	"fmt"
	"sort"
	"strings"

	"github.com/facette/natsort"

	"github.com/camden-git/genealogybackend/database"
	"github.com/camden-git/genealogybackend/models"
)

// sortIndividuals orders a loaded list in place. Names must be preloaded for
// the name orders.
func sortIndividuals(individuals []models.Individual, order string) error {
	if order == "" {
		order = database.DefaultSortOrder
	}
	if !database.IsValidSortOrder(order) {
		return &models.ValidationError{Field: "sort", Err: fmt.Errorf("%w: %q", models.ErrInvalidEnum, order)}
	}

	byID := func(i, j int) bool { return individuals[i].ID < individuals[j].ID }
	var less func(i, j int) bool

	switch order {
	case database.SortCreatedDesc:
		less = func(i, j int) bool {
			a, b := individuals[i].CreatedAt, individuals[j].CreatedAt
			if !a.Equal(b) {
				return a.After(b)
			}
			return individuals[i].ID > individuals[j].ID
		}
	case database.SortCreatedAsc:
		less = func(i, j int) bool {
			a, b := individuals[i].CreatedAt, individuals[j].CreatedAt
			if !a.Equal(b) {
				return a.Before(b)
			}
			return byID(i, j)
		}
	case database.SortNameAsc, database.SortNameNat:
		names := make(map[uint]string, len(individuals))
		for idx := range individuals {
			names[individuals[idx].ID] = strings.ToLower(individuals[idx].DisplayName())
		}
		natural := order == database.SortNameNat
		less = func(i, j int) bool {
			a, b := names[individuals[i].ID], names[individuals[j].ID]
			if a == b {
				return byID(i, j)
			}
			if natural {
				return natsort.Compare(a, b)
			}
			return a < b
		}
	case database.SortBirthAsc:
		// unknown birth dates sort last
		less = func(i, j int) bool {
			a, b := individuals[i].DateOfBirth, individuals[j].DateOfBirth
			switch {
			case a == nil && b == nil:
				return byID(i, j)
			case a == nil:
				return false
			case b == nil:
				return true
			case !a.Equal(*b):
				return a.Before(*b)
			default:
				return byID(i, j)
			}
		}
	}

	sort.SliceStable(individuals, less)
	return nil
}
