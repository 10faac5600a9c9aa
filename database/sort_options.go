package database

const (
	SortCreatedDesc = "created_desc"
	SortCreatedAsc  = "created_asc"
	SortNameAsc     = "name_asc"
	SortNameNat     = "name_nat"
	SortBirthAsc    = "birth_asc"
)

const DefaultSortOrder = SortCreatedDesc

// IsValidSortOrder checks if a string is a valid sort order constant
func IsValidSortOrder(order string) bool {
	switch order {
	case SortCreatedDesc, SortCreatedAsc, SortNameAsc, SortNameNat, SortBirthAsc:
		return true
	default:
		return false
	}
}
