package database

import (
	"context"
	"errors"
	"testing"
	"time"

	sq "github.com/Masterminds/squirrel"
	"gorm.io/gorm"

	"github.com/camden-git/genealogybackend/config"
	"github.com/camden-git/genealogybackend/models"
)

func newTestDB(t *testing.T) (*gorm.DB, *SQL) {
	t.Helper()
	db, err := OpenInMemory(t.Name())
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { Close(db) })
	s, err := NewSQL(db, config.DriverSQLite)
	if err != nil {
		t.Fatalf("failed to wrap sql.DB: %v", err)
	}
	return db, s
}

const testSeed = `
former_countries:
  - former_name: Prussia
    modern_name: Germany
    date_from: "1701-01-18"
    date_to: "1947-02-25"
  - former_name: East Germany
    modern_name: Germany
    date_from: "1949-10-07"
    date_to: "1990-10-03"
  - former_name: Ceylon
    modern_name: Sri Lanka
`

func TestParseFormerCountries(t *testing.T) {
	entries, err := ParseFormerCountries([]byte(testSeed))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].DateFrom == nil || entries[0].DateFrom.Year() != 1701 {
		t.Fatalf("date_from not parsed: %+v", entries[0])
	}
	if entries[2].DateFrom != nil || entries[2].DateTo != nil {
		t.Fatalf("omitted dates should stay nil")
	}
}

func TestParseFormerCountries_RejectsBadInterval(t *testing.T) {
	bad := `
former_countries:
  - former_name: Nowhere
    modern_name: Elsewhere
    date_from: "1900-01-01"
    date_to: "1800-01-01"
`
	if _, err := ParseFormerCountries([]byte(bad)); err == nil {
		t.Fatalf("expected interval error")
	}
}

func TestSeedFormerCountries_Idempotent(t *testing.T) {
	db, s := newTestDB(t)
	entries, err := ParseFormerCountries([]byte(testSeed))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	n, err := SeedFormerCountries(db, entries)
	if err != nil || n != 3 {
		t.Fatalf("first seed: n=%d err=%v", n, err)
	}
	n, err = SeedFormerCountries(db, entries)
	if err != nil || n != 0 {
		t.Fatalf("second seed should insert nothing: n=%d err=%v", n, err)
	}

	all, err := s.ListFormerCountries(context.Background())
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(all))
	}
}

func TestFormerCountryLookups(t *testing.T) {
	db, s := newTestDB(t)
	entries, _ := ParseFormerCountries([]byte(testSeed))
	if _, err := SeedFormerCountries(db, entries); err != nil {
		t.Fatalf("seed: %v", err)
	}
	ctx := context.Background()

	rows, err := s.FindFormerCountriesByName(ctx, "  prussia ")
	if err != nil {
		t.Fatalf("find: %v", err)
	}
	if len(rows) != 1 || rows[0].ModernName != "Germany" {
		t.Fatalf("unexpected rows %+v", rows)
	}
	if rows[0].DateTo == nil || rows[0].DateTo.Year() != 1947 {
		t.Fatalf("date_to not scanned: %+v", rows[0])
	}

	names, err := s.FormerNamesOf(ctx, "GERMANY")
	if err != nil {
		t.Fatalf("former names: %v", err)
	}
	if len(names) != 2 || names[0] != "East Germany" || names[1] != "Prussia" {
		t.Fatalf("unexpected former names %v", names)
	}
}

func TestSearchIndividualIDs(t *testing.T) {
	db, s := newTestDB(t)
	prussia := "Prussia"
	germany := "Germany"
	people := []models.Individual{
		{BirthCountry: &prussia, Names: []models.Name{{GivenName: "Otto", Surname: "Lilienthal"}}},
		{BirthCountry: &germany, Names: []models.Name{{GivenName: "Gustav", Surname: "Lilienthal"}}},
		{IsPrivate: true, Names: []models.Name{{GivenName: "Anna", Surname: "Lilienthal"}}},
	}
	for i := range people {
		if err := db.Create(&people[i]).Error; err != nil {
			t.Fatalf("create individual: %v", err)
		}
	}
	ctx := context.Background()

	ids, err := s.SearchIndividualIDs(ctx, IndividualSearch{Query: "lilien"})
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("expected 2 public matches, got %v", ids)
	}

	ids, err = s.SearchIndividualIDs(ctx, IndividualSearch{Query: "lilien", IncludePrivate: true})
	if err != nil || len(ids) != 3 {
		t.Fatalf("expected 3 matches including private, got %v (err %v)", ids, err)
	}

	ids, err = s.SearchIndividualIDs(ctx, IndividualSearch{BirthCountries: []string{"prussia"}})
	if err != nil || len(ids) != 1 || ids[0] != people[0].ID {
		t.Fatalf("expected only the Prussian-born match, got %v (err %v)", ids, err)
	}
}

func TestMemoryDSN(t *testing.T) {
	got := MemoryDSN("TestX/sub case")
	want := "file:TestX_sub_case?mode=memory&cache=shared&_foreign_keys=on"
	if got != want {
		t.Fatalf("MemoryDSN = %q, want %q", got, want)
	}
}

func TestForeignKeysEnforced(t *testing.T) {
	db, _ := newTestDB(t)
	name := models.Name{IndividualID: 4242, GivenName: "Ghost", Surname: "Row", CreatedAt: time.Now()}
	if err := db.Create(&name).Error; err == nil {
		t.Fatalf("expected foreign key violation for missing individual")
	}
}

func TestIsValidSortOrder(t *testing.T) {
	for _, s := range []string{SortCreatedDesc, SortCreatedAsc, SortNameAsc, SortNameNat, SortBirthAsc} {
		if !IsValidSortOrder(s) {
			t.Fatalf("%s should be valid", s)
		}
	}
	if IsValidSortOrder("filename_asc") {
		t.Fatalf("unknown sort order accepted")
	}
}

func TestNewSQLPlaceholders(t *testing.T) {
	db, _ := newTestDB(t)
	tests := []struct {
		driver string
		want   string
	}{
		{config.DriverSQLite, "SELECT x FROM t WHERE a = ?"},
		{config.DriverPostgres, "SELECT x FROM t WHERE a = $1"},
	}
	for _, tt := range tests {
		t.Run(tt.driver, func(t *testing.T) {
			s, err := NewSQL(db, tt.driver)
			if err != nil {
				t.Fatalf("NewSQL: %v", err)
			}
			query, args, err := s.Builder.Select("x").From("t").Where(sq.Eq{"a": 1}).ToSql()
			if err != nil {
				t.Fatalf("ToSql: %v", err)
			}
			if query != tt.want {
				t.Fatalf("query = %q, want %q", query, tt.want)
			}
			if len(args) != 1 || args[0] != 1 {
				t.Fatalf("args = %v, want [1]", args)
			}
		})
	}
}

func TestSingleCurrentNameIndex(t *testing.T) {
	db, _ := newTestDB(t)
	person := models.Individual{}
	if err := db.Create(&person).Error; err != nil {
		t.Fatalf("create individual: %v", err)
	}

	first := models.Name{IndividualID: person.ID, GivenName: "Ida", Surname: "Berg"}
	if err := db.Create(&first).Error; err != nil {
		t.Fatalf("create first current name: %v", err)
	}
	second := models.Name{IndividualID: person.ID, GivenName: "Ida", Surname: "Lund"}
	if err := db.Create(&second).Error; !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Fatalf("expected ErrDuplicatedKey for a second current name, got %v", err)
	}

	closed := models.Name{IndividualID: person.ID, GivenName: "Ida", Surname: "Holm",
		DateFrom: ptrTime(1890, 1, 1), DateTo: ptrTime(1910, 5, 1)}
	if err := db.Create(&closed).Error; err != nil {
		t.Fatalf("closed names are unrestricted: %v", err)
	}
}

func ptrTime(y int, m time.Month, d int) *time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return &t
}
