package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/camden-git/genealogybackend/auth"
	"github.com/camden-git/genealogybackend/config"
	"github.com/camden-git/genealogybackend/database"
	"github.com/camden-git/genealogybackend/media"
	"github.com/camden-git/genealogybackend/models"
	"github.com/camden-git/genealogybackend/repository"
	"github.com/camden-git/genealogybackend/services"
)

type codeNotifier struct {
	mu    sync.Mutex
	codes map[string]string
}

func (n *codeNotifier) SendConfirmationCode(email, code string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.codes[email] = code
	return nil
}

func (n *codeNotifier) SendPasswordReset(string, string) error { return nil }

type testServer struct {
	handler  http.Handler
	notifier *codeNotifier
	authSvc  *services.AuthService
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	db, err := database.OpenInMemory(t.Name())
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { database.Close(db) })

	seed := []models.FormerCountry{{FormerName: "Ceylon", ModernName: "Sri Lanka"}}
	if _, err := database.SeedFormerCountries(db, seed); err != nil {
		t.Fatalf("seed: %v", err)
	}
	sqlDB, err := database.NewSQL(db, config.DriverSQLite)
	if err != nil {
		t.Fatalf("sql: %v", err)
	}
	countries := services.NewCountryService(sqlDB)
	if err := countries.Reload(context.Background()); err != nil {
		t.Fatalf("reload: %v", err)
	}

	store, err := media.NewLocalStorage(t.TempDir(), map[media.AssetType]string{
		media.AssetTypePortrait:  config.DefaultPortraitsSubDir,
		media.AssetTypeThumbnail: config.DefaultThumbnailsSubDir,
	})
	if err != nil {
		t.Fatalf("storage: %v", err)
	}

	issuer := auth.NewIssuer("handler-test-secret", time.Hour)
	notifier := &codeNotifier{codes: map[string]string{}}
	authSvc := services.NewAuthService(db, issuer, notifier, models.LoginPolicy{MaxAttempts: 2, Cooldown: time.Minute}, time.Hour)
	individuals := services.NewIndividualService(db, sqlDB, countries, media.NewProcessor(store), nil, nil)
	relationships := services.NewRelationshipService(db, nil)

	rt := &Router{
		Auth:               NewAuthHandler(authSvc),
		Individuals:        &IndividualHandler{Individuals: individuals, Relationships: relationships, Countries: countries, MaxUploadBytes: 1 << 20},
		Relationships:      &RelationshipHandler{Relationships: relationships},
		Countries:          &CountryHandler{Countries: countries},
		Authenticator:      &Authenticator{Issuer: issuer, Users: repository.NewGormUserRepository(db)},
		Store:              store,
		PortraitsSubDir:    config.DefaultPortraitsSubDir,
		ThumbnailsSubDir:   config.DefaultThumbnailsSubDir,
		CORSAllowedOrigins: []string{"http://localhost:5173"},
	}
	return &testServer{handler: rt.Handler(), notifier: notifier, authSvc: authSvc}
}

func (s *testServer) do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	return rec
}

// editor registers, confirms and logs in a user, returning its token
func (s *testServer) editor(t *testing.T, email string) string {
	t.Helper()
	if rec := s.do(t, "POST", "/api/auth/register", "", map[string]string{"email": email, "password": "long-password"}); rec.Code != http.StatusCreated {
		t.Fatalf("register: %d %s", rec.Code, rec.Body)
	}
	code := s.notifier.codes[email]
	if rec := s.do(t, "POST", "/api/auth/confirm", "", map[string]string{"email": email, "code": code}); rec.Code != http.StatusOK {
		t.Fatalf("confirm: %d %s", rec.Code, rec.Body)
	}
	return s.login(t, email, "long-password")
}

func (s *testServer) login(t *testing.T, email, password string) string {
	t.Helper()
	rec := s.do(t, "POST", "/api/auth/login", "", map[string]string{"email": email, "password": password})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: %d %s", rec.Code, rec.Body)
	}
	var result struct {
		Token string `json:"token"`
	}
	decode(t, rec, &result)
	return result.Token
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, dst interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), dst); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body APIErrorResponse
	decode(t, rec, &body)
	if len(body.Errors) != 1 {
		t.Fatalf("expected one error, got %s", rec.Body)
	}
	return body.Errors[0].Code
}

func (s *testServer) createIndividual(t *testing.T, token string, body map[string]interface{}) uint {
	t.Helper()
	rec := s.do(t, "POST", "/api/individuals", token, body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create individual: %d %s", rec.Code, rec.Body)
	}
	var created struct {
		ID uint `json:"id"`
	}
	decode(t, rec, &created)
	return created.ID
}

func TestWritesRequireConfirmedUser(t *testing.T) {
	s := newTestServer(t)
	body := map[string]interface{}{"names": []map[string]string{{"given_name": "Ada"}}}

	if rec := s.do(t, "POST", "/api/individuals", "", body); rec.Code != http.StatusUnauthorized {
		t.Fatalf("anonymous write: expected 401, got %d", rec.Code)
	}

	s.do(t, "POST", "/api/auth/register", "", map[string]string{"email": "new@example.com", "password": "long-password"})
	unconfirmed := s.login(t, "new@example.com", "long-password")
	rec := s.do(t, "POST", "/api/individuals", unconfirmed, body)
	if rec.Code != http.StatusForbidden || errorCode(t, rec) != "email_unconfirmed" {
		t.Fatalf("unconfirmed write: expected 403 email_unconfirmed, got %d %s", rec.Code, rec.Body)
	}

	if rec := s.do(t, "POST", "/api/individuals", "not-a-token", body); rec.Code != http.StatusUnauthorized {
		t.Fatalf("bad token: expected 401, got %d", rec.Code)
	}
}

func TestIndividualLifecycle(t *testing.T) {
	s := newTestServer(t)
	token := s.editor(t, "editor@example.com")

	id := s.createIndividual(t, token, map[string]interface{}{
		"date_of_birth": "1950-04-02",
		"birth_country": "Ceylon",
		"gender":        "female",
		"names":         []map[string]string{{"given_name": "Anula", "surname": "Perera"}},
	})

	rec := s.do(t, "GET", "/api/individuals/"+itoa(id), "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("get: %d %s", rec.Code, rec.Body)
	}
	var got struct {
		DisplayName        string  `json:"display_name"`
		BirthCountryModern *string `json:"birth_country_modern"`
		Names              []models.Name
	}
	decode(t, rec, &got)
	if got.DisplayName != "Anula Perera" || got.BirthCountryModern == nil || *got.BirthCountryModern != "Sri Lanka" {
		t.Fatalf("unexpected individual %+v", got)
	}

	rec = s.do(t, "POST", "/api/individuals/"+itoa(id)+"/names", token, map[string]string{"given_name": "Anula", "surname": "Silva"})
	if rec.Code != http.StatusConflict || errorCode(t, rec) != "duplicate_current_name" {
		t.Fatalf("second current name: expected 409, got %d %s", rec.Code, rec.Body)
	}

	rec = s.do(t, "PUT", "/api/individuals/"+itoa(id), token, map[string]string{"date_of_death": "1940-01-01"})
	if rec.Code != http.StatusUnprocessableEntity || errorCode(t, rec) != "death_before_birth" {
		t.Fatalf("death before birth: expected 422, got %d %s", rec.Code, rec.Body)
	}

	rec = s.do(t, "POST", "/api/individuals/"+itoa(id)+"/occupations", token, map[string]string{
		"title": "Teacher", "date_from": "1975-01-01", "date_to": "1970-01-01",
	})
	if rec.Code != http.StatusUnprocessableEntity || errorCode(t, rec) != "invalid_interval" {
		t.Fatalf("bad interval: expected 422, got %d %s", rec.Code, rec.Body)
	}

	rec = s.do(t, "POST", "/api/individuals/9999/names", token, map[string]string{"given_name": "Nobody"})
	if rec.Code != http.StatusNotFound || errorCode(t, rec) != "individual_not_found" {
		t.Fatalf("missing owner: expected 404, got %d %s", rec.Code, rec.Body)
	}

	rec = s.do(t, "POST", "/api/individuals", token, map[string]interface{}{"date_of_birth": "02/04/1950"})
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad date: expected 400, got %d %s", rec.Code, rec.Body)
	}
}

func TestPrivateIndividualsNeedAuthentication(t *testing.T) {
	s := newTestServer(t)
	token := s.editor(t, "private@example.com")
	id := s.createIndividual(t, token, map[string]interface{}{
		"is_private": true,
		"names":      []map[string]string{{"given_name": "Hidden"}},
	})

	if rec := s.do(t, "GET", "/api/individuals/"+itoa(id), "", nil); rec.Code != http.StatusNotFound {
		t.Fatalf("anonymous read: expected 404, got %d", rec.Code)
	}
	if rec := s.do(t, "GET", "/api/individuals/"+itoa(id), token, nil); rec.Code != http.StatusOK {
		t.Fatalf("authenticated read: expected 200, got %d", rec.Code)
	}

	rec := s.do(t, "GET", "/api/individuals", "", nil)
	var list []json.RawMessage
	decode(t, rec, &list)
	if len(list) != 0 {
		t.Fatalf("anonymous list leaked %d individuals", len(list))
	}
}

func TestRelationshipRoutes(t *testing.T) {
	s := newTestServer(t)
	token := s.editor(t, "family@example.com")
	parent := s.createIndividual(t, token, map[string]interface{}{"names": []map[string]string{{"given_name": "Parent"}}})
	child := s.createIndividual(t, token, map[string]interface{}{"names": []map[string]string{{"given_name": "Child"}}})

	rec := s.do(t, "POST", "/api/relationships/parents", token, map[string]interface{}{"parent_id": parent, "child_id": child})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add parent: %d %s", rec.Code, rec.Body)
	}
	rec = s.do(t, "POST", "/api/relationships/parents", token, map[string]interface{}{"parent_id": child, "child_id": parent})
	if rec.Code != http.StatusUnprocessableEntity || errorCode(t, rec) != "ancestry_cycle" {
		t.Fatalf("cycle: expected 422, got %d %s", rec.Code, rec.Body)
	}
	rec = s.do(t, "POST", "/api/relationships/siblings", token, map[string]interface{}{"sibling_1_id": child, "sibling_2_id": child})
	if rec.Code != http.StatusUnprocessableEntity || errorCode(t, rec) != "self_relationship" {
		t.Fatalf("self sibling: expected 422, got %d %s", rec.Code, rec.Body)
	}

	rec = s.do(t, "POST", "/api/relationships/marriages", token, map[string]interface{}{
		"spouse_1_id": parent, "spouse_2_id": child, "marriage_date": "1990-01-01",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("add marriage: %d %s", rec.Code, rec.Body)
	}
	var marriage models.MarriedTo
	decode(t, rec, &marriage)
	end := map[string]string{"marriage_end_date": "2000-01-01", "end_reason": "divorce"}
	if rec := s.do(t, "PUT", "/api/relationships/marriages/"+itoa(marriage.ID)+"/end", token, end); rec.Code != http.StatusOK {
		t.Fatalf("end marriage: %d %s", rec.Code, rec.Body)
	}
	rec = s.do(t, "PUT", "/api/relationships/marriages/"+itoa(marriage.ID)+"/end", token, end)
	if rec.Code != http.StatusConflict || errorCode(t, rec) != "marriage_already_ended" {
		t.Fatalf("end twice: expected 409, got %d %s", rec.Code, rec.Body)
	}

	rec = s.do(t, "GET", "/api/individuals/"+itoa(child)+"/family", "", nil)
	var family services.Family
	decode(t, rec, &family)
	if len(family.Parents) != 1 || family.Parents[0].IndividualID != parent || len(family.Marriages) != 1 {
		t.Fatalf("unexpected family %+v", family)
	}
}

func TestLoginCooldownReturns429(t *testing.T) {
	s := newTestServer(t)
	s.editor(t, "locked@example.com")
	bad := map[string]string{"email": "locked@example.com", "password": "wrong-password"}

	for i := 0; i < 2; i++ {
		if rec := s.do(t, "POST", "/api/auth/login", "", bad); rec.Code != http.StatusUnauthorized {
			t.Fatalf("attempt %d: expected 401, got %d", i+1, rec.Code)
		}
	}
	rec := s.do(t, "POST", "/api/auth/login", "", map[string]string{"email": "locked@example.com", "password": "long-password"})
	if rec.Code != http.StatusTooManyRequests || errorCode(t, rec) != "login_cooldown" {
		t.Fatalf("expected 429 login_cooldown, got %d %s", rec.Code, rec.Body)
	}
}

func TestRegisterDuplicateReturns409(t *testing.T) {
	s := newTestServer(t)
	body := map[string]string{"email": "dupe@example.com", "password": "long-password"}
	s.do(t, "POST", "/api/auth/register", "", body)
	rec := s.do(t, "POST", "/api/auth/register", "", body)
	if rec.Code != http.StatusConflict || errorCode(t, rec) != "duplicate_email" {
		t.Fatalf("expected 409 duplicate_email, got %d %s", rec.Code, rec.Body)
	}
}

func TestNormalizeCountryRoute(t *testing.T) {
	s := newTestServer(t)
	rec := s.do(t, "GET", "/api/countries/normalize?name=ceylon&date=1950-01-01", "", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("normalize: %d %s", rec.Code, rec.Body)
	}
	var got struct {
		Modern string `json:"modern"`
	}
	decode(t, rec, &got)
	if got.Modern != "Sri Lanka" {
		t.Fatalf("expected Sri Lanka, got %q", got.Modern)
	}
	if rec := s.do(t, "GET", "/api/countries/normalize", "", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("missing name: expected 400, got %d", rec.Code)
	}
}

func TestUploadAndServePortrait(t *testing.T) {
	s := newTestServer(t)
	token := s.editor(t, "uploader@example.com")
	id := s.createIndividual(t, token, map[string]interface{}{"names": []map[string]string{{"given_name": "Pictured"}}})

	img := image.NewRGBA(image.Rect(0, 0, 30, 20))
	img.Set(1, 1, color.RGBA{B: 255, A: 255})
	var pic bytes.Buffer
	if err := png.Encode(&pic, img); err != nil {
		t.Fatalf("encode: %v", err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	part, err := mw.CreateFormFile("file", "portrait.png")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	part.Write(pic.Bytes())
	mw.WriteField("caption", "Studio portrait")
	mw.Close()

	req := httptest.NewRequest("POST", "/api/individuals/"+itoa(id)+"/images/upload", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	s.handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusAccepted {
		t.Fatalf("upload: %d %s", rec.Code, rec.Body)
	}
	var uploaded models.Image
	decode(t, rec, &uploaded)
	if !strings.HasPrefix(uploaded.URL, "/api/portraits/") || uploaded.ThumbnailStatus != models.StatusPending {
		t.Fatalf("unexpected upload %+v", uploaded)
	}

	served := s.do(t, "GET", uploaded.URL, "", nil)
	if served.Code != http.StatusOK || !bytes.Equal(served.Body.Bytes(), pic.Bytes()) {
		t.Fatalf("serve portrait: %d", served.Code)
	}
	if rec := s.do(t, "GET", "/api/portraits/../secrets", "", nil); rec.Code == http.StatusOK {
		t.Fatalf("traversal should not be served")
	}
}

func itoa(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}
