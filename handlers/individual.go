package handlers

import (
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/camden-git/genealogybackend/models"
	"github.com/camden-git/genealogybackend/services"
)

type IndividualHandler struct {
	Individuals    *services.IndividualService
	Relationships  *services.RelationshipService
	Countries      *services.CountryService
	MaxUploadBytes int64
}

// individualResponse adds the modern names of the recorded countries
type individualResponse struct {
	*models.Individual
	DisplayName        string  `json:"display_name"`
	BirthCountryModern *string `json:"birth_country_modern,omitempty"`
	DeathCountryModern *string `json:"death_country_modern,omitempty"`
}

func (h *IndividualHandler) present(ind *models.Individual) individualResponse {
	return individualResponse{
		Individual:         ind,
		DisplayName:        ind.DisplayName(),
		BirthCountryModern: h.Countries.NormalizePtr(ind.BirthCountry, ind.DateOfBirth),
		DeathCountryModern: h.Countries.NormalizePtr(ind.DeathCountry, ind.DateOfDeath),
	}
}

type namePayload struct {
	GivenName  string  `json:"given_name"`
	MiddleName *string `json:"middle_name"`
	Surname    string  `json:"surname"`
	Title      *string `json:"title"`
	Suffix     *string `json:"suffix"`
	DateFrom   *string `json:"date_from"`
	DateTo     *string `json:"date_to"`
}

func (p namePayload) toModel() (models.Name, error) {
	from, err := parseDatePtr("date_from", p.DateFrom)
	if err != nil {
		return models.Name{}, err
	}
	to, err := parseDatePtr("date_to", p.DateTo)
	if err != nil {
		return models.Name{}, err
	}
	return models.Name{
		GivenName:  p.GivenName,
		MiddleName: p.MiddleName,
		Surname:    p.Surname,
		Title:      p.Title,
		Suffix:     p.Suffix,
		DateFrom:   from,
		DateTo:     to,
	}, nil
}

type occupationPayload struct {
	Title        string  `json:"title"`
	Employer     *string `json:"employer"`
	Municipality *string `json:"municipality"`
	State        *string `json:"state"`
	Country      *string `json:"country"`
	DateFrom     *string `json:"date_from"`
	DateTo       *string `json:"date_to"`
}

func (p occupationPayload) toModel() (models.Occupation, error) {
	from, err := parseDatePtr("date_from", p.DateFrom)
	if err != nil {
		return models.Occupation{}, err
	}
	to, err := parseDatePtr("date_to", p.DateTo)
	if err != nil {
		return models.Occupation{}, err
	}
	return models.Occupation{
		Title:        p.Title,
		Employer:     p.Employer,
		Municipality: p.Municipality,
		State:        p.State,
		Country:      p.Country,
		DateFrom:     from,
		DateTo:       to,
	}, nil
}

type createIndividualPayload struct {
	DateOfBirth       *string       `json:"date_of_birth"`
	BirthMunicipality *string       `json:"birth_municipality"`
	BirthState        *string       `json:"birth_state"`
	BirthCountry      *string       `json:"birth_country"`
	DateOfDeath       *string       `json:"date_of_death"`
	DeathMunicipality *string       `json:"death_municipality"`
	DeathState        *string       `json:"death_state"`
	DeathCountry      *string       `json:"death_country"`
	Gender            string        `json:"gender"`
	Bio               string        `json:"bio"`
	IsPrivate         bool          `json:"is_private"`
	Names             []namePayload `json:"names"`
}

// updateIndividualPayload sets the fields present; clear lists fields to null
type updateIndividualPayload struct {
	DateOfBirth       *string  `json:"date_of_birth"`
	BirthMunicipality *string  `json:"birth_municipality"`
	BirthState        *string  `json:"birth_state"`
	BirthCountry      *string  `json:"birth_country"`
	DateOfDeath       *string  `json:"date_of_death"`
	DeathMunicipality *string  `json:"death_municipality"`
	DeathState        *string  `json:"death_state"`
	DeathCountry      *string  `json:"death_country"`
	Gender            *string  `json:"gender"`
	Bio               *string  `json:"bio"`
	IsPrivate         *bool    `json:"is_private"`
	Clear             []string `json:"clear"`
}

func (h *IndividualHandler) ListIndividuals(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	includePrivate := canSeePrivate(r)

	var (
		individuals []models.Individual
		err         error
	)
	if strings.TrimSpace(q.Get("q")) != "" || strings.TrimSpace(q.Get("country")) != "" {
		individuals, err = h.Individuals.SearchIndividuals(r.Context(), services.SearchParams{
			Query:          q.Get("q"),
			Country:        q.Get("country"),
			Sort:           q.Get("sort"),
			IncludePrivate: includePrivate,
		})
	} else {
		individuals, err = h.Individuals.ListIndividuals(r.Context(), q.Get("sort"), includePrivate)
	}
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	out := make([]individualResponse, 0, len(individuals))
	for i := range individuals {
		out = append(out, h.present(&individuals[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *IndividualHandler) CreateIndividual(w http.ResponseWriter, r *http.Request) {
	var payload createIndividualPayload
	if !decodeBody(w, r, &payload) {
		return
	}
	born, err := parseDatePtr("date_of_birth", payload.DateOfBirth)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	died, err := parseDatePtr("date_of_death", payload.DateOfDeath)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	gender, err := models.ParseGender(payload.Gender)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	names := make([]models.Name, 0, len(payload.Names))
	for _, np := range payload.Names {
		name, err := np.toModel()
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		names = append(names, name)
	}

	individual := &models.Individual{
		DateOfBirth:       born,
		BirthMunicipality: payload.BirthMunicipality,
		BirthState:        payload.BirthState,
		BirthCountry:      payload.BirthCountry,
		DateOfDeath:       died,
		DeathMunicipality: payload.DeathMunicipality,
		DeathState:        payload.DeathState,
		DeathCountry:      payload.DeathCountry,
		Gender:            gender,
		Bio:               payload.Bio,
		IsPrivate:         payload.IsPrivate,
	}
	created, err := h.Individuals.CreateIndividual(r.Context(), individual, names)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, h.present(created))
}

func (h *IndividualHandler) GetIndividual(w http.ResponseWriter, r *http.Request) {
	ids, ok := pathIDs(w, r, "individual_id")
	if !ok {
		return
	}
	individual, err := h.Individuals.GetIndividual(r.Context(), ids[0], canSeePrivate(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.present(individual))
}

func (h *IndividualHandler) UpdateIndividual(w http.ResponseWriter, r *http.Request) {
	ids, ok := pathIDs(w, r, "individual_id")
	if !ok {
		return
	}
	var payload updateIndividualPayload
	if !decodeBody(w, r, &payload) {
		return
	}

	patch := services.IndividualPatch{
		BirthMunicipality: payload.BirthMunicipality,
		BirthState:        payload.BirthState,
		BirthCountry:      payload.BirthCountry,
		DeathMunicipality: payload.DeathMunicipality,
		DeathState:        payload.DeathState,
		DeathCountry:      payload.DeathCountry,
		Bio:               payload.Bio,
		IsPrivate:         payload.IsPrivate,
		Clear:             payload.Clear,
	}
	var err error
	if patch.DateOfBirth, err = parseDatePtr("date_of_birth", payload.DateOfBirth); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if patch.DateOfDeath, err = parseDatePtr("date_of_death", payload.DateOfDeath); err != nil {
		writeServiceError(w, r, err)
		return
	}
	if payload.Gender != nil {
		gender, err := models.ParseGender(*payload.Gender)
		if err != nil {
			writeServiceError(w, r, err)
			return
		}
		patch.Gender = &gender
	}

	updated, err := h.Individuals.UpdateIndividual(r.Context(), ids[0], patch)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.present(updated))
}

func (h *IndividualHandler) GetFamily(w http.ResponseWriter, r *http.Request) {
	ids, ok := pathIDs(w, r, "individual_id")
	if !ok {
		return
	}
	family, err := h.Relationships.GetFamily(r.Context(), ids[0], canSeePrivate(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, family)
}

func (h *IndividualHandler) ListNames(w http.ResponseWriter, r *http.Request) {
	ids, ok := pathIDs(w, r, "individual_id")
	if !ok {
		return
	}
	names, err := h.Individuals.ListNames(r.Context(), ids[0], canSeePrivate(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, names)
}

func (h *IndividualHandler) AddName(w http.ResponseWriter, r *http.Request) {
	ids, ok := pathIDs(w, r, "individual_id")
	if !ok {
		return
	}
	var payload namePayload
	if !decodeBody(w, r, &payload) {
		return
	}
	name, err := payload.toModel()
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if err := h.Individuals.AddName(r.Context(), ids[0], &name); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, name)
}

func (h *IndividualHandler) UpdateName(w http.ResponseWriter, r *http.Request) {
	ids, ok := pathIDs(w, r, "individual_id", "name_id")
	if !ok {
		return
	}
	var payload namePayload
	if !decodeBody(w, r, &payload) {
		return
	}
	name, err := payload.toModel()
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	updated, err := h.Individuals.UpdateName(r.Context(), ids[0], ids[1], name)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *IndividualHandler) ListOccupations(w http.ResponseWriter, r *http.Request) {
	ids, ok := pathIDs(w, r, "individual_id")
	if !ok {
		return
	}
	occupations, err := h.Individuals.ListOccupations(r.Context(), ids[0], canSeePrivate(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, occupations)
}

func (h *IndividualHandler) AddOccupation(w http.ResponseWriter, r *http.Request) {
	ids, ok := pathIDs(w, r, "individual_id")
	if !ok {
		return
	}
	var payload occupationPayload
	if !decodeBody(w, r, &payload) {
		return
	}
	occupation, err := payload.toModel()
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if err := h.Individuals.AddOccupation(r.Context(), ids[0], &occupation); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, occupation)
}

func (h *IndividualHandler) UpdateOccupation(w http.ResponseWriter, r *http.Request) {
	ids, ok := pathIDs(w, r, "individual_id", "occupation_id")
	if !ok {
		return
	}
	var payload occupationPayload
	if !decodeBody(w, r, &payload) {
		return
	}
	occupation, err := payload.toModel()
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	updated, err := h.Individuals.UpdateOccupation(r.Context(), ids[0], ids[1], occupation)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *IndividualHandler) ListImages(w http.ResponseWriter, r *http.Request) {
	ids, ok := pathIDs(w, r, "individual_id")
	if !ok {
		return
	}
	images, err := h.Individuals.ListImages(r.Context(), ids[0], canSeePrivate(r))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, images)
}

// AddImage links an externally hosted image
func (h *IndividualHandler) AddImage(w http.ResponseWriter, r *http.Request) {
	ids, ok := pathIDs(w, r, "individual_id")
	if !ok {
		return
	}
	var payload struct {
		URL     string  `json:"url"`
		Caption *string `json:"caption"`
	}
	if !decodeBody(w, r, &payload) {
		return
	}
	image := &models.Image{URL: payload.URL, Caption: payload.Caption}
	if err := h.Individuals.AddImage(r.Context(), ids[0], image); err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, image)
}

// UploadImage accepts a multipart "file" field and an optional "caption"
func (h *IndividualHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	ids, ok := pathIDs(w, r, "individual_id")
	if !ok {
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes)
	if err := r.ParseMultipartForm(h.MaxUploadBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			WriteAPIError(w, http.StatusRequestEntityTooLarge, "file_too_large", "upload exceeds the configured size limit")
			return
		}
		WriteAPIError(w, http.StatusBadRequest, "invalid_body", "Could not parse multipart form: "+err.Error())
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		WriteAPIError(w, http.StatusBadRequest, "missing_file", "multipart field 'file' is required")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		log.Printf("handlers: failed to read upload for individual %d: %v", ids[0], err)
		WriteAPIError(w, http.StatusBadRequest, "invalid_body", "could not read uploaded file")
		return
	}

	var caption *string
	if c := strings.TrimSpace(r.FormValue("caption")); c != "" {
		caption = &c
	}
	image, err := h.Individuals.UploadImage(r.Context(), ids[0], header.Filename, data, caption)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, image)
}

func (h *IndividualHandler) DeleteImage(w http.ResponseWriter, r *http.Request) {
	ids, ok := pathIDs(w, r, "individual_id", "image_id")
	if !ok {
		return
	}
	if err := h.Individuals.DeleteImage(r.Context(), ids[0], ids[1]); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetProfileImage takes {"image_id": n}; null clears the profile image
func (h *IndividualHandler) SetProfileImage(w http.ResponseWriter, r *http.Request) {
	ids, ok := pathIDs(w, r, "individual_id")
	if !ok {
		return
	}
	var payload struct {
		ImageID *uint `json:"image_id"`
	}
	if !decodeBody(w, r, &payload) {
		return
	}
	updated, err := h.Individuals.SetProfileImage(r.Context(), ids[0], payload.ImageID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, h.present(updated))
}
