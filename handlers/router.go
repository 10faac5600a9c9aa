package handlers

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/camden-git/genealogybackend/media"
)

// Router holds everything the HTTP surface needs
type Router struct {
	Auth          *AuthHandler
	Individuals   *IndividualHandler
	Relationships *RelationshipHandler
	Countries     *CountryHandler
	Authenticator *Authenticator

	// WebSocket serves the change feed; nil disables it
	WebSocket http.HandlerFunc

	// Store serves uploaded assets; nil disables the asset routes
	Store            media.Store
	PortraitsSubDir  string
	ThumbnailsSubDir string

	CORSAllowedOrigins []string
	RequestTimeout     time.Duration
}

func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()

	corsHandler := cors.New(cors.Options{
		AllowedOrigins:   rt.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	})

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(corsHandler.Handler)

	writer := func(r chi.Router) {
		r.Use(rt.Authenticator.Required)
		r.Use(RequireConfirmedEmail)
	}

	r.Route("/api", func(r chi.Router) {
		// the websocket connection outlives any request timeout
		if rt.WebSocket != nil {
			r.Get("/ws", rt.WebSocket)
		}

		r.Group(func(r chi.Router) {
			if rt.RequestTimeout > 0 {
				r.Use(middleware.Timeout(rt.RequestTimeout))
			}

			r.Route("/auth", func(r chi.Router) {
				r.Post("/register", rt.Auth.Register)
				r.Post("/login", rt.Auth.Login)
				r.Post("/confirm", rt.Auth.Confirm)
				r.Post("/confirm/resend", rt.Auth.ResendConfirmation)
				r.Post("/password-reset", rt.Auth.RequestPasswordReset)
				r.Post("/password-reset/redeem", rt.Auth.RedeemPasswordReset)
				r.Group(func(r chi.Router) {
					r.Use(rt.Authenticator.Required)
					r.Get("/me", rt.Auth.CurrentUser)
					r.Put("/me/password", rt.Auth.ChangePassword)
					r.Put("/me/profile", rt.Auth.LinkProfile)
				})
			})

			r.Route("/individuals", func(r chi.Router) {
				r.Group(func(r chi.Router) {
					r.Use(rt.Authenticator.Optional)
					r.Get("/", rt.Individuals.ListIndividuals)
					r.Get("/{individual_id}", rt.Individuals.GetIndividual)
					r.Get("/{individual_id}/family", rt.Individuals.GetFamily)
					r.Get("/{individual_id}/names", rt.Individuals.ListNames)
					r.Get("/{individual_id}/occupations", rt.Individuals.ListOccupations)
					r.Get("/{individual_id}/images", rt.Individuals.ListImages)
				})
				r.Group(func(r chi.Router) {
					writer(r)
					r.Post("/", rt.Individuals.CreateIndividual)
					r.Put("/{individual_id}", rt.Individuals.UpdateIndividual)
					r.Post("/{individual_id}/names", rt.Individuals.AddName)
					r.Put("/{individual_id}/names/{name_id}", rt.Individuals.UpdateName)
					r.Post("/{individual_id}/occupations", rt.Individuals.AddOccupation)
					r.Put("/{individual_id}/occupations/{occupation_id}", rt.Individuals.UpdateOccupation)
					r.Post("/{individual_id}/images", rt.Individuals.AddImage)
					r.Post("/{individual_id}/images/upload", rt.Individuals.UploadImage)
					r.Delete("/{individual_id}/images/{image_id}", rt.Individuals.DeleteImage)
					r.Put("/{individual_id}/profile_image", rt.Individuals.SetProfileImage)
				})
			})

			r.Route("/relationships", func(r chi.Router) {
				writer(r)
				r.Post("/parents", rt.Relationships.AddParent)
				r.Delete("/parents/{edge_id}", rt.Relationships.RemoveParent)
				r.Post("/marriages", rt.Relationships.AddMarriage)
				r.Put("/marriages/{edge_id}/end", rt.Relationships.EndMarriage)
				r.Post("/siblings", rt.Relationships.AddSibling)
				r.Delete("/siblings/{edge_id}", rt.Relationships.RemoveSibling)
			})

			r.Route("/countries", func(r chi.Router) {
				r.Get("/former", rt.Countries.ListFormerCountries)
				r.Get("/normalize", rt.Countries.Normalize)
			})

			if rt.Store != nil {
				r.Get("/"+rt.PortraitsSubDir+"/*", AssetServer(rt.Store, rt.PortraitsSubDir))
				r.Get("/"+rt.ThumbnailsSubDir+"/*", AssetServer(rt.Store, rt.ThumbnailsSubDir))
			}
		})
	})

	return r
}
