package handler

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/cors"

	"github.com/oggyb/matchfeed/internal/app"
	svcErr "github.com/oggyb/matchfeed/internal/errors"
	"github.com/oggyb/matchfeed/internal/middleware"
	"github.com/oggyb/matchfeed/internal/service/auth"
	"github.com/oggyb/matchfeed/internal/service/feed"
	"github.com/oggyb/matchfeed/internal/service/match"
	"github.com/oggyb/matchfeed/internal/service/messaging"
	"github.com/oggyb/matchfeed/internal/service/profile"
	"github.com/oggyb/matchfeed/internal/service/safety"
	"github.com/oggyb/matchfeed/internal/storage"
)

// NewRouter builds the API: services, handlers, middleware and routes.
func NewRouter(appCtx *app.AppContext) http.Handler {
	cfg := appCtx.Config

	matchSvc := match.NewService(appCtx)
	authHandler := NewAuthHandler(auth.NewService(appCtx))
	feedHandler := NewFeedHandler(feed.NewService(appCtx), matchSvc)
	matchHandler := NewMatchHandler(matchSvc, messaging.NewService(appCtx))
	safetyHandler := NewSafetyHandler(safety.NewService(appCtx))
	profileHandler := NewProfileHandler(profile.NewService(appCtx), cfg.Storage.MaxUploadBytes)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestLogger)
	r.Use(chimw.Recoverer)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, svcErr.NotFound("Route not found"))
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorBody{
			Code:    string(svcErr.CodeBadInput),
			Message: "Method not allowed",
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	})

	if strings.EqualFold(cfg.Storage.Driver, "local") {
		prefix := strings.TrimSuffix(storage.LocalURLPrefix, "/")
		fs := http.StripPrefix(prefix, http.FileServer(http.Dir(cfg.Storage.UploadDir)))
		r.Handle(prefix+"/*", fs)
	}

	r.Route("/auth", func(r chi.Router) {
		r.Use(middleware.RateLimit(cfg.RateLimit.AuthRPS, cfg.RateLimit.AuthBurst))
		r.Post("/register", authHandler.HandleRegister)
		r.Post("/login", authHandler.HandleLogin)
		r.Post("/refresh", authHandler.HandleRefresh)
		r.Post("/logout", authHandler.HandleLogout)
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.JWTAuth(appCtx.Tokens))

		r.Get("/feed", feedHandler.HandleFeed)
		r.Post("/like", feedHandler.HandleLike)

		r.Get("/matches", matchHandler.HandleListMatches)
		r.Get("/matches/{id}/messages", matchHandler.HandleListMessages)
		r.Post("/matches/{id}/messages", matchHandler.HandlePostMessage)

		r.Post("/blocks", safetyHandler.HandleBlock)
		r.Delete("/blocks/{blockedUserId}", safetyHandler.HandleUnblock)
		r.Post("/reports", safetyHandler.HandleReport)

		r.Get("/me", profileHandler.HandleGetMe)
		r.Patch("/me", profileHandler.HandleUpdateMe)
		r.Get("/me/preferences", profileHandler.HandleGetPreferences)
		r.Patch("/me/preferences", profileHandler.HandleUpdatePreferences)
		r.Get("/me/photos", profileHandler.HandleListPhotos)
		r.Post("/me/photos", profileHandler.HandleUploadPhoto)
		r.Delete("/me/photos/{id}", profileHandler.HandleDeletePhoto)
	})

	return cors.New(cors.Options{
		AllowedOrigins:   []string{cfg.HTTP.CORSOrigin},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
	}).Handler(r)
}
