// Package httpapi exposes the asset registry over a JSON HTTP API.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"github.com/dkovalev/assetvault/internal/logging"
	"github.com/dkovalev/assetvault/internal/server/config"
	"github.com/dkovalev/assetvault/internal/server/services"
)

type Server struct {
	userService    *services.UserService
	assetService   *services.AssetService
	logger         logging.Logger
	jwtSecret      []byte
	maxUploadBytes int64
}

func NewServer(us *services.UserService, as *services.AssetService, cfg *config.Config, logger logging.Logger) *Server {
	return &Server{
		userService:    us,
		assetService:   as,
		logger:         logger,
		jwtSecret:      []byte(cfg.SecretKey),
		maxUploadBytes: cfg.MaxUploadBytes,
	}
}

// Routes assembles the chi router: public account endpoints plus the
// authenticated asset endpoints.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(rateLimit(rate.NewLimiter(50, 100)))

	r.Post("/api/users/register", s.handleRegister)
	r.Post("/api/users/login", s.handleLogin)

	r.Group(func(r chi.Router) {
		r.Use(s.requireAuth)

		r.Get("/api/assets/check", s.handleCheck)
		r.Post("/api/assets", s.handleUpload)
		r.Post("/api/assets/{assetID}/providers/{providerID}", s.handleLink)
	})

	return r
}

func (s *Server) Handler() http.Handler { return s.Routes() }
