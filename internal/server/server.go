// Package server assembles the HTTP API: it builds every domain service from
// the shared infrastructure and mounts their handlers under /api/v1.
package server

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/accounts"
	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/cache"
	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/categories"
	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/comments"
	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/config"
	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/database"
	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/email"
	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/files"
	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/gateway"
	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/languages"
	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/likes"
	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/locations"
	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/otp"
	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/posts"
	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/profiles"
	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/session"
	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/storage"
	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/stories"
)

// EmailServiceName is the Consul name of the email worker.
const EmailServiceName = "email-service"

// Deps are the shared clients the server is built from. Storage and
// Discovery may be nil.
type Deps struct {
	DB        database.Service
	Redis     *redis.Client
	Storage   storage.Service
	Sender    email.Sender
	Discovery gateway.Discoverer
}

// Server holds the dependencies for the HTTP server
type Server struct {
	cfg    *config.Config
	deps   Deps
	logger *slog.Logger

	sessions   session.Manager
	accounts   *accounts.Handler
	profiles   *profiles.Handler
	locations  *locations.Handler
	posts      *posts.Handler
	likes      *likes.Handler
	comments   *comments.Handler
	stories    *stories.Handler
	categories *categories.Handler
	languages  *languages.Handler
	files      *files.Handler
	proxy      *gateway.ProxyHandler
}

// New builds every service and handler.
func New(cfg *config.Config, deps Deps, logger *slog.Logger) (*Server, error) {
	if err := locations.RegisterValidators(); err != nil {
		return nil, fmt.Errorf("register validators: %w", err)
	}

	s := &Server{cfg: cfg, deps: deps, logger: logger}

	c := cache.New(deps.Redis, logger)
	s.sessions = session.NewManager(session.NewRedisStore(deps.Redis), time.Duration(cfg.Session.MaxAge)*time.Second)

	alphabet := otp.Alphanumeric
	if cfg.OTP.Numeric {
		alphabet = otp.Numeric
	}
	codes := otp.NewManager(otp.NewPostgresStore(deps.DB), otp.NewGenerator(cfg.OTP.Length, alphabet, nil), nil, cfg.OTP.Expiry, logger)
	limiter := otp.NewLimiter(deps.Redis, cfg.OTP.Window, cfg.OTP.MaxInWindow, cfg.OTP.Cooldown)

	accountSvc := accounts.NewService(accounts.NewRepository(deps.DB), codes, limiter, deps.Sender,
		s.sessions, accounts.NewPendingEmails(deps.Redis), logger)
	s.accounts = accounts.NewHandler(accountSvc, cfg.Session, logger)

	locationSvc := locations.NewService(locations.NewPostgresStore(deps.DB), c, cfg.Locations, logger)
	s.locations = locations.NewHandler(locationSvc, logger)

	s.profiles = profiles.NewHandler(profiles.NewService(profiles.NewRepository(deps.DB), locationSvc, deps.Storage, logger), logger)

	categorySvc := categories.NewService(deps.DB)
	s.categories = categories.NewHandler(categorySvc, logger)
	s.languages = languages.NewHandler(languages.NewService(deps.DB), logger)

	postSvc := posts.NewService(posts.NewRepository(deps.DB), c, locationSvc, categorySvc, deps.Storage, logger)
	s.posts = posts.NewHandler(postSvc, logger)
	s.likes = likes.NewHandler(likes.NewService(deps.DB, logger), logger)
	s.comments = comments.NewHandler(comments.NewService(deps.DB), logger)
	s.stories = stories.NewHandler(stories.NewService(deps.DB, deps.Storage, logger), logger)

	if deps.Storage != nil {
		s.files = files.NewHandler(files.NewService(deps.Storage), logger)
	}
	if deps.Discovery != nil {
		s.proxy = gateway.NewProxyHandler(deps.Discovery, logger)
	}
	return s, nil
}

// HTTPServer configures the net/http server around the routes.
func (s *Server) HTTPServer() *http.Server {
	return &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.HTTP.Port),
		Handler:           s.RegisterRoutes(),
		ReadTimeout:       s.cfg.HTTP.ReadTimeout,
		WriteTimeout:      s.cfg.HTTP.WriteTimeout,
		IdleTimeout:       s.cfg.HTTP.IdleTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		MaxHeaderBytes:    1 << 20,
	}
}
