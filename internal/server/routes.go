package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/middleware"
)

// RegisterRoutes builds the gin engine.
func (s *Server) RegisterRoutes() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logging(s.logger))
	r.Use(middleware.CORS(s.cfg.HTTP.AllowedOrigins))

	r.GET("/", s.HelloWorldHandler)
	r.GET("/health", s.healthHandler)

	v1 := r.Group("/api/v1")

	s.accounts.RegisterAuthRoutes(v1.Group("/auth"))

	authed := v1.Group("")
	authed.Use(middleware.SessionAuth(s.sessions, s.cfg.Session.CookieName, s.logger))

	s.accounts.RegisterAccountRoutes(authed.Group("/accounts"))

	profile := authed.Group("/profile")
	s.profiles.RegisterRoutes(profile)
	s.locations.RegisterRoutes(profile.Group("/locations"))

	postGroup := authed.Group("/posts")
	s.posts.RegisterRoutes(postGroup)
	s.likes.RegisterRoutes(postGroup)
	s.comments.RegisterPostRoutes(postGroup)
	s.posts.RegisterUserRoutes(authed.Group("/users"))

	s.comments.RegisterRoutes(authed.Group("/comments"))
	s.stories.RegisterRoutes(authed.Group("/stories"))
	s.categories.RegisterRoutes(authed.Group("/categories"))
	s.categories.RegisterUserRoutes(authed.Group("/user-categories"))
	s.languages.RegisterRoutes(authed.Group("/languages"))

	fileGroup := authed.Group("/files")
	if s.files != nil {
		s.files.RegisterRoutes(fileGroup)
	} else {
		fileGroup.Any("/*path", storageUnavailable)
	}

	if s.proxy != nil {
		authed.Any("/email/*path", s.proxy.ProxyWithPathRewrite(EmailServiceName, "/api/v1/email"))
	}

	return r
}

func (s *Server) HelloWorldHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"message": "Hello World"})
}

func storageUnavailable(c *gin.Context) {
	c.JSON(http.StatusServiceUnavailable, gin.H{
		"error": "Storage service is not available",
		"code":  "STORAGE_UNAVAILABLE",
	})
}

// healthHandler reports the state of every backing service. It answers 503
// when the database or Redis is down.
func (s *Server) healthHandler(c *gin.Context) {
	ctx := c.Request.Context()
	status := http.StatusOK
	response := gin.H{}

	dbHealth := s.deps.DB.Health()
	response["database"] = dbHealth
	if dbHealth["status"] != "up" {
		status = http.StatusServiceUnavailable
	}

	redisHealth := map[string]string{"status": "up"}
	if err := s.deps.Redis.Ping(ctx).Err(); err != nil {
		redisHealth = map[string]string{"status": "down", "error": err.Error()}
		status = http.StatusServiceUnavailable
	}
	response["redis"] = redisHealth

	if s.deps.Storage != nil {
		storageHealth := map[string]string{"status": "up"}
		if err := s.deps.Storage.Health(ctx); err != nil {
			storageHealth = map[string]string{"status": "down", "error": err.Error()}
		}
		response["storage"] = storageHealth
	}

	if s.deps.Discovery != nil {
		emailHealth := map[string]string{"status": "up"}
		if inst, err := s.deps.Discovery.DiscoverOne(EmailServiceName); err != nil {
			emailHealth = map[string]string{"status": "down", "error": err.Error()}
		} else {
			emailHealth["address"] = inst.Addr()
		}
		response[EmailServiceName] = emailHealth
	}

	c.JSON(status, response)
}
