// Package gateway forwards selected API routes to sibling services found
// through Consul.
package gateway

import (
	"fmt"
	"log/slog"
	"net/http"
	"net/http/httputil"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/consul"
	"github.com/gloriasinseswa/AadhityaaBackend-refactoring/internal/middleware"
)

// Discoverer picks a healthy instance of a service.
type Discoverer interface {
	DiscoverOne(serviceName string) (*consul.ServiceInstance, error)
}

// ProxyHandler handles reverse proxy requests to backend services
type ProxyHandler struct {
	discovery Discoverer
	logger    *slog.Logger
}

// NewProxyHandler creates a new proxy handler
func NewProxyHandler(discovery Discoverer, logger *slog.Logger) *ProxyHandler {
	return &ProxyHandler{discovery: discovery, logger: logger}
}

// ProxyWithPathRewrite proxies requests to serviceName after stripping
// stripPrefix from the path, so /api/v1/email/messages/1 with prefix
// /api/v1/email reaches /messages/1 on the service.
func (h *ProxyHandler) ProxyWithPathRewrite(serviceName, stripPrefix string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Set(middleware.UpstreamKey, serviceName)

		instance, err := h.discovery.DiscoverOne(serviceName)
		if err != nil {
			h.logger.Warn("Failed to discover service", "service", serviceName, "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error": fmt.Sprintf("service %s unavailable", serviceName),
			})
			return
		}

		targetURL, err := url.Parse("http://" + instance.Addr())
		if err != nil {
			h.logger.Error("Failed to parse target URL", "service", serviceName, "addr", instance.Addr(), "error", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}

		proxy := httputil.NewSingleHostReverseProxy(targetURL)

		proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
			h.logger.Error("Proxy error", "service", serviceName, "error", err)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadGateway)
			w.Write([]byte(`{"error":"bad gateway"}`))
		}

		originalDirector := proxy.Director
		proxy.Director = func(req *http.Request) {
			originalDirector(req)
			req.Host = targetURL.Host

			req.URL.Path = strings.TrimPrefix(req.URL.Path, stripPrefix)
			if req.URL.Path == "" {
				req.URL.Path = "/"
			}
			req.URL.RawPath = ""

			// Session cookies stay at the edge.
			req.Header.Del("Cookie")
			if requestID := c.GetString(middleware.RequestIDKey); requestID != "" {
				req.Header.Set(middleware.RequestIDHeader, requestID)
			}

			h.logger.Debug("Proxying request",
				"method", req.Method,
				"from", c.Request.URL.Path,
				"to", req.URL.Host+req.URL.Path)
		}

		proxy.ServeHTTP(c.Writer, c.Request)
	}
}
