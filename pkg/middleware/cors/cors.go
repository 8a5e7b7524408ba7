package cors

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/edutrack-io/kocluk-api/pkg/config"
)

const (
	allowedMethods  = "GET, POST, PUT, PATCH, DELETE, OPTIONS"
	allowedHeaders  = "Authorization, Content-Type, X-Requested-With, X-Request-ID"
	preflightMaxAge = "600"
)

type policy struct {
	allowAll bool
	origins  map[string]struct{}
}

// New builds a CORS middleware from the service configuration. An empty
// origin list allows every origin, which is the local development default.
func New(cfg config.CORSConfig) gin.HandlerFunc {
	p := policy{
		allowAll: len(cfg.AllowedOrigins) == 0,
		origins:  make(map[string]struct{}, len(cfg.AllowedOrigins)),
	}
	for _, origin := range cfg.AllowedOrigins {
		p.origins[normalize(origin)] = struct{}{}
	}

	return func(c *gin.Context) {
		p.apply(c)
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

func (p policy) apply(c *gin.Context) {
	h := c.Writer.Header()
	h.Set("Vary", "Origin")
	h.Set("Access-Control-Allow-Credentials", "true")
	h.Set("Access-Control-Allow-Headers", allowedHeaders)
	h.Set("Access-Control-Allow-Methods", allowedMethods)
	h.Set("Access-Control-Max-Age", preflightMaxAge)

	origin := c.GetHeader("Origin")
	switch {
	case origin == "" && p.allowAll:
		h.Set("Access-Control-Allow-Origin", "*")
	case origin != "" && p.allows(origin):
		h.Set("Access-Control-Allow-Origin", origin)
	}
}

func (p policy) allows(origin string) bool {
	if p.allowAll {
		return true
	}
	_, ok := p.origins[normalize(origin)]
	return ok
}

func normalize(origin string) string {
	return strings.ToLower(strings.TrimRight(origin, "/"))
}
