package core

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const principalKey = "principal"

// CORSMiddleware validates Origin against the allowed list and sets CORS
// headers. Requests without an Origin header (same-origin, curl) pass.
func CORSMiddleware(cfg Config) gin.HandlerFunc {
	allowed := map[string]struct{}{}
	for _, o := range cfg.AllowedOrigins {
		allowed[strings.ToLower(o)] = struct{}{}
	}

	isAllowed := func(origin string) bool {
		if origin == "" {
			return true
		}
		if len(allowed) == 0 {
			return false
		}
		_, ok := allowed[strings.ToLower(origin)]
		return ok
	}

	return func(c *gin.Context) {
		origin := c.GetHeader("Origin")

		if c.Request.Method == http.MethodOptions && origin != "" {
			if !isAllowed(origin) {
				respondError(c, http.StatusForbidden, "FORBIDDEN", "origin not allowed")
				c.Abort()
				return
			}
			setCORSHeaders(c, origin)
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}

		if !isAllowed(origin) {
			respondError(c, http.StatusForbidden, "FORBIDDEN", "origin not allowed")
			c.Abort()
			return
		}
		if origin != "" {
			setCORSHeaders(c, origin)
		}
		c.Next()
	}
}

func setCORSHeaders(c *gin.Context, origin string) {
	c.Header("Access-Control-Allow-Origin", origin)
	c.Header("Vary", "Origin")
	c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")
	c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
}

// RequireAuth extracts and verifies the bearer credential and stores the
// principal in the request context. A missing or malformed header is
// rejected here, before verification runs.
func RequireAuth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		auth := c.GetHeader("Authorization")
		const prefix = "Bearer "
		if !strings.HasPrefix(auth, prefix) {
			respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized")
			c.Abort()
			return
		}
		userID, email, err := VerifyToken(strings.TrimPrefix(auth, prefix), secret)
		if err != nil {
			respondError(c, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized")
			c.Abort()
			return
		}
		c.Set(principalKey, Principal{ID: userID, Email: email})
		c.Next()
	}
}

// currentPrincipal returns the identity RequireAuth stored on the context.
func currentPrincipal(c *gin.Context) Principal {
	p, _ := c.Get(principalKey)
	principal, _ := p.(Principal)
	return principal
}
