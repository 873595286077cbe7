// Package middleware holds the gateway's gin middleware: JWT-based caller
// identity resolution, the owner-check enforcing spec.md §4.7's
// caller-to-owner mapping, and the DB-backed request log.
package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// externalAuthIDKey / isAdminKey are the gin context keys callers set and
// read through the helpers below, never the raw string literals.
const (
	externalAuthIDKey = "externalAuthID"
	isAdminKey        = "isAdmin"
)

// Claims is the shape of the upstream-issued session token this gateway
// verifies. Token issuance is out of scope (spec.md §1); this only reads
// the subject and admin flag an upstream identity provider already put in
// the token.
type Claims struct {
	Subject string `json:"sub"`
	IsAdmin bool   `json:"admin"`
	jwt.RegisteredClaims
}

// Auth verifies the bearer token on every request and stashes the
// caller's external_auth_id and admin flag in the gin context. It never
// resolves the owning User row itself — that happens once the project id
// in the path is known, in OwnerCheck.
func Auth(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}
		raw := strings.TrimPrefix(header, "Bearer ")

		var claims Claims
		_, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (any, error) {
			return secret, nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		if err != nil || claims.Subject == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid session token"})
			return
		}

		c.Set(externalAuthIDKey, claims.Subject)
		c.Set(isAdminKey, claims.IsAdmin)
		c.Next()
	}
}

// ExternalAuthID returns the caller's external_auth_id set by Auth.
func ExternalAuthID(c *gin.Context) string {
	v, _ := c.Get(externalAuthIDKey)
	s, _ := v.(string)
	return s
}

// IsAdmin reports whether the caller's token carried the admin flag.
func IsAdmin(c *gin.Context) bool {
	v, _ := c.Get(isAdminKey)
	b, _ := v.(bool)
	return b
}
