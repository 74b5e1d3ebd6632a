package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rpggio/diyassist/internal/domain/conversation"
	"github.com/rpggio/diyassist/internal/repository"
)

// ErrUnauthorized indicates invalid or missing credentials.
var ErrUnauthorized = errors.New("unauthorized")

type tenantKey struct{}

// TenantResolver resolves a tenant ID from a bearer token.
type TenantResolver interface {
	ResolveTenant(ctx context.Context, token string) (string, error)
}

// WithTenant returns a copy of ctx carrying tenantID.
func WithTenant(ctx context.Context, tenantID string) context.Context {
	return context.WithValue(ctx, tenantKey{}, tenantID)
}

// TenantFromContext returns the tenant ID from context, if present.
func TenantFromContext(ctx context.Context) (string, bool) {
	tenantID, ok := ctx.Value(tenantKey{}).(string)
	return tenantID, ok && tenantID != ""
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}

// AuthMiddleware enforces bearer token authentication and stores the
// resolved tenant on the request context.
func AuthMiddleware(resolver TenantResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c.GetHeader("Authorization"))
		if token == "" {
			abortWithError(c, http.StatusUnauthorized, "unauthorized", "missing bearer token")
			return
		}

		tenantID, err := resolver.ResolveTenant(c.Request.Context(), token)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			// A failing key store is not a bad key.
			_ = c.Error(fmt.Errorf("%w: resolving api key: %w", conversation.ErrUpstream, err))
			abortWithError(c, http.StatusBadGateway, "upstream_error", "unable to verify bearer token")
			return
		}
		if err != nil || tenantID == "" {
			abortWithError(c, http.StatusUnauthorized, "unauthorized", "invalid bearer token")
			return
		}

		c.Request = c.Request.WithContext(WithTenant(c.Request.Context(), tenantID))
		c.Next()
	}
}

// StaticTenant assigns every request to tenantID. Used when auth is disabled.
func StaticTenant(tenantID string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(WithTenant(c.Request.Context(), tenantID))
		c.Next()
	}
}

func tenantOf(c *gin.Context) (string, bool) {
	tenantID, ok := TenantFromContext(c.Request.Context())
	if !ok {
		abortWithError(c, http.StatusUnauthorized, "unauthorized", "missing tenant")
	}
	return tenantID, ok
}
