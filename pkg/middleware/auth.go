package middleware

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"tourbook/pkg/apierror"
	"tourbook/pkg/authclient"
	"tourbook/pkg/models"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const principalKey = "principal"

type TokenVerifier interface {
	VerifyToken(ctx context.Context, token string) (*authclient.Identity, error)
}

// Principal is the authenticated caller together with its stored role.
type Principal struct {
	UserID string
	Email  string
	Role   string
}

func (p *Principal) IsAdmin() bool {
	return p.Role == models.RoleAdmin
}

// RequireAuth resolves the bearer token to a user row and stores the
// Principal on the context.
func RequireAuth(verifier TokenVerifier, db *gorm.DB, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if header == "" {
			apierror.Respond(c, apierror.MissingAuth, "missing authorization header")
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if !strings.HasPrefix(header, "Bearer ") || token == "" {
			apierror.Respond(c, apierror.InvalidToken, "invalid authorization header")
			return
		}

		identity, err := verifier.VerifyToken(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, authclient.ErrInvalidToken) {
				apierror.Respond(c, apierror.InvalidToken, "invalid or expired token")
				return
			}
			apierror.Internal(c, logger, "authentication service unavailable", err)
			return
		}

		var user models.User
		err = db.WithContext(c.Request.Context()).Where("id = ?", identity.ID).First(&user).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			apierror.Respond(c, apierror.Forbidden, "user profile not found")
			return
		}
		if err != nil {
			apierror.Internal(c, logger, "failed to load user", err)
			return
		}

		email := user.Email
		if email == "" {
			email = identity.Email
		}
		c.Set(principalKey, &Principal{UserID: user.ID, Email: email, Role: user.Role})
		c.Next()
	}
}

// RequireRole must run after RequireAuth.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		p := CurrentPrincipal(c)
		if p == nil {
			apierror.Respond(c, apierror.Unauthorized, "authentication required")
			return
		}
		for _, role := range roles {
			if p.Role == role {
				c.Next()
				return
			}
		}
		apierror.Respond(c, apierror.Forbidden, "insufficient permissions")
	}
}

func CurrentPrincipal(c *gin.Context) *Principal {
	v, ok := c.Get(principalKey)
	if !ok {
		return nil
	}
	p, _ := v.(*Principal)
	return p
}

// SetPrincipal is used by tests that call handlers directly.
func SetPrincipal(c *gin.Context, p *Principal) {
	c.Set(principalKey, p)
}
