package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/syncwave/crm/internal/access"
	"github.com/syncwave/crm/internal/auth/jwt"
	"github.com/syncwave/crm/internal/common/cnst"
	"github.com/syncwave/crm/internal/common/errorx"
	"github.com/syncwave/crm/internal/i18n"
)

// PrincipalLoader resolves the current access principal of a user
type PrincipalLoader interface {
	Principal(ctx context.Context, userID string) (*access.Principal, error)
}

// JWTAuthMiddleware creates a middleware that validates JWT tokens and
// loads the principal of the token's user
func JWTAuthMiddleware(jwtService *jwt.Service, loader PrincipalLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			i18n.RespondWithError(c, errorx.Unauthenticated(errorx.MsgUnauthorized))
			return
		}

		parts := strings.Fields(authHeader)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			i18n.RespondWithError(c, errorx.Unauthenticated(errorx.MsgUnauthorized))
			return
		}

		claims, err := jwtService.ValidateToken(parts[1])
		if err != nil {
			i18n.RespondWithError(c, errorx.Unauthenticated(errorx.MsgInvalidToken))
			return
		}

		// Role and company may have changed since the token was issued.
		principal, err := loader.Principal(c.Request.Context(), claims.UserID)
		if err != nil {
			i18n.RespondWithError(c, err)
			return
		}

		c.Set(cnst.CtxKeyClaims, claims)
		c.Set(cnst.CtxKeyPrincipal, principal)
		c.Next()
	}
}

// PrincipalFrom returns the principal stored by JWTAuthMiddleware
func PrincipalFrom(c *gin.Context) (*access.Principal, bool) {
	v, ok := c.Get(cnst.CtxKeyPrincipal)
	if !ok {
		return nil, false
	}
	p, ok := v.(*access.Principal)
	return p, ok && p != nil
}
