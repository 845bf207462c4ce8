package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	iauth "github.com/tiles-dev/pfm-sim/internal/auth"
	"github.com/tiles-dev/pfm-sim/pkg/errors"
	"github.com/tiles-dev/pfm-sim/pkg/response"
)

const (
	CtxClaimsKey = "authClaims"
	CtxUserIDKey = "userID"
)

// PCIDResolver maps a partner customer id from an assertion subject to a local
// user id.
type PCIDResolver func(ctx context.Context, pcid string) (uint, error)

// PartnerCredentials is the partner identity assertions are validated against.
type PartnerCredentials struct {
	ID     string
	Domain string
	APIKey string
}

// Auth enforces JWT authentication. Two token shapes are accepted: the
// simulator's own access token (uid claim) and a vendor-style partner
// assertion (signed with the partner API key, subject = pcid). The access
// token is tried first; assertion validation only runs when that fails.
func Auth(jwt *iauth.JWTService, partner PartnerCredentials, resolve PCIDResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		authz := c.GetHeader("Authorization")
		if len(authz) < 8 || !strings.EqualFold(authz[:7], "Bearer ") {
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}
		token := strings.TrimSpace(authz[7:])

		if claims, err := jwt.ValidateAccessToken(token); err == nil {
			c.Set(CtxClaimsKey, claims)
			c.Set(CtxUserIDKey, claims.UserID)
			c.Next()
			return
		}

		partnerClaims, err := iauth.ValidatePartnerAssertion(
			token, partner.APIKey, partner.ID, partner.Domain, nil)
		if err != nil || resolve == nil {
			c.Header("WWW-Authenticate", "Bearer")
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		userID, err := resolve(c.Request.Context(), partnerClaims.PartnerCustomerID)
		if err != nil {
			c.Header("WWW-Authenticate", "Bearer")
			response.Error(c, errors.ErrUnauthorized)
			c.Abort()
			return
		}

		c.Set(CtxUserIDKey, userID)
		c.Next()
	}
}

// UserID reads the authenticated user id set by Auth; zero means unauthenticated.
func UserID(c *gin.Context) uint {
	value, ok := c.Get(CtxUserIDKey)
	if !ok {
		return 0
	}
	id, ok := value.(uint)
	if !ok {
		return 0
	}
	return id
}
