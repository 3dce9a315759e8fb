package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/imposterai/imposter/internal/auth"
	"github.com/imposterai/imposter/internal/common"
)

const (
	UserIDKey      = "user_id"
	TokenIDKey     = "token_id"
	TokenExpiryKey = "token_expiry"
)

// TokenChecker reports whether a token id has been revoked by logout.
type TokenChecker interface {
	IsTokenRevoked(ctx context.Context, tokenID string) (bool, error)
}

// AuthRequired validates the Bearer token and rejects revoked ones. A nil or
// unreachable checker degrades to signature-only validation.
func AuthRequired(secret string, checker TokenChecker) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if !strings.HasPrefix(header, "Bearer ") {
			common.Fail(c, http.StatusUnauthorized, 40101, "missing bearer token")
			c.Abort()
			return
		}

		claims, err := auth.ParseJWT(strings.TrimPrefix(header, "Bearer "), secret)
		if err != nil {
			common.Fail(c, http.StatusUnauthorized, 40102, "invalid or expired token")
			c.Abort()
			return
		}

		if checker != nil {
			revoked, err := checker.IsTokenRevoked(c.Request.Context(), claims.ID)
			if err != nil {
				log.Warn().Err(err).Msg("token revocation check unavailable")
			} else if revoked {
				common.Fail(c, http.StatusUnauthorized, 40103, "token revoked")
				c.Abort()
				return
			}
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(TokenIDKey, claims.ID)
		if claims.ExpiresAt != nil {
			c.Set(TokenExpiryKey, claims.ExpiresAt.Time)
		}
		c.Next()
	}
}
