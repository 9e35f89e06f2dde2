package middlewares

import (
	"context"
	"net/http"
	"strings"

	"Board/api/apperr"
	"Board/api/auth"
	"Board/api/models"
	"Board/api/monitoring"
	httpctx "Board/api/utils/httpctx"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

// SubjectResolver turns a raw token into the username it was issued for.
type SubjectResolver interface {
	ResolveSubject(token string) (string, error)
}

// ActiveUserLoader finds a user that has not been deleted.
type ActiveUserLoader interface {
	LoadActiveUser(ctx context.Context, username string) (*models.User, error)
}

// TokenAuthMiddleware admits requests carrying "Authorization: Bearer
// <token>" whose subject is an active user. Every rejection looks the same
// to the caller. A request that already carries a principal passes through.
func TokenAuthMiddleware(tokens SubjectResolver, users ActiveUserLoader) gin.HandlerFunc {
	return func(c *gin.Context) {
		if p, ok := httpctx.CurrentPrincipal(c); ok {
			httpctx.SetPrincipal(c, p)
			c.Next()
			return
		}

		raw, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			rejectUnauthorized(c, "missing bearer token")
			return
		}
		username, err := tokens.ResolveSubject(raw)
		if err != nil {
			rejectUnauthorized(c, "invalid token")
			return
		}
		user, err := users.LoadActiveUser(c.Request.Context(), username)
		if err != nil {
			if apperr.KindOf(err) == apperr.Internal {
				log.WithError(err).Error("auth: loading token subject failed")
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": apperr.Public(err)})
				return
			}
			rejectUnauthorized(c, "subject is not an active user")
			return
		}

		httpctx.SetPrincipal(c, auth.Principal{UserID: user.ID, Username: user.Username})
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	parts := strings.Fields(header)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	return parts[1], true
}

func rejectUnauthorized(c *gin.Context, reason string) {
	monitoring.AuthFailures.Inc()
	log.WithFields(log.Fields{"path": c.FullPath(), "reason": reason}).Debug("request rejected")
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": apperr.ErrInvalidToken.Message})
}

func containsWildcard(origins []string) bool {
	for _, o := range origins {
		if o == "*" {
			return true
		}
	}
	return false
}

// This enables us interact with the React Frontend
func CORSMiddleware(allowedOrigins []string) gin.HandlerFunc {
	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")

		// A wildcard is answered literally and never with credentials.
		// Otherwise only configured origins are echoed back.
		if containsWildcard(allowedOrigins) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		} else {
			for _, o := range allowedOrigins {
				if origin != "" && o == origin {
					c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
					c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
					break
				}
			}
			c.Writer.Header().Set("Vary", "Origin")
		}

		// Required CORS headers
		c.Writer.Header().Set("Access-Control-Allow-Headers",
			"Content-Type, Authorization, Content-Length, X-Request-ID, Accept, Origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods",
			"POST, GET, OPTIONS, PATCH, DELETE")

		// Handle preflight OPTIONS request
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
