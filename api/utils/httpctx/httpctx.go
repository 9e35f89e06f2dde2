package httpctx

import (
	"Board/api/auth"

	"github.com/gin-gonic/gin"
)

const (
	principalKey = "principal"
	requestIDKey = "requestID"
)

// SetPrincipal binds p to the gin context and to the request's context.
func SetPrincipal(c *gin.Context, p auth.Principal) {
	c.Set(principalKey, p)
	c.Request = c.Request.WithContext(auth.WithPrincipal(c.Request.Context(), p))
}

// CurrentPrincipal retrieves the authenticated principal if present, looking
// at the gin context first and the request context second.
func CurrentPrincipal(c *gin.Context) (auth.Principal, bool) {
	if val, exists := c.Get(principalKey); exists {
		if p, ok := val.(auth.Principal); ok && !p.IsAnonymous() {
			return p, true
		}
	}
	return auth.PrincipalFrom(c.Request.Context())
}

func SetRequestID(c *gin.Context, id string) {
	c.Set(requestIDKey, id)
}

func RequestID(c *gin.Context) string {
	return c.GetString(requestIDKey)
}
