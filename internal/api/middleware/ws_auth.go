package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/kylerivers/motorev-sub004/internal/auth"
	"github.com/kylerivers/motorev-sub004/internal/realtime"
)

const identityKey = "identity"

// WSAuth authenticates a websocket connection attempt via the token query
// parameter and stores the resolved identity in the request context. A bad
// or missing credential refuses the connection before any state is created.
func WSAuth(verifier *auth.Verifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := c.Query("token")
		tokenString = strings.TrimPrefix(tokenString, "Bearer ")

		ident, err := verifier.Verify(c.Request.Context(), tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication failed"})
			return
		}

		c.Set(identityKey, ident)
		c.Next()
	}
}

// IdentityFrom returns the identity WSAuth stored on the request.
func IdentityFrom(c *gin.Context) (realtime.Identity, bool) {
	value, ok := c.Get(identityKey)
	if !ok {
		return realtime.Identity{}, false
	}
	ident, ok := value.(realtime.Identity)
	return ident, ok
}
