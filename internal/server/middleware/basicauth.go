// file: internal/server/middleware/basicauth.go
// version: 2.0.0
// guid: f870e89a-d1c8-4db3-9315-c91818a23429

package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

const realm = `Basic realm="media-acquirer"`

// BasicAuth enforces HTTP Basic Authentication against the given
// credentials. An empty username disables the check. Paths listed in exempt
// are always served.
func BasicAuth(username, password string, exempt ...string) gin.HandlerFunc {
	skip := make(map[string]bool, len(exempt))
	for _, p := range exempt {
		skip[p] = true
	}

	return func(c *gin.Context) {
		if username == "" || skip[c.Request.URL.Path] {
			c.Next()
			return
		}

		user, pass, ok := c.Request.BasicAuth()
		userMatch := subtle.ConstantTimeCompare([]byte(user), []byte(username)) == 1
		passMatch := subtle.ConstantTimeCompare([]byte(pass), []byte(password)) == 1
		if !ok || !userMatch || !passMatch {
			c.Header("WWW-Authenticate", realm)
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		c.Next()
	}
}
