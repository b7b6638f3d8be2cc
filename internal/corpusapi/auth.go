package corpusapi

import (
	"crypto/subtle"
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"
)

// AuthMiddleware validates a bearer token against CORPUS_API_AUTH_TOKEN.
// If the variable is unset, mutating requests are allowed unauthenticated
// (local/dev use).
func AuthMiddleware() gin.HandlerFunc {
	token := os.Getenv("CORPUS_API_AUTH_TOKEN")

	return func(c *gin.Context) {
		if token == "" {
			c.Next()
			return
		}

		auth := c.GetHeader("Authorization")
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": "missing or malformed Authorization header",
				"hint":  "Authorization: Bearer <CORPUS_API_AUTH_TOKEN>",
			})
			c.Abort()
			return
		}
		if subtle.ConstantTimeCompare([]byte(parts[1]), []byte(token)) != 1 {
			c.JSON(http.StatusForbidden, gin.H{"error": "invalid token"})
			c.Abort()
			return
		}
		c.Next()
	}
}
