package corpusapi

import (
	"net/http"
	"os"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/fuzzamoto/ir-engine/internal/corpus"
)

// SetupRouter wires the corpus inspection surface: list/fetch saved
// programs, preview their compiled form, and subscribe to a websocket feed
// of corpus events. Mutating routes (adding a program) require a bearer
// token when CORPUS_API_AUTH_TOKEN is set.
func SetupRouter(store *corpus.Store, hub *Hub) *gin.Engine {
	r := gin.Default()

	allowedOrigins := os.Getenv("ALLOWED_ORIGINS")
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if allowedOrigins == "" || allowedOrigins == "*" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		} else {
			for _, allowed := range strings.Split(allowedOrigins, ",") {
				if strings.TrimSpace(allowed) == origin {
					c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
					break
				}
			}
		}
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	h := &Handler{store: store, hub: hub}

	pub := r.Group("/api/v1/corpus")
	{
		pub.GET("/health", h.handleHealth)
		pub.GET("/stream", hub.Subscribe)
		pub.GET("/programs", h.handleListPrograms)
		pub.GET("/programs/:id", h.handleGetProgram)
		pub.GET("/programs/:id/text", h.handleGetProgramText)
		pub.POST("/programs/:id/compile", h.handleCompilePreview)
	}

	write := r.Group("/api/v1/corpus")
	write.Use(AuthMiddleware())
	{
		write.POST("/programs", h.handleAddProgram)
	}

	return r
}
