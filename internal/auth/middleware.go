package auth

import (
	"net/http"

	"receptionist-server/internal/observability"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
)

const apiKeyHeader = "X-API-Key"

// Middleware guards the operator endpoints with a single shared API key.
// Only a bcrypt hash of the key is configured on the server.
type Middleware struct {
	apiKeyHash []byte
	logger     *observability.Logger
}

func New(apiKeyHash string, logger *observability.Logger) *Middleware {
	return &Middleware{apiKeyHash: []byte(apiKeyHash), logger: logger}
}

func (m *Middleware) RequireAPIKey(c *gin.Context) {
	key := c.GetHeader(apiKeyHeader)
	if key == "" {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing API key"})
		return
	}
	if err := bcrypt.CompareHashAndPassword(m.apiKeyHash, []byte(key)); err != nil {
		m.logger.Warn(c.Request.Context(), "rejected operator request with bad API key")
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid API key"})
		return
	}
	c.Next()
}
