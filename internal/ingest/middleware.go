package ingest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"leadranker_backend/platform/logger"
)

const contextIngestTenantID = "ingestTenantID"

// APIKeyAuthMiddleware validates the X-Ingest-API-Key header and sets the
// tenant context on the gin context.
func APIKeyAuthMiddleware(repo *Repository, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := c.GetHeader("X-Ingest-API-Key")
		if apiKey == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing API key"})
			return
		}

		key, err := repo.GetByHash(c.Request.Context(), HashKey(apiKey))
		if err != nil {
			log.SecurityEvent("ingest_invalid_api_key", "rejected ingest request", c.ClientIP())
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid API key"})
			return
		}

		c.Set(contextIngestTenantID, key.TenantID)
		c.Next()
	}
}
