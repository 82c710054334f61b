package webhook

import (
	"net/http"

	"leadintake_backend/platform/httpkit"
	"leadintake_backend/platform/logger"

	"github.com/gin-gonic/gin"
)

const (
	// HeaderAPIKey carries the plaintext webhook key.
	HeaderAPIKey = "X-Webhook-API-Key"

	contextKeyID      = "webhookKeyID"
	contextCampaignID = "webhookCampaignID"
)

// APIKeyAuthMiddleware validates the X-Webhook-API-Key header and attaches
// the key's tenant and campaign to the request.
func APIKeyAuthMiddleware(keys KeyLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := c.GetHeader(HeaderAPIKey)
		if apiKey == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing API key"})
			return
		}

		key, err := keys.GetByHash(c.Request.Context(), HashKey(apiKey))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid API key"})
			return
		}

		c.Set(httpkit.ContextTenantIDKey, key.TenantID)
		c.Set(contextKeyID, key.ID)
		c.Set(contextCampaignID, key.CampaignID)
		c.Request = c.Request.WithContext(logger.ContextWithTenant(c.Request.Context(), key.TenantID))
		c.Next()
	}
}

func keyCampaignID(c *gin.Context) *int64 {
	value, ok := c.Get(contextCampaignID)
	if !ok {
		return nil
	}
	campaignID, _ := value.(*int64)
	return campaignID
}
