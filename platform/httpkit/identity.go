package httpkit

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// TenantID returns the tenant resolved by AuthRequired or by an API key middleware.
func TenantID(c *gin.Context) (int64, bool) {
	value, ok := c.Get(ContextTenantIDKey)
	if !ok {
		return 0, false
	}
	tenantID, ok := value.(int64)
	return tenantID, ok && tenantID > 0
}

// MustTenantID aborts with 401 when no tenant is attached to the request.
func MustTenantID(c *gin.Context) (int64, bool) {
	tenantID, ok := TenantID(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return 0, false
	}
	return tenantID, true
}
