package rbac

import (
	"net/http"

	"voiceagent-platform/internal/auth"

	"github.com/gin-gonic/gin"
)

// RequireAgency enforces the multi-tenant invariant: agency_id must exist in context.
// This does not validate membership; that belongs to the authorization layer.
func RequireAgency() gin.HandlerFunc {
	return func(c *gin.Context) {
		aid, err := auth.AgencyID(c.Request.Context())
		if err != nil || aid == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "agency_id required"})
			return
		}
		c.Next()
	}
}

// RequireAnyRole allows access if the caller has any of the provided roles.
// Rules:
// - super_admin bypasses all checks
// - agency isolation is enforced via RequireAgency (use it in the chain)
func RequireAnyRole(allowed ...string) gin.HandlerFunc {
	allowedSet := make(map[string]struct{}, len(allowed))
	for _, r := range allowed {
		allowedSet[r] = struct{}{}
	}

	return func(c *gin.Context) {
		role, err := auth.Role(c.Request.Context())
		if err != nil || role == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "role required"})
			return
		}

		// super_admin bypasses all
		if IsSuperAdmin(role) {
			c.Next()
			return
		}

		if _, ok := allowedSet[role]; !ok {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}
