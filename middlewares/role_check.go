package middlewares

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/branch-ordering/utils"
)

// RequireRoles lets the request through only for the listed roles.
func RequireRoles(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		role, exists := c.Get(ctxRole)
		if !exists {
			utils.RespondError(c, http.StatusUnauthorized, fmt.Errorf("unauthorized"))
			c.Abort()
			return
		}
		if !allowed[role.(string)] {
			utils.RespondError(c, http.StatusForbidden, fmt.Errorf("%s access not permitted", role))
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequireBranch rejects tokens that carry no branch.
func RequireBranch() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := StaffBranchID(c); !ok {
			utils.RespondError(c, http.StatusForbidden, fmt.Errorf("no branch assigned to this account"))
			c.Abort()
			return
		}
		c.Next()
	}
}
