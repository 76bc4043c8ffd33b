package middlewares

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/branch-ordering/utils"
)

const (
	ctxUserID   = "userID"
	ctxRole     = "role"
	ctxBranchID = "branchID"
	ctxToken    = "token"
)

// AuthMiddleware accepts a bearer token in the Authorization header or, for
// websocket handshakes that cannot set headers, in the token query parameter.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer ")
		if tokenString == "" {
			tokenString = c.Query("token")
		}
		if tokenString == "" {
			utils.RespondError(c, http.StatusUnauthorized, errors.New("Authorization header missing"))
			c.Abort()
			return
		}

		claims, err := utils.ParseToken(tokenString)
		if err != nil || claims == nil {
			utils.RespondError(c, http.StatusUnauthorized, errors.New("Invalid or expired token"))
			c.Abort()
			return
		}
		if claims.UserID == 0 {
			utils.RespondError(c, http.StatusUnauthorized, errors.New("Invalid user ID in token"))
			c.Abort()
			return
		}

		c.Set(ctxUserID, claims.UserID)
		c.Set(ctxRole, claims.Role)
		c.Set(ctxToken, tokenString)
		if claims.BranchID != nil {
			c.Set(ctxBranchID, *claims.BranchID)
		}
		c.Next()
	}
}

// StaffBranchID returns the branch of the authenticated staff member.
func StaffBranchID(c *gin.Context) (uint, bool) {
	v, ok := c.Get(ctxBranchID)
	if !ok {
		return 0, false
	}
	id, ok := v.(uint)
	return id, ok
}

func CurrentRole(c *gin.Context) string {
	return c.GetString(ctxRole)
}

func CurrentToken(c *gin.Context) string {
	return c.GetString(ctxToken)
}
