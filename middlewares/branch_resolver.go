package middlewares

import (
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/yeremiapane/branch-ordering/models"
	"github.com/yeremiapane/branch-ordering/utils"
)

const ctxBranch = "branch"

var errBranchNotFound = errors.New("branch not found")

// BranchResolver finds the customer-facing branch from the request host's
// subdomain (when baseDomain is set) or else from the :branch_id path
// parameter. Inactive branches are treated as missing.
func BranchResolver(db *gorm.DB, baseDomain string) gin.HandlerFunc {
	return func(c *gin.Context) {
		query := db.WithContext(c.Request.Context()).Where("is_active = ?", true)

		if sub := subdomain(c.Request.Host, baseDomain); sub != "" {
			query = query.Where("subdomain = ?", sub)
		} else {
			id, err := strconv.ParseUint(c.Param("branch_id"), 10, 64)
			if err != nil {
				utils.RespondError(c, http.StatusNotFound, errBranchNotFound)
				c.Abort()
				return
			}
			query = query.Where("id = ?", id)
		}

		var branch models.Branch
		if err := query.First(&branch).Error; err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				utils.ErrorLogger.Errorf("branch lookup failed: %v", err)
				utils.RespondError(c, http.StatusInternalServerError, errors.New("server error"))
			} else {
				utils.RespondError(c, http.StatusNotFound, errBranchNotFound)
			}
			c.Abort()
			return
		}

		c.Set(ctxBranch, branch)
		c.Next()
	}
}

// CurrentBranch returns the branch set by BranchResolver.
func CurrentBranch(c *gin.Context) models.Branch {
	b, _ := c.Get(ctxBranch)
	branch, _ := b.(models.Branch)
	return branch
}

func subdomain(host, baseDomain string) string {
	if baseDomain == "" {
		return ""
	}
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.ToLower(host)
	suffix := "." + strings.ToLower(baseDomain)
	if !strings.HasSuffix(host, suffix) {
		return ""
	}
	sub := strings.TrimSuffix(host, suffix)
	if sub == "" || sub == "www" || strings.Contains(sub, ".") {
		return ""
	}
	return sub
}
