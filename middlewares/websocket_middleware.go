package middlewares

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/restaurant-pos/kds"
	"github.com/yeremiapane/restaurant-pos/utils"
)

// ScreenRoleMiddleware reads the role of a local screen attaching to the
// hub, defaulting to the POS screen.
func ScreenRoleMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		role := c.DefaultQuery("role", kds.RolePOS)
		if !kds.ValidRole(role) {
			utils.RespondError(c, http.StatusBadRequest, fmt.Errorf("unknown screen role %q", role))
			c.Abort()
			return
		}

		c.Set("role", role)
		c.Next()
	}
}
