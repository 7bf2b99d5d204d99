package middlewares

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/yeremiapane/restaurant-pos/utils"
)

// AuditLoggerMiddleware records every state changing call made by the
// operator, successful or not.
func AuditLoggerMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodGet || c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		c.Next()

		fields := logrus.Fields{
			"request_id": c.GetString("request_id"),
			"route":      c.FullPath(),
			"status":     c.Writer.Status(),
		}
		if id := c.Param("order_id"); id != "" {
			fields["order_id"] = id
		}
		if id := c.Param("item_id"); id != "" {
			fields["item_id"] = id
		}

		if c.Writer.Status() < 400 {
			utils.InfoLogger.WithFields(fields).Infof("operator %s", c.Request.Method)
		} else {
			utils.ErrorLogger.WithFields(fields).Warnf("operator %s failed", c.Request.Method)
		}
	}
}
