package middlewares

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"

	"github.com/yeremiapane/restaurant-pos/utils"
)

const HeaderOperatorPin = "X-Operator-Pin"

// OperatorPinMiddleware guards the terminal API with the station PIN. The
// PIN travels in X-Operator-Pin, or in the pin query parameter for websocket
// upgrades where browsers cannot set headers. An empty hash disables the
// check.
func OperatorPinMiddleware(pinHash string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if pinHash == "" {
			c.Next()
			return
		}

		pin := c.GetHeader(HeaderOperatorPin)
		if pin == "" {
			pin = c.Query("pin")
		}
		if pin == "" {
			utils.RespondError(c, http.StatusUnauthorized, errors.New("operator PIN missing"))
			c.Abort()
			return
		}

		if err := bcrypt.CompareHashAndPassword([]byte(pinHash), []byte(pin)); err != nil {
			utils.ErrorLogger.Warnf("rejected operator PIN from %s", c.ClientIP())
			utils.RespondError(c, http.StatusUnauthorized, errors.New("invalid operator PIN"))
			c.Abort()
			return
		}

		c.Set("operator", true)
		c.Next()
	}
}

// HashPin produces the value expected in OPERATOR_PIN_HASH.
func HashPin(pin string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(pin), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
