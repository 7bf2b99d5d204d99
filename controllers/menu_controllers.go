package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
)

type MenuController struct {
	Menu *services.MenuCatalog
}

func NewMenuController(menu *services.MenuCatalog) *MenuController {
	return &MenuController{Menu: menu}
}

// GetMenu -> branch priced menu; ?refresh=true bypasses the cache
func (mc *MenuController) GetMenu(c *gin.Context) {
	if c.Query("refresh") == "true" {
		mc.Menu.Invalidate()
	}

	items, err := mc.Menu.List(c.Request.Context())
	if err != nil {
		respondServiceError(c, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "List of menu items", items)
}
