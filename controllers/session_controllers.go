package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yeremiapane/restaurant-pos/kds"
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/orders"
	"github.com/yeremiapane/restaurant-pos/realtime"
	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/session"
	"github.com/yeremiapane/restaurant-pos/utils"
)

type SessionController struct {
	Session session.Context
	Bridge  *realtime.Bridge
	Tracker *orders.Tracker
	Sync    *services.OrderSync
	Menu    *services.MenuCatalog
}

type terminalStatus struct {
	TenantSlug        string               `json:"tenantSlug"`
	BranchID          string               `json:"branchId"`
	RestaurantID      string               `json:"restaurantId,omitempty"`
	CredentialOK      bool                 `json:"credentialOk"`
	CredentialProblem string               `json:"credentialProblem,omitempty"`
	RealtimeConnected bool                 `json:"realtimeConnected"`
	LastOrderSync     *time.Time           `json:"lastOrderSync,omitempty"`
	Sync              services.SyncMetrics `json:"sync"`
	Screens           int                  `json:"screens"`
}

// GetStatus -> scope, credential and connection health of this terminal
func (sc *SessionController) GetStatus(c *gin.Context) {
	state := sc.Session.Get()
	status := terminalStatus{
		TenantSlug:   state.TenantSlug,
		BranchID:     state.BranchID,
		RestaurantID: state.RestaurantID,
		Screens:      kds.ClientCount(),
	}

	if err := utils.TokenUsable(state.AccessToken, time.Now()); err != nil {
		status.CredentialProblem = err.Error()
	} else {
		status.CredentialOK = true
	}
	if sc.Bridge != nil {
		status.RealtimeConnected = sc.Bridge.Connected()
	}
	if last := sc.Tracker.LastSync(); !last.IsZero() {
		status.LastOrderSync = &last
	}
	if sc.Sync != nil {
		status.Sync = sc.Sync.Metrics()
	}

	utils.RespondJSON(c, http.StatusOK, "Terminal status", status)
}

// SwitchBranch -> rescope the terminal to another branch of the tenant
func (sc *SessionController) SwitchBranch(c *gin.Context) {
	var body struct {
		BranchID string `json:"branchId" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	err := sc.Session.Update(func(s *models.SessionState) {
		s.BranchID = body.BranchID
	})
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	if sc.Menu != nil {
		sc.Menu.Invalidate()
	}

	utils.InfoLogger.Infof("terminal switched to branch %s", body.BranchID)
	utils.RespondJSON(c, http.StatusOK, "Branch switched", sc.Session.Get())
}
