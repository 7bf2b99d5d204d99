package cart

import (
	"github.com/yeremiapane/restaurant-pos/models"
	"github.com/yeremiapane/restaurant-pos/session"
	"github.com/yeremiapane/restaurant-pos/utils"
)

// FollowSession empties the cart when the credential is dropped or the
// terminal moves to another tenant or branch. Lines priced for one branch
// are never submitted under another.
func (e *Engine) FollowSession(sess session.Context) (unsubscribe func()) {
	return sess.Subscribe(func(old, current models.SessionState) {
		loggedOut := old.AccessToken != "" && current.AccessToken == ""
		moved := old.TenantSlug != current.TenantSlug ||
			old.RestaurantID != current.RestaurantID ||
			old.BranchID != current.BranchID
		if !loggedOut && !moved {
			return
		}

		utils.InfoLogger.Infof("session scope changed (logged out: %v), clearing cart", loggedOut)
		e.Clear()
	})
}
