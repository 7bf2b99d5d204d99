package models

import "time"

// SessionState is the auth and branch scope shared by every backend call.
type SessionState struct {
	ID           uint      `gorm:"primaryKey" json:"-"`
	AccessToken  string    `gorm:"type:text" json:"-"`
	RefreshToken string    `gorm:"type:text" json:"-"`
	TenantSlug   string    `gorm:"type:varchar(100)" json:"tenantSlug"`
	BranchID     string    `gorm:"type:varchar(100)" json:"branchId"`
	RestaurantID string    `gorm:"type:varchar(100)" json:"restaurantId,omitempty"`
	Revision     int64     `gorm:"not null;default:0" json:"revision"`
	UpdatedAt    time.Time `gorm:"not null" json:"updatedAt"`
}

// TableName pins the table name regardless of naming strategy.
func (SessionState) TableName() string {
	return "session_states"
}

// HasScope reports whether a tenant context is present.
func (s SessionState) HasScope() bool {
	return s.TenantSlug != "" || s.RestaurantID != ""
}

// SameScope reports whether a and b address the same credential and branch,
// i.e. whether scoped resources opened for a are still valid for b.
func (s SessionState) SameScope(o SessionState) bool {
	return s.AccessToken == o.AccessToken &&
		s.TenantSlug == o.TenantSlug &&
		s.RestaurantID == o.RestaurantID &&
		s.BranchID == o.BranchID
}
