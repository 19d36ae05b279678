package model

import (
	"time"
)

// DefaultAdminPermissions is applied when CreateAdmin receives none.
var DefaultAdminPermissions = []string{
	"professionals:read",
	"professionals:verify",
	"notifications:read",
	"stats:read",
}

// Admin is an administrator's record in the users collection.
type Admin struct {
	ID          string    `bson:"_id" json:"id"`
	UserID      string    `bson:"userId" json:"user_id"`
	UserType    string    `bson:"userType" json:"user_type"`
	Email       string    `bson:"email" json:"email"`
	Name        string    `bson:"name" json:"name"`
	Permissions []string  `bson:"permissions" json:"permissions"`
	CreatedBy   string    `bson:"createdBy,omitempty" json:"created_by,omitempty"`
	CreatedAt   time.Time `bson:"createdAt" json:"created_at"`
	UpdatedAt   time.Time `bson:"updatedAt" json:"updated_at"`
}

// CreateAdminRequest carries the fields for privileged admin creation.
type CreateAdminRequest struct {
	Email       string   `json:"email" binding:"required,email"`
	Password    string   `json:"password" binding:"required,min=8"`
	Name        string   `json:"name" binding:"required"`
	Permissions []string `json:"permissions"`
}

// UpdatePermissionsRequest replaces an admin's permission set.
type UpdatePermissionsRequest struct {
	Permissions []string `json:"permissions" binding:"required,min=1"`
}

// VerificationStats aggregates dashboard counts. Recomputed per call.
type VerificationStats struct {
	Pending          int64 `json:"pending"`
	Verified         int64 `json:"verified"`
	Total            int64 `json:"total"`
	RecentApprovals  int64 `json:"recent_approvals"`
	RecentRejections int64 `json:"recent_rejections"`
}

// SystemStats carries coarse user counts. Degraded reports that at least one
// counting query failed, so zeros cannot be trusted as truly empty; the
// dashboard renders a degraded-data indicator instead of silent zeros.
type SystemStats struct {
	Admins                int64 `json:"admins"`
	Professionals         int64 `json:"professionals"`
	VerifiedProfessionals int64 `json:"verified_professionals"`
	StandardUsers         int64 `json:"standard_users"`
	Degraded              bool  `json:"degraded"`
}
