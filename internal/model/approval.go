package model

import (
	"time"
)

// ApprovalAction is the admin decision recorded on every transition.
// Revocation is a first-class action, not a prefixed reject.
type ApprovalAction string

const (
	ActionApprove ApprovalAction = "approve"
	ActionReject  ApprovalAction = "reject"
	ActionRevoke  ApprovalAction = "revoke"
)

// VerificationState is the status carried by a status update pushed to the
// affected professional.
type VerificationState string

const (
	StatePending     VerificationState = "pending"
	StateApproved    VerificationState = "approved"
	StateRejected    VerificationState = "rejected"
	StateUnderReview VerificationState = "under_review"
)

// ApprovalHistory is an append-only audit entry, one per admin action.
// Entries are never mutated or deleted.
type ApprovalHistory struct {
	ID             string         `bson:"_id" json:"id"`
	ProfessionalID string         `bson:"professionalId" json:"professional_id"`
	Action         ApprovalAction `bson:"action" json:"action"`
	AdminID        string         `bson:"adminId" json:"admin_id"`
	AdminName      string         `bson:"adminName" json:"admin_name"`
	Notes          string         `bson:"notes,omitempty" json:"notes,omitempty"`
	Timestamp      time.Time      `bson:"timestamp" json:"timestamp"`
	PreviousStatus bool           `bson:"previousStatus" json:"previous_status"`
	NewStatus      bool           `bson:"newStatus" json:"new_status"`
}

// ApprovalNotification feeds the admin-facing notification list. Only the
// Read flag is admin-settable; EmailSent is flipped by the dispatch worker.
type ApprovalNotification struct {
	ID                string         `bson:"_id" json:"id"`
	ProfessionalID    string         `bson:"professionalId" json:"professional_id"`
	ProfessionalEmail string         `bson:"professionalEmail" json:"professional_email"`
	ProfessionalName  string         `bson:"professionalName" json:"professional_name"`
	Action            ApprovalAction `bson:"action" json:"action"`
	AdminID           string         `bson:"adminId" json:"admin_id"`
	AdminName         string         `bson:"adminName" json:"admin_name"`
	Notes             string         `bson:"notes,omitempty" json:"notes,omitempty"`
	Timestamp         time.Time      `bson:"timestamp" json:"timestamp"`
	EmailSent         bool           `bson:"emailSent" json:"email_sent"`
	Read              bool           `bson:"read" json:"read"`
}

// VerificationStatusUpdate is consumed by the owning professional's status
// feed, newest-first. Append-only.
type VerificationStatusUpdate struct {
	ID             string            `bson:"_id" json:"id"`
	ProfessionalID string            `bson:"professionalId" json:"professional_id"`
	Status         VerificationState `bson:"status" json:"status"`
	Message        string            `bson:"message" json:"message"`
	Timestamp      time.Time         `bson:"timestamp" json:"timestamp"`
	AdminName      string            `bson:"adminName,omitempty" json:"admin_name,omitempty"`
	PreviousStatus VerificationState `bson:"previousStatus,omitempty" json:"previous_status,omitempty"`
	Notes          string            `bson:"notes,omitempty" json:"notes,omitempty"`
}

// NotificationFilter narrows the admin notification feed query.
type NotificationFilter struct {
	Limit      int64
	UnreadOnly bool
}

// VerificationEvent is published to the message broker after every committed
// admin action; the worker binary consumes it for email dispatch.
type VerificationEvent struct {
	NotificationID    string         `json:"notification_id"`
	ProfessionalID    string         `json:"professional_id"`
	ProfessionalEmail string         `json:"professional_email"`
	ProfessionalName  string         `json:"professional_name"`
	Action            ApprovalAction `json:"action"`
	AdminName         string         `json:"admin_name"`
	Notes             string         `json:"notes,omitempty"`
	Timestamp         time.Time      `json:"timestamp"`
}
