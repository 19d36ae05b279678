package repository

import (
	"context"
	"time"

	"github.com/lifetag/lifetag-api/internal/model"
)

// All repository interfaces in one file
type (
	// ProfessionalRepository reads and mutates medical-professional records
	// in the users collection.
	ProfessionalRepository interface {
		Create(ctx context.Context, p *model.Professional) error
		// Get returns nil, nil when the document is absent or its type tag
		// is not medical_professional.
		Get(ctx context.Context, id string) (*model.Professional, error)
		List(ctx context.Context, filter *model.ProfessionalFilter) ([]*model.Professional, error)
		Count(ctx context.Context, filter *model.ProfessionalFilter) (int64, error)
		UpdateVerification(ctx context.Context, id string, status *model.VerificationStatus) error
		// Watch delivers a fresh snapshot of the document every time it
		// changes, starting with the current state. The channels close when
		// ctx is cancelled; a stream failure is sent on the error channel
		// before closing.
		Watch(ctx context.Context, id string) (<-chan *model.Professional, <-chan error)
	}

	// ApprovalRepository persists the append-only audit log and the
	// admin-facing notification feed.
	ApprovalRepository interface {
		CreateHistory(ctx context.Context, entry *model.ApprovalHistory) error
		ListHistory(ctx context.Context, professionalID string) ([]*model.ApprovalHistory, error)
		LatestHistory(ctx context.Context, professionalID string) (*model.ApprovalHistory, error)
		CountHistorySince(ctx context.Context, action model.ApprovalAction, since time.Time) (int64, error)

		CreateNotification(ctx context.Context, n *model.ApprovalNotification) error
		ListNotifications(ctx context.Context, filter *model.NotificationFilter) ([]*model.ApprovalNotification, error)
		MarkNotificationRead(ctx context.Context, id string) error
		MarkNotificationEmailSent(ctx context.Context, id string) error
	}

	// StatusUpdateRepository persists the per-professional status feed.
	StatusUpdateRepository interface {
		Create(ctx context.Context, update *model.VerificationStatusUpdate) error
		ListByProfessional(ctx context.Context, professionalID string) ([]*model.VerificationStatusUpdate, error)
		// Watch delivers the full newest-first result set on every change,
		// starting with the current state.
		Watch(ctx context.Context, professionalID string) (<-chan []*model.VerificationStatusUpdate, <-chan error)
	}

	// UserRepository covers accounts and admin profiles in the users
	// collection.
	UserRepository interface {
		CreateAccount(ctx context.Context, account *model.UserAccount) error
		GetAccount(ctx context.Context, id string) (*model.UserAccount, error)
		// GetAccountByEmail matches case-insensitively.
		GetAccountByEmail(ctx context.Context, email string) (*model.UserAccount, error)
		UpdatePassword(ctx context.Context, id, passwordHash string) error
		CountByType(ctx context.Context, userType string) (int64, error)

		GetAdmin(ctx context.Context, id string) (*model.Admin, error)
		CreateAdmin(ctx context.Context, admin *model.Admin) error
		UpdateAdminPermissions(ctx context.Context, id string, permissions []string) error
		// RetagUser rewrites the userType discriminator; admin removal is a
		// retag, not a delete.
		RetagUser(ctx context.Context, id, userType string) error
	}

	// TokenRepository stores password-reset tokens.
	TokenRepository interface {
		Create(ctx context.Context, token *model.PasswordResetToken) error
		Get(ctx context.Context, token string) (*model.PasswordResetToken, error)
		MarkUsed(ctx context.Context, id string) error
	}

	// TxRunner executes fn inside a single store transaction; every
	// repository call made with the ctx passed to fn joins it.
	TxRunner interface {
		WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	}
)
