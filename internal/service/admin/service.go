package admin

import (
	"context"
	"sync"
	"time"

	"github.com/lifetag/lifetag-api/internal/model"
	"github.com/lifetag/lifetag-api/internal/repository"
	apperrors "github.com/lifetag/lifetag-api/pkg/errors"
	"github.com/lifetag/lifetag-api/pkg/logger"
)

// Authenticator is the slice of the auth service the admin workflow needs:
// privileged account creation.
type Authenticator interface {
	CreateAccount(ctx context.Context, email, password, userType string) (*model.UserAccount, error)
}

type Service struct {
	users         repository.UserRepository
	professionals repository.ProfessionalRepository
	auth          Authenticator
	logger        *logger.Logger
}

func NewService(users repository.UserRepository, professionals repository.ProfessionalRepository,
	auth Authenticator, logger *logger.Logger) *Service {
	return &Service{
		users:         users,
		professionals: professionals,
		auth:          auth,
		logger:        logger,
	}
}

// requireAdmin fails closed: any lookup error or missing/mistyped record
// denies the action before a single write happens.
func (s *Service) requireAdmin(ctx context.Context, id string) (*model.Admin, error) {
	admin, err := s.users.GetAdmin(ctx, id)
	if err != nil {
		s.logger.Error(err, "admin guard lookup failed", "admin_id", id)
		return nil, apperrors.Forbidden("admin privileges required", err)
	}
	if admin == nil {
		return nil, apperrors.Forbidden("admin privileges required", nil)
	}
	return admin, nil
}

// CreateAdmin creates an authentication account and an admin profile. The
// creator-is-admin guard runs before either write, so a rejected caller
// leaves no partial state. The two writes themselves are not transactional;
// a profile-write failure after account creation is logged and surfaced.
func (s *Service) CreateAdmin(ctx context.Context, req *model.CreateAdminRequest, creatorID string) (*model.Admin, error) {
	creator, err := s.requireAdmin(ctx, creatorID)
	if err != nil {
		return nil, err
	}

	account, err := s.auth.CreateAccount(ctx, req.Email, req.Password, model.UserTypeAdmin)
	if err != nil {
		s.logger.Error(err, "admin account creation failed", "email", req.Email)
		return nil, apperrors.Internal("failed to create admin account", err)
	}

	permissions := req.Permissions
	if len(permissions) == 0 {
		permissions = model.DefaultAdminPermissions
	}

	now := time.Now().UTC()
	admin := &model.Admin{
		ID:          account.ID,
		UserID:      account.ID,
		UserType:    model.UserTypeAdmin,
		Email:       account.Email,
		Name:        req.Name,
		Permissions: permissions,
		CreatedBy:   creator.ID,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.users.CreateAdmin(ctx, admin); err != nil {
		// The auth account already exists; an orphan until retried.
		s.logger.Error(err, "admin profile write failed after account creation",
			"admin_id", account.ID)
		return nil, apperrors.Internal("failed to create admin profile", err)
	}

	return admin, nil
}

func (s *Service) UpdateAdminPermissions(ctx context.Context, adminID string, permissions []string, updaterID string) error {
	if _, err := s.requireAdmin(ctx, updaterID); err != nil {
		return err
	}

	target, err := s.users.GetAdmin(ctx, adminID)
	if err != nil {
		s.logger.Error(err, "admin lookup failed", "admin_id", adminID)
		return apperrors.Internal("failed to update admin permissions", err)
	}
	if target == nil {
		return apperrors.NotFound("admin", nil)
	}

	if err := s.users.UpdateAdminPermissions(ctx, adminID, permissions); err != nil {
		s.logger.Error(err, "permission update failed", "admin_id", adminID)
		return apperrors.Internal("failed to update admin permissions", err)
	}
	return nil
}

// RemoveAdmin soft-removes by retagging the user type; the record survives.
// Self-removal is rejected.
func (s *Service) RemoveAdmin(ctx context.Context, adminID, removerID string) error {
	if adminID == removerID {
		return apperrors.BadRequest("admins cannot remove themselves", nil)
	}
	if _, err := s.requireAdmin(ctx, removerID); err != nil {
		return err
	}

	target, err := s.users.GetAdmin(ctx, adminID)
	if err != nil {
		s.logger.Error(err, "admin lookup failed", "admin_id", adminID)
		return apperrors.Internal("failed to remove admin", err)
	}
	if target == nil {
		return apperrors.NotFound("admin", nil)
	}

	if err := s.users.RetagUser(ctx, adminID, model.UserTypeStandard); err != nil {
		s.logger.Error(err, "admin retag failed", "admin_id", adminID)
		return apperrors.Internal("failed to remove admin", err)
	}
	return nil
}

// GetSystemStats runs the four counting queries concurrently. A failed query
// no longer hides behind silent zeros: the result is marked degraded so the
// dashboard can say so.
func (s *Service) GetSystemStats(ctx context.Context) *model.SystemStats {
	stats := &model.SystemStats{}

	var mu sync.Mutex
	var wg sync.WaitGroup

	count := func(dst *int64, fn func() (int64, error), what string) {
		defer wg.Done()
		n, err := fn()
		mu.Lock()
		defer mu.Unlock()
		if err != nil {
			s.logger.Error(err, "system stats query failed", "count", what)
			stats.Degraded = true
			return
		}
		*dst = n
	}

	wg.Add(4)
	go count(&stats.Admins, func() (int64, error) {
		return s.users.CountByType(ctx, model.UserTypeAdmin)
	}, "admins")
	go count(&stats.Professionals, func() (int64, error) {
		return s.users.CountByType(ctx, model.UserTypeMedicalProfessional)
	}, "professionals")
	go count(&stats.StandardUsers, func() (int64, error) {
		return s.users.CountByType(ctx, model.UserTypeStandard)
	}, "standard_users")
	go count(&stats.VerifiedProfessionals, func() (int64, error) {
		return s.countVerified(ctx)
	}, "verified_professionals")
	wg.Wait()

	return stats
}

func (s *Service) countVerified(ctx context.Context) (int64, error) {
	verified := true
	return s.professionals.Count(ctx, &model.ProfessionalFilter{IsVerified: &verified})
}
