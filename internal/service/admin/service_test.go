package admin

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifetag/lifetag-api/internal/model"
	apperrors "github.com/lifetag/lifetag-api/pkg/errors"
	"github.com/lifetag/lifetag-api/pkg/logger"
)

type fakeUserRepo struct {
	admins        map[string]*model.Admin
	retagged      map[string]string
	counts        map[string]int64
	countErr      map[string]error
	getAdminErr   error
	permissionErr error
}

func newFakeUserRepo(admins ...*model.Admin) *fakeUserRepo {
	repo := &fakeUserRepo{
		admins:   map[string]*model.Admin{},
		retagged: map[string]string{},
		counts:   map[string]int64{},
		countErr: map[string]error{},
	}
	for _, a := range admins {
		repo.admins[a.ID] = a
	}
	return repo
}

func (r *fakeUserRepo) CreateAccount(ctx context.Context, account *model.UserAccount) error {
	return nil
}

func (r *fakeUserRepo) GetAccount(ctx context.Context, id string) (*model.UserAccount, error) {
	return nil, nil
}

func (r *fakeUserRepo) GetAccountByEmail(ctx context.Context, email string) (*model.UserAccount, error) {
	return nil, nil
}

func (r *fakeUserRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	return nil
}

func (r *fakeUserRepo) CountByType(ctx context.Context, userType string) (int64, error) {
	if err := r.countErr[userType]; err != nil {
		return 0, err
	}
	return r.counts[userType], nil
}

func (r *fakeUserRepo) GetAdmin(ctx context.Context, id string) (*model.Admin, error) {
	if r.getAdminErr != nil {
		return nil, r.getAdminErr
	}
	return r.admins[id], nil
}

func (r *fakeUserRepo) CreateAdmin(ctx context.Context, admin *model.Admin) error {
	r.admins[admin.ID] = admin
	return nil
}

func (r *fakeUserRepo) UpdateAdminPermissions(ctx context.Context, id string, permissions []string) error {
	if r.permissionErr != nil {
		return r.permissionErr
	}
	r.admins[id].Permissions = permissions
	return nil
}

func (r *fakeUserRepo) RetagUser(ctx context.Context, id, userType string) error {
	r.retagged[id] = userType
	delete(r.admins, id)
	return nil
}

type fakeProfessionalCounter struct {
	verified int64
	err      error
}

func (r *fakeProfessionalCounter) Create(ctx context.Context, p *model.Professional) error {
	return nil
}

func (r *fakeProfessionalCounter) Get(ctx context.Context, id string) (*model.Professional, error) {
	return nil, nil
}

func (r *fakeProfessionalCounter) List(ctx context.Context, filter *model.ProfessionalFilter) ([]*model.Professional, error) {
	return nil, nil
}

func (r *fakeProfessionalCounter) Count(ctx context.Context, filter *model.ProfessionalFilter) (int64, error) {
	if r.err != nil {
		return 0, r.err
	}
	return r.verified, nil
}

func (r *fakeProfessionalCounter) UpdateVerification(ctx context.Context, id string, status *model.VerificationStatus) error {
	return nil
}

func (r *fakeProfessionalCounter) Watch(ctx context.Context, id string) (<-chan *model.Professional, <-chan error) {
	snapshots := make(chan *model.Professional)
	errs := make(chan error)
	close(snapshots)
	close(errs)
	return snapshots, errs
}

type fakeAuthenticator struct {
	created []string
	err     error
}

func (a *fakeAuthenticator) CreateAccount(ctx context.Context, email, password, userType string) (*model.UserAccount, error) {
	if a.err != nil {
		return nil, a.err
	}
	a.created = append(a.created, email)
	return &model.UserAccount{
		ID:       "acct-" + email,
		UserID:   "acct-" + email,
		UserType: userType,
		Email:    email,
	}, nil
}

func adminUser(id string) *model.Admin {
	return &model.Admin{
		ID:          id,
		UserID:      id,
		UserType:    model.UserTypeAdmin,
		Email:       id + "@lifetag.example",
		Name:        "Admin " + id,
		Permissions: model.DefaultAdminPermissions,
		CreatedAt:   time.Now().UTC(),
	}
}

func adminTestLogger() *logger.Logger {
	return logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
}

func TestCreateAdmin(t *testing.T) {
	users := newFakeUserRepo(adminUser("root"))
	auth := &fakeAuthenticator{}
	svc := NewService(users, &fakeProfessionalCounter{}, auth, adminTestLogger())

	created, err := svc.CreateAdmin(context.Background(), &model.CreateAdminRequest{
		Email:    "new@lifetag.example",
		Password: "correct-horse-9",
		Name:     "New Admin",
	}, "root")
	require.NoError(t, err)

	assert.Equal(t, model.UserTypeAdmin, created.UserType)
	assert.Equal(t, created.ID, created.UserID)
	assert.Equal(t, "root", created.CreatedBy)
	assert.Equal(t, model.DefaultAdminPermissions, created.Permissions)
	assert.Contains(t, users.admins, created.ID)
}

func TestCreateAdminRejectsNonAdminCaller(t *testing.T) {
	users := newFakeUserRepo() // caller has no admin record
	auth := &fakeAuthenticator{}
	svc := NewService(users, &fakeProfessionalCounter{}, auth, adminTestLogger())

	_, err := svc.CreateAdmin(context.Background(), &model.CreateAdminRequest{
		Email:    "new@lifetag.example",
		Password: "correct-horse-9",
		Name:     "New Admin",
	}, "intruder")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrForbidden, apperrors.CodeOf(err))
	// The guard runs before any write.
	assert.Empty(t, auth.created)
	assert.Empty(t, users.admins)
}

func TestCreateAdminFailsClosedOnGuardError(t *testing.T) {
	users := newFakeUserRepo(adminUser("root"))
	users.getAdminErr = errors.New("no primary")
	auth := &fakeAuthenticator{}
	svc := NewService(users, &fakeProfessionalCounter{}, auth, adminTestLogger())

	_, err := svc.CreateAdmin(context.Background(), &model.CreateAdminRequest{
		Email:    "new@lifetag.example",
		Password: "correct-horse-9",
		Name:     "New Admin",
	}, "root")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrForbidden, apperrors.CodeOf(err))
	assert.Empty(t, auth.created)
}

func TestUpdateAdminPermissions(t *testing.T) {
	users := newFakeUserRepo(adminUser("root"), adminUser("other"))
	svc := NewService(users, &fakeProfessionalCounter{}, &fakeAuthenticator{}, adminTestLogger())

	err := svc.UpdateAdminPermissions(context.Background(), "other", []string{"stats:read"}, "root")
	require.NoError(t, err)
	assert.Equal(t, []string{"stats:read"}, users.admins["other"].Permissions)
}

func TestUpdateAdminPermissionsUnknownTarget(t *testing.T) {
	users := newFakeUserRepo(adminUser("root"))
	svc := NewService(users, &fakeProfessionalCounter{}, &fakeAuthenticator{}, adminTestLogger())

	err := svc.UpdateAdminPermissions(context.Background(), "ghost", []string{"stats:read"}, "root")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrNotFound, apperrors.CodeOf(err))
}

func TestRemoveAdminRetags(t *testing.T) {
	users := newFakeUserRepo(adminUser("root"), adminUser("other"))
	svc := NewService(users, &fakeProfessionalCounter{}, &fakeAuthenticator{}, adminTestLogger())

	err := svc.RemoveAdmin(context.Background(), "other", "root")
	require.NoError(t, err)
	assert.Equal(t, model.UserTypeStandard, users.retagged["other"])
}

func TestRemoveAdminRejectsSelfRemoval(t *testing.T) {
	users := newFakeUserRepo(adminUser("root"))
	svc := NewService(users, &fakeProfessionalCounter{}, &fakeAuthenticator{}, adminTestLogger())

	err := svc.RemoveAdmin(context.Background(), "root", "root")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrBadRequest, apperrors.CodeOf(err))
	assert.Empty(t, users.retagged)
}

func TestGetSystemStats(t *testing.T) {
	users := newFakeUserRepo(adminUser("root"))
	users.counts[model.UserTypeAdmin] = 2
	users.counts[model.UserTypeMedicalProfessional] = 40
	users.counts[model.UserTypeStandard] = 900
	professionals := &fakeProfessionalCounter{verified: 25}
	svc := NewService(users, professionals, &fakeAuthenticator{}, adminTestLogger())

	stats := svc.GetSystemStats(context.Background())
	assert.Equal(t, int64(2), stats.Admins)
	assert.Equal(t, int64(40), stats.Professionals)
	assert.Equal(t, int64(900), stats.StandardUsers)
	assert.Equal(t, int64(25), stats.VerifiedProfessionals)
	assert.False(t, stats.Degraded)
}

func TestGetSystemStatsMarksDegradedOnFailure(t *testing.T) {
	users := newFakeUserRepo(adminUser("root"))
	users.counts[model.UserTypeAdmin] = 2
	users.countErr[model.UserTypeStandard] = errors.New("timeout")
	svc := NewService(users, &fakeProfessionalCounter{verified: 5}, &fakeAuthenticator{}, adminTestLogger())

	stats := svc.GetSystemStats(context.Background())
	assert.True(t, stats.Degraded)
	// The queries that succeeded still report.
	assert.Equal(t, int64(2), stats.Admins)
	assert.Equal(t, int64(5), stats.VerifiedProfessionals)
	assert.Zero(t, stats.StandardUsers)
}
