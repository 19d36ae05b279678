package auth

import (
	"context"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifetag/lifetag-api/internal/model"
	authpkg "github.com/lifetag/lifetag-api/pkg/auth"
	apperrors "github.com/lifetag/lifetag-api/pkg/errors"
	"github.com/lifetag/lifetag-api/pkg/logger"
	"github.com/lifetag/lifetag-api/pkg/security"
)

type memUserRepo struct {
	accounts map[string]*model.UserAccount
}

func newMemUserRepo() *memUserRepo {
	return &memUserRepo{accounts: map[string]*model.UserAccount{}}
}

func (r *memUserRepo) CreateAccount(ctx context.Context, account *model.UserAccount) error {
	r.accounts[account.ID] = account
	return nil
}

func (r *memUserRepo) GetAccount(ctx context.Context, id string) (*model.UserAccount, error) {
	return r.accounts[id], nil
}

func (r *memUserRepo) GetAccountByEmail(ctx context.Context, email string) (*model.UserAccount, error) {
	for _, a := range r.accounts {
		if strings.EqualFold(a.Email, email) {
			return a, nil
		}
	}
	return nil, nil
}

func (r *memUserRepo) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	r.accounts[id].PasswordHash = passwordHash
	return nil
}

func (r *memUserRepo) CountByType(ctx context.Context, userType string) (int64, error) {
	return 0, nil
}

func (r *memUserRepo) GetAdmin(ctx context.Context, id string) (*model.Admin, error) {
	return nil, nil
}

func (r *memUserRepo) CreateAdmin(ctx context.Context, admin *model.Admin) error { return nil }

func (r *memUserRepo) UpdateAdminPermissions(ctx context.Context, id string, permissions []string) error {
	return nil
}

func (r *memUserRepo) RetagUser(ctx context.Context, id, userType string) error { return nil }

type memProfessionalRepo struct {
	profiles map[string]*model.Professional
}

func newMemProfessionalRepo() *memProfessionalRepo {
	return &memProfessionalRepo{profiles: map[string]*model.Professional{}}
}

func (r *memProfessionalRepo) Create(ctx context.Context, p *model.Professional) error {
	r.profiles[p.ID] = p
	return nil
}

func (r *memProfessionalRepo) Get(ctx context.Context, id string) (*model.Professional, error) {
	return r.profiles[id], nil
}

func (r *memProfessionalRepo) List(ctx context.Context, filter *model.ProfessionalFilter) ([]*model.Professional, error) {
	return nil, nil
}

func (r *memProfessionalRepo) Count(ctx context.Context, filter *model.ProfessionalFilter) (int64, error) {
	return 0, nil
}

func (r *memProfessionalRepo) UpdateVerification(ctx context.Context, id string, status *model.VerificationStatus) error {
	return nil
}

func (r *memProfessionalRepo) Watch(ctx context.Context, id string) (<-chan *model.Professional, <-chan error) {
	snapshots := make(chan *model.Professional)
	errs := make(chan error)
	close(snapshots)
	close(errs)
	return snapshots, errs
}

type memTokenRepo struct {
	tokens map[string]*model.PasswordResetToken
}

func newMemTokenRepo() *memTokenRepo {
	return &memTokenRepo{tokens: map[string]*model.PasswordResetToken{}}
}

func (r *memTokenRepo) Create(ctx context.Context, token *model.PasswordResetToken) error {
	r.tokens[token.Token] = token
	return nil
}

func (r *memTokenRepo) Get(ctx context.Context, token string) (*model.PasswordResetToken, error) {
	return r.tokens[token], nil
}

func (r *memTokenRepo) MarkUsed(ctx context.Context, id string) error {
	for _, t := range r.tokens {
		if t.ID == id {
			now := time.Now().UTC()
			t.UsedAt = &now
			return nil
		}
	}
	return nil
}

type recordingEmail struct {
	welcomes []string
	resets   []string
}

func (e *recordingEmail) SendVerificationDecision(ctx context.Context, to, name, action, notes string) error {
	return nil
}

func (e *recordingEmail) SendPasswordReset(ctx context.Context, to, token string) error {
	e.resets = append(e.resets, to)
	return nil
}

func (e *recordingEmail) SendWelcome(ctx context.Context, to, name string) error {
	e.welcomes = append(e.welcomes, to)
	return nil
}

type authFixture struct {
	svc           *Service
	users         *memUserRepo
	professionals *memProfessionalRepo
	tokens        *memTokenRepo
	email         *recordingEmail
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	f := &authFixture{
		users:         newMemUserRepo(),
		professionals: newMemProfessionalRepo(),
		tokens:        newMemTokenRepo(),
		email:         &recordingEmail{},
	}
	jwtSvc := authpkg.NewJWTService(authpkg.Config{
		Secret:             "test-secret",
		RefreshSecret:      "test-refresh-secret",
		ExpiryHours:        1,
		RefreshExpiryHours: 24,
	})
	l := logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
	f.svc = NewService(f.users, f.professionals, f.tokens, jwtSvc,
		security.NewBcryptHasher(4), f.email, l)
	return f
}

func registerRequest() *model.RegisterRequest {
	return &model.RegisterRequest{
		Email:         "Dana.Reyes@Example.com",
		Password:      "correct-horse-9",
		FirstName:     "Dana",
		LastName:      "Reyes",
		UserType:      model.UserTypeMedicalProfessional,
		LicenseNumber: "MD12345",
		LicenseState:  "CA",
		Specialty:     "Cardiology",
	}
}

func TestRegisterMedicalProfessional(t *testing.T) {
	f := newAuthFixture(t)

	account, err := f.svc.Register(context.Background(), registerRequest())
	require.NoError(t, err)

	assert.Equal(t, account.ID, account.UserID)
	assert.Equal(t, "dana.reyes@example.com", account.Email)

	profile := f.professionals.profiles[account.ID]
	require.NotNil(t, profile)
	assert.Equal(t, account.ID, profile.UserID)
	assert.False(t, profile.VerificationStatus.IsVerified)
	assert.Equal(t, "MD12345", profile.ProfessionalInfo.LicenseNumber)

	assert.Equal(t, []string{"dana.reyes@example.com"}, f.email.welcomes)
}

func TestRegisterStandardUserSkipsProfile(t *testing.T) {
	f := newAuthFixture(t)
	req := registerRequest()
	req.UserType = model.UserTypeStandard
	req.LicenseNumber = ""

	account, err := f.svc.Register(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, f.professionals.profiles)
	assert.NotNil(t, f.users.accounts[account.ID])
}

func TestRegisterDuplicateEmail(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, registerRequest())
	require.NoError(t, err)

	req := registerRequest()
	req.Email = "DANA.REYES@example.com" // same address, different case
	_, err = f.svc.Register(ctx, req)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrConflict, apperrors.CodeOf(err))
}

func TestLoginAndRefresh(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, registerRequest())
	require.NoError(t, err)

	tokens, err := f.svc.Login(ctx, "dana.reyes@example.com", "correct-horse-9")
	require.NoError(t, err)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)

	claims, err := f.svc.ValidateToken(ctx, tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, model.UserTypeMedicalProfessional, claims.UserType)

	refreshed, err := f.svc.RefreshToken(ctx, tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)
}

func TestLoginWrongPassword(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, registerRequest())
	require.NoError(t, err)

	_, err = f.svc.Login(ctx, "dana.reyes@example.com", "wrong")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrUnauthorized, apperrors.CodeOf(err))
}

func TestRefreshRejectsAccessToken(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, registerRequest())
	require.NoError(t, err)
	tokens, err := f.svc.Login(ctx, "dana.reyes@example.com", "correct-horse-9")
	require.NoError(t, err)

	_, err = f.svc.RefreshToken(ctx, tokens.AccessToken)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrUnauthorized, apperrors.CodeOf(err))
}

func TestRequestPasswordResetIsCaseInsensitive(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, registerRequest())
	require.NoError(t, err)

	err = f.svc.RequestPasswordReset(ctx, "DANA.REYES@EXAMPLE.COM")
	require.NoError(t, err)
	assert.Equal(t, []string{"dana.reyes@example.com"}, f.email.resets)
	assert.Len(t, f.tokens.tokens, 1)
}

func TestRequestPasswordResetUnknownAddress(t *testing.T) {
	f := newAuthFixture(t)

	err := f.svc.RequestPasswordReset(context.Background(), "nobody@example.com")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrNotFound, apperrors.CodeOf(err))
	// No token minted, no email dispatched.
	assert.Empty(t, f.tokens.tokens)
	assert.Empty(t, f.email.resets)
}

func TestResetPasswordConsumesToken(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, registerRequest())
	require.NoError(t, err)
	require.NoError(t, f.svc.RequestPasswordReset(ctx, "dana.reyes@example.com"))

	var tokenStr string
	for tok := range f.tokens.tokens {
		tokenStr = tok
	}

	require.NoError(t, f.svc.ResetPassword(ctx, tokenStr, "new-password-10"))

	_, err = f.svc.Login(ctx, "dana.reyes@example.com", "new-password-10")
	require.NoError(t, err)
	_, err = f.svc.Login(ctx, "dana.reyes@example.com", "correct-horse-9")
	require.Error(t, err)

	// A consumed token cannot be replayed.
	err = f.svc.ResetPassword(ctx, tokenStr, "another-password-11")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrBadRequest, apperrors.CodeOf(err))
}

func TestResetPasswordExpiredToken(t *testing.T) {
	f := newAuthFixture(t)
	ctx := context.Background()

	_, err := f.svc.Register(ctx, registerRequest())
	require.NoError(t, err)
	require.NoError(t, f.svc.RequestPasswordReset(ctx, "dana.reyes@example.com"))

	for _, tok := range f.tokens.tokens {
		tok.ExpiresAt = time.Now().Add(-time.Minute)
	}
	for tokenStr := range f.tokens.tokens {
		err = f.svc.ResetPassword(ctx, tokenStr, "new-password-10")
	}
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrBadRequest, apperrors.CodeOf(err))
}
