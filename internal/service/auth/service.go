package auth

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lifetag/lifetag-api/internal/email"
	"github.com/lifetag/lifetag-api/internal/model"
	"github.com/lifetag/lifetag-api/internal/repository"
	"github.com/lifetag/lifetag-api/pkg/auth"
	apperrors "github.com/lifetag/lifetag-api/pkg/errors"
	"github.com/lifetag/lifetag-api/pkg/logger"
	"github.com/lifetag/lifetag-api/pkg/security"
)

const resetTokenExpiry = 1 * time.Hour

type Service struct {
	users         repository.UserRepository
	professionals repository.ProfessionalRepository
	tokens        repository.TokenRepository
	jwtSvc        auth.JWTService
	hasher        security.PasswordHasher
	emailSvc      email.Service
	logger        *logger.Logger
}

func NewService(users repository.UserRepository, professionals repository.ProfessionalRepository,
	tokens repository.TokenRepository, jwtSvc auth.JWTService, hasher security.PasswordHasher,
	emailSvc email.Service, logger *logger.Logger) *Service {
	return &Service{
		users:         users,
		professionals: professionals,
		tokens:        tokens,
		jwtSvc:        jwtSvc,
		hasher:        hasher,
		emailSvc:      emailSvc,
		logger:        logger,
	}
}

// CreateAccount registers an email/password identity. The document id doubles
// as the user id everywhere downstream.
func (s *Service) CreateAccount(ctx context.Context, emailAddr, password, userType string) (*model.UserAccount, error) {
	existing, err := s.users.GetAccountByEmail(ctx, emailAddr)
	if err != nil {
		s.logger.Error(err, "account lookup failed", "email", emailAddr)
		return nil, apperrors.Internal("failed to create account", err)
	}
	if existing != nil {
		return nil, apperrors.Conflict("an account with this email already exists", nil)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, apperrors.BadRequest("invalid password", err)
	}

	now := time.Now().UTC()
	id := uuid.New().String()
	account := &model.UserAccount{
		ID:           id,
		UserID:       id,
		UserType:     userType,
		Email:        strings.ToLower(emailAddr),
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.CreateAccount(ctx, account); err != nil {
		s.logger.Error(err, "account write failed", "email", emailAddr)
		return nil, apperrors.Internal("failed to create account", err)
	}
	return account, nil
}

// Register creates the account and, for medical professionals, the profile
// document the verification workflow operates on. New professionals start
// unverified.
func (s *Service) Register(ctx context.Context, req *model.RegisterRequest) (*model.UserAccount, error) {
	account, err := s.CreateAccount(ctx, req.Email, req.Password, req.UserType)
	if err != nil {
		return nil, err
	}

	if req.UserType == model.UserTypeMedicalProfessional {
		now := time.Now().UTC()
		profile := &model.Professional{
			ID:       account.ID,
			UserID:   account.ID,
			UserType: model.UserTypeMedicalProfessional,
			PersonalInfo: model.PersonalInfo{
				FirstName: req.FirstName,
				LastName:  req.LastName,
				Email:     account.Email,
			},
			ProfessionalInfo: model.ProfessionalInfo{
				LicenseNumber: req.LicenseNumber,
				LicenseState:  req.LicenseState,
				Specialty:     req.Specialty,
			},
			VerificationStatus: model.VerificationStatus{IsVerified: false},
			CreatedAt:          now,
			UpdatedAt:          now,
		}
		if err := s.professionals.Create(ctx, profile); err != nil {
			s.logger.Error(err, "professional profile write failed", "user_id", account.ID)
			return nil, apperrors.Internal("failed to create professional profile", err)
		}
	}

	if err := s.emailSvc.SendWelcome(ctx, account.Email, req.FirstName); err != nil {
		// Welcome mail is best-effort.
		s.logger.Error(err, "welcome email dispatch failed", "user_id", account.ID)
	}

	return account, nil
}

func (s *Service) Login(ctx context.Context, emailAddr, password string) (*model.TokenResponse, error) {
	account, err := s.users.GetAccountByEmail(ctx, emailAddr)
	if err != nil {
		s.logger.Error(err, "login lookup failed", "email", emailAddr)
		return nil, apperrors.Internal("login failed", err)
	}
	if account == nil {
		return nil, apperrors.Unauthorized(model.ErrInvalidCredentials)
	}
	if err := s.hasher.Compare(account.PasswordHash, password); err != nil {
		return nil, apperrors.Unauthorized(model.ErrInvalidCredentials)
	}

	return s.issueTokens(account)
}

func (s *Service) RefreshToken(ctx context.Context, refreshToken string) (*model.TokenResponse, error) {
	claims, err := s.jwtSvc.ValidateRefreshToken(refreshToken)
	if err != nil {
		return nil, apperrors.Unauthorized(err)
	}

	account, err := s.users.GetAccount(ctx, claims.UserID)
	if err != nil {
		s.logger.Error(err, "refresh lookup failed", "user_id", claims.UserID)
		return nil, apperrors.Internal("failed to refresh token", err)
	}
	if account == nil {
		return nil, apperrors.Unauthorized(nil)
	}

	return s.issueTokens(account)
}

func (s *Service) issueTokens(account *model.UserAccount) (*model.TokenResponse, error) {
	access, err := s.jwtSvc.GenerateAccessToken(account)
	if err != nil {
		s.logger.Error(err, "access token generation failed", "user_id", account.ID)
		return nil, apperrors.Internal("failed to generate token", err)
	}
	refresh, err := s.jwtSvc.GenerateRefreshToken(account)
	if err != nil {
		s.logger.Error(err, "refresh token generation failed", "user_id", account.ID)
		return nil, apperrors.Internal("failed to generate token", err)
	}
	return &model.TokenResponse{AccessToken: access, RefreshToken: refresh}, nil
}

// RequestPasswordReset dispatches a reset email only after confirming the
// address is registered, case-insensitively. Asking the provider to mail an
// unregistered address would "succeed" silently.
func (s *Service) RequestPasswordReset(ctx context.Context, emailAddr string) error {
	account, err := s.users.GetAccountByEmail(ctx, emailAddr)
	if err != nil {
		s.logger.Error(err, "reset pre-check failed", "email", emailAddr)
		return apperrors.Internal("failed to request password reset", err)
	}
	if account == nil {
		return apperrors.NotFound("account", nil)
	}

	token := &model.PasswordResetToken{
		ID:        uuid.New().String(),
		UserID:    account.ID,
		Email:     account.Email,
		Token:     uuid.New().String(),
		ExpiresAt: time.Now().UTC().Add(resetTokenExpiry),
		CreatedAt: time.Now().UTC(),
	}
	if err := s.tokens.Create(ctx, token); err != nil {
		s.logger.Error(err, "reset token write failed", "user_id", account.ID)
		return apperrors.Internal("failed to request password reset", err)
	}

	if err := s.emailSvc.SendPasswordReset(ctx, account.Email, token.Token); err != nil {
		s.logger.Error(err, "reset email dispatch failed", "user_id", account.ID)
		return apperrors.Internal("failed to send password reset email", err)
	}
	return nil
}

// ResetPassword consumes a valid token and replaces the credential.
func (s *Service) ResetPassword(ctx context.Context, tokenStr, newPassword string) error {
	token, err := s.tokens.Get(ctx, tokenStr)
	if err != nil {
		s.logger.Error(err, "reset token lookup failed")
		return apperrors.Internal("failed to reset password", err)
	}
	if token == nil || token.UsedAt != nil || time.Now().After(token.ExpiresAt) {
		return apperrors.BadRequest("reset token is invalid or expired", nil)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return apperrors.BadRequest("invalid password", err)
	}
	if err := s.users.UpdatePassword(ctx, token.UserID, hash); err != nil {
		s.logger.Error(err, "password update failed", "user_id", token.UserID)
		return apperrors.Internal("failed to reset password", err)
	}
	if err := s.tokens.MarkUsed(ctx, token.ID); err != nil {
		s.logger.Error(err, "reset token consume failed", "token_id", token.ID)
	}
	return nil
}

// ValidateToken resolves an access token into its claims.
func (s *Service) ValidateToken(ctx context.Context, token string) (*model.TokenClaims, error) {
	claims, err := s.jwtSvc.ValidateToken(token)
	if err != nil {
		return nil, apperrors.Unauthorized(err)
	}
	return claims, nil
}
