package model

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Auth errors
var (
	ErrInvalidCredentials = errors.New("invalid credentials")
)

type RegisterRequest struct {
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8"`
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	UserType  string `json:"user_type" binding:"required,oneof=standard medical_professional"`

	// Required when user_type is medical_professional.
	LicenseNumber string `json:"license_number" binding:"required_if=UserType medical_professional,omitempty,license"`
	LicenseState  string `json:"license_state"`
	Specialty     string `json:"specialty"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type PasswordResetRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// TokenClaims are the JWT claims carried by access and refresh tokens.
type TokenClaims struct {
	jwt.RegisteredClaims
	UserID   string `json:"user_id"`
	Email    string `json:"email"`
	UserType string `json:"user_type"`
}

// UserAccount is the credential slice of a users document; the profile
// fields live on Professional or Admin depending on the type tag.
type UserAccount struct {
	ID           string    `bson:"_id" json:"id"`
	UserID       string    `bson:"userId" json:"user_id"`
	UserType     string    `bson:"userType" json:"user_type"`
	Email        string    `bson:"email" json:"email"`
	PasswordHash string    `bson:"passwordHash" json:"-"`
	CreatedAt    time.Time `bson:"createdAt" json:"created_at"`
	UpdatedAt    time.Time `bson:"updatedAt" json:"updated_at"`
}

// PasswordResetToken gates the provider-side reset email; it expires and is
// consumed on use.
type PasswordResetToken struct {
	ID        string     `bson:"_id" json:"id"`
	UserID    string     `bson:"userId" json:"user_id"`
	Email     string     `bson:"email" json:"email"`
	Token     string     `bson:"token" json:"-"`
	ExpiresAt time.Time  `bson:"expiresAt" json:"expires_at"`
	UsedAt    *time.Time `bson:"usedAt,omitempty" json:"used_at,omitempty"`
	CreatedAt time.Time  `bson:"createdAt" json:"created_at"`
}
