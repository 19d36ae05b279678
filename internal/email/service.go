package email

import (
	"context"
)

type Service interface {
	SendVerificationDecision(ctx context.Context, to, name, action, notes string) error
	SendPasswordReset(ctx context.Context, to, token string) error
	SendWelcome(ctx context.Context, to, name string) error
}
