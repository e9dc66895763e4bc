package repository

import (
	"context"

	authdomain "inquiry-backend/internal/auth/domain"
)

// UserRepository defines persistence for accounts. Finders return nil, nil
// when no row matches.
type UserRepository interface {
	Create(ctx context.Context, user *authdomain.User) error
	FindByEmail(ctx context.Context, email string) (*authdomain.User, error)
	FindByID(ctx context.Context, id uint) (*authdomain.User, error)
	SetRole(ctx context.Context, email, role string) (bool, error)
	PromoteByEmails(ctx context.Context, emails []string) (int64, error)
}

// FCMTokenRepository defines the interface for FCM token operations
type FCMTokenRepository interface {
	SaveToken(ctx context.Context, userID uint, token, deviceInfo string) error
	GetTokensByUserID(ctx context.Context, userID uint) ([]authdomain.FCMToken, error)
	DeleteToken(ctx context.Context, token string) error
	DeleteUserToken(ctx context.Context, userID uint, token string) error
}
