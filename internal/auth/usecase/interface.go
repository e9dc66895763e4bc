package usecase

import (
	"context"
	"errors"

	authdomain "inquiry-backend/internal/auth/domain"
	authdto "inquiry-backend/internal/auth/dto"
)

var (
	ErrEmailTaken         = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidRole        = errors.New("invalid role")
)

// TokenIssuer signs session tokens for authenticated users.
type TokenIssuer interface {
	Issue(subjectID uint, email string) (string, error)
}

// AuthUsecase defines account, session and device-token operations.
type AuthUsecase interface {
	Register(ctx context.Context, req *authdto.RegisterRequest) (*authdto.AuthResponse, error)
	Login(ctx context.Context, req *authdto.LoginRequest) (*authdto.AuthResponse, error)
	GetUserByID(ctx context.Context, id uint) (*authdomain.User, error)
	IsAdmin(ctx context.Context, id uint) (bool, error)

	SetRole(ctx context.Context, email, role string) error
	PromoteAdmins(ctx context.Context) (int64, error)

	RegisterFCMToken(ctx context.Context, userID uint, token, deviceInfo string) error
	UnregisterFCMToken(ctx context.Context, userID uint, token string) error
}
