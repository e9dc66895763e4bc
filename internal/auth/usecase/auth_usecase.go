package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"

	authdomain "inquiry-backend/internal/auth/domain"
	authdto "inquiry-backend/internal/auth/dto"
	"inquiry-backend/internal/auth/repository"
	"inquiry-backend/pkg/config"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// authUsecase implements AuthUsecase interface
type authUsecase struct {
	userRepo repository.UserRepository
	fcmRepo  repository.FCMTokenRepository
	tokens   TokenIssuer
	config   *config.Config
}

// NewAuthUsecase creates a new instance of authUsecase
func NewAuthUsecase(userRepo repository.UserRepository, fcmRepo repository.FCMTokenRepository, tokens TokenIssuer, cfg *config.Config) AuthUsecase {
	return &authUsecase{
		userRepo: userRepo,
		fcmRepo:  fcmRepo,
		tokens:   tokens,
		config:   cfg,
	}
}

func (u *authUsecase) Register(ctx context.Context, req *authdto.RegisterRequest) (*authdto.AuthResponse, error) {
	email := normalizeEmail(req.Email)

	existing, err := u.userRepo.FindByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hashedPassword, err := repository.HashPassword(req.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &authdomain.User{
		Email:        email,
		PasswordHash: hashedPassword,
		Role:         authdomain.RoleUser,
	}
	if u.config.IsAdminEmail(email) {
		user.Role = authdomain.RoleAdmin
	}

	if err := u.userRepo.Create(ctx, user); err != nil {
		// Lost a race with a concurrent registration of the same email.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"component": "auth",
		"user_id":   user.ID,
		"role":      user.Role,
	}).Info("user registered")

	return u.respond("registration successful", user)
}

func (u *authUsecase) Login(ctx context.Context, req *authdto.LoginRequest) (*authdto.AuthResponse, error) {
	user, err := u.userRepo.FindByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}

	if !repository.CheckPasswordHash(req.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	return u.respond("login successful", user)
}

func (u *authUsecase) GetUserByID(ctx context.Context, id uint) (*authdomain.User, error) {
	user, err := u.userRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// IsAdmin reads the role from the store on every call so demotions apply
// to tokens that are already issued.
func (u *authUsecase) IsAdmin(ctx context.Context, id uint) (bool, error) {
	user, err := u.userRepo.FindByID(ctx, id)
	if err != nil {
		return false, err
	}
	return user != nil && user.IsAdmin(), nil
}

func (u *authUsecase) SetRole(ctx context.Context, email, role string) error {
	if role != authdomain.RoleUser && role != authdomain.RoleAdmin {
		return ErrInvalidRole
	}
	found, err := u.userRepo.SetRole(ctx, normalizeEmail(email), role)
	if err != nil {
		return err
	}
	if !found {
		return ErrUserNotFound
	}
	return nil
}

// PromoteAdmins grants the admin role to accounts listed in ADMIN_EMAILS
// that were registered before the list changed.
func (u *authUsecase) PromoteAdmins(ctx context.Context) (int64, error) {
	return u.userRepo.PromoteByEmails(ctx, u.config.AdminEmails)
}

func (u *authUsecase) RegisterFCMToken(ctx context.Context, userID uint, token, deviceInfo string) error {
	return u.fcmRepo.SaveToken(ctx, userID, token, deviceInfo)
}

func (u *authUsecase) UnregisterFCMToken(ctx context.Context, userID uint, token string) error {
	return u.fcmRepo.DeleteUserToken(ctx, userID, token)
}

func (u *authUsecase) respond(message string, user *authdomain.User) (*authdto.AuthResponse, error) {
	tok, err := u.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}
	return &authdto.AuthResponse{
		Message: message,
		Token:   tok,
		User: authdto.UserInfo{
			ID:    user.ID,
			Email: user.Email,
			Role:  user.Role,
		},
	}, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
