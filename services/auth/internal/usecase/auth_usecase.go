package usecase

import (
	"context"
	"errors"
	"fmt"

	"snapbuzz/pkg/jwt"
	"snapbuzz/pkg/logger"
	"snapbuzz/services/auth/internal/entity"
	"snapbuzz/services/auth/internal/repo/persistent"

	"golang.org/x/crypto/bcrypt"
)

const MinPasswordLength = 8

var (
	ErrUserExists         = errors.New("User already exists")
	ErrUsernameTaken      = errors.New("Username already taken")
	ErrPhoneTaken         = errors.New("Phone number already registered")
	ErrUserNotFound       = errors.New("User not found")
	ErrInvalidCredentials = errors.New("Invalid credentials")
	ErrEmailNotFound      = errors.New("Email not found")
	ErrWeakPassword       = errors.New("Password must be at least 8 characters")
)

type SignupInput struct {
	Username string
	Email    string
	Phone    string
	Password string
}

type AuthUseCase interface {
	Signup(ctx context.Context, in SignupInput) (*entity.User, error)
	Login(ctx context.Context, email, password string) (*entity.User, string, error)
	ResetPassword(ctx context.Context, email, newPassword string) error
	GetUser(ctx context.Context, userID string) (*entity.User, error)
	VerifyEmail(ctx context.Context, email string) error
}

type authUseCase struct {
	userRepo            persistent.UserRepository
	jwtService          *jwt.Service
	defaultProfilePhoto string
	logger              *logger.Logger
}

func NewAuthUseCase(
	userRepo persistent.UserRepository,
	jwtService *jwt.Service,
	defaultProfilePhoto string,
	logger *logger.Logger,
) AuthUseCase {
	return &authUseCase{
		userRepo:            userRepo,
		jwtService:          jwtService,
		defaultProfilePhoto: defaultProfilePhoto,
		logger:              logger,
	}
}

func (uc *authUseCase) Signup(ctx context.Context, in SignupInput) (*entity.User, error) {
	if len(in.Password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}

	if _, err := uc.userRepo.GetByEmail(ctx, in.Email); err == nil {
		return nil, ErrUserExists
	} else if !errors.Is(err, persistent.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up email: %w", err)
	}

	taken, err := uc.userRepo.ExistsByUsername(ctx, in.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to look up username: %w", err)
	}
	if taken {
		return nil, ErrUsernameTaken
	}

	taken, err = uc.userRepo.ExistsByPhone(ctx, in.Phone)
	if err != nil {
		return nil, fmt.Errorf("failed to look up phone: %w", err)
	}
	if taken {
		return nil, ErrPhoneTaken
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		uc.logger.Error("Failed to hash password: %v", err)
		return nil, fmt.Errorf("failed to process registration: %w", err)
	}

	user := &entity.User{
		Username:     in.Username,
		Email:        in.Email,
		Phone:        in.Phone,
		Password:     string(hashedPassword),
		ProfilePhoto: uc.defaultProfilePhoto,
	}

	if err := uc.userRepo.Create(ctx, user); err != nil {
		uc.logger.Error("Failed to create user: %v", err)
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	uc.logger.Info("User %s signed up", user.ID)
	user.Password = ""
	return user, nil
}

func (uc *authUseCase) Login(ctx context.Context, email, password string) (*entity.User, string, error) {
	user, err := uc.userRepo.GetByEmail(ctx, email)
	if errors.Is(err, persistent.ErrNotFound) {
		return nil, "", ErrUserNotFound
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to look up user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, "", ErrInvalidCredentials
	}

	token, err := uc.jwtService.GenerateToken(user.ID, user.Email)
	if err != nil {
		uc.logger.Error("Failed to generate token: %v", err)
		return nil, "", fmt.Errorf("failed to generate token: %w", err)
	}

	user.Password = ""
	return user, token, nil
}

func (uc *authUseCase) ResetPassword(ctx context.Context, email, newPassword string) error {
	user, err := uc.userRepo.GetByEmail(ctx, email)
	if errors.Is(err, persistent.ErrNotFound) {
		return ErrEmailNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to look up user: %w", err)
	}

	if len(newPassword) < MinPasswordLength {
		return ErrWeakPassword
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	if err := uc.userRepo.UpdatePassword(ctx, user.ID, string(hashedPassword)); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	return nil
}

func (uc *authUseCase) GetUser(ctx context.Context, userID string) (*entity.User, error) {
	user, err := uc.userRepo.GetByID(ctx, userID)
	if errors.Is(err, persistent.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	user.Password = ""
	return user, nil
}

func (uc *authUseCase) VerifyEmail(ctx context.Context, email string) error {
	_, err := uc.userRepo.GetByEmail(ctx, email)
	if errors.Is(err, persistent.ErrNotFound) {
		return ErrEmailNotFound
	}
	return err
}
