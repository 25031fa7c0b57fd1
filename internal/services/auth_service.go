package services

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"godispatch/internal/apperr"
	"godispatch/internal/models"
	"godispatch/internal/repositories/interfaces"
	"godispatch/pkg/logger"
)

type AuthService struct {
	users     interfaces.UserRepository
	jwtSecret string
	tokenTTL  time.Duration
	logger    *logger.Logger
}

func NewAuthService(users interfaces.UserRepository, jwtSecret string, tokenTTL time.Duration, log *logger.Logger) *AuthService {
	return &AuthService{
		users:     users,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
		logger:    log,
	}
}

type RegisterInput struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Password  string
}

type AuthResult struct {
	User  *models.User `json:"user"`
	Token string       `json:"token"`
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*AuthResult, error) {
	if _, err := s.users.GetByPhone(ctx, input.Phone); err == nil {
		return nil, apperr.Conflict("Phone number already registered")
	} else if !errors.Is(err, interfaces.ErrNotFound) {
		return nil, apperr.Internal(err)
	}
	if _, err := s.users.GetByEmail(ctx, input.Email); err == nil {
		return nil, apperr.Conflict("Email already registered")
	} else if !errors.Is(err, interfaces.ErrNotFound) {
		return nil, apperr.Internal(err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	now := time.Now()
	user := &models.User{
		FirstName:    input.FirstName,
		LastName:     input.LastName,
		Email:        input.Email,
		Phone:        input.Phone,
		PasswordHash: string(hash),
		Role:         models.RoleUser,
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, apperr.Internal(err)
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	s.logger.WithField("user_id", user.ID.Hex()).Info("User registered")
	return &AuthResult{User: user, Token: token}, nil
}

func (s *AuthService) Login(ctx context.Context, phone, password string) (*AuthResult, error) {
	user, err := s.users.GetByPhone(ctx, phone)
	if err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return nil, apperr.Authorization("Invalid credentials")
		}
		return nil, apperr.Internal(err)
	}
	if !user.IsActive {
		return nil, apperr.Authorization("Account is deactivated")
	}
	if bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)) != nil {
		return nil, apperr.Authorization("Invalid credentials")
	}

	token, err := s.issueToken(user)
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &AuthResult{User: user, Token: token}, nil
}

// UpdateDeviceToken registers the push token used by notification fan-out.
func (s *AuthService) UpdateDeviceToken(ctx context.Context, actor Actor, deviceToken string) error {
	if err := s.users.UpdateDeviceToken(ctx, actor.UserID, deviceToken); err != nil {
		if errors.Is(err, interfaces.ErrNotFound) {
			return apperr.NotFound("User not found")
		}
		return apperr.Internal(err)
	}
	return nil
}

func (s *AuthService) issueToken(user *models.User) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id": user.ID.Hex(),
		"role":    string(user.Role),
		"sub":     user.ID.Hex(),
		"iat":     jwt.NewNumericDate(now),
		"exp":     jwt.NewNumericDate(now.Add(s.tokenTTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}
