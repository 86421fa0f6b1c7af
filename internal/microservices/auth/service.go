package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"taskhub/internal/broker"
	"taskhub/internal/config"
	"taskhub/internal/shared"
)

// dummy bcrypt hash compared against when the user does not exist, so login
// takes the same time either way
const dummyPasswordHash = "$2a$10$7EqJtq98hPqEX7fNZaFWoOHi6VbU5h6K9v8u5rO0m3j0h6dX5r8e"

type RegisterInput struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshInput struct {
	RefreshToken string `json:"refreshToken"`
}

// AuthResponse is the reply for register, login and refresh
type AuthResponse struct {
	User         shared.User `json:"user"`
	AccessToken  string      `json:"accessToken"`
	RefreshToken string      `json:"refreshToken"`
}

type Service struct {
	repo            Repository
	jwtSecret       string
	refreshSecret   string
	accessTokenTTL  time.Duration
	refreshTokenTTL time.Duration
	logger          *slog.Logger
}

func NewService(repo Repository, cfg *config.Config, logger *slog.Logger) *Service {
	return &Service{
		repo:            repo,
		jwtSecret:       cfg.JWTSecret,
		refreshSecret:   cfg.JWTRefreshSecret,
		accessTokenTTL:  cfg.AccessTokenTTL,
		refreshTokenTTL: cfg.RefreshTokenTTL,
		logger:          logger,
	}
}

func (s *Service) Register(ctx context.Context, input RegisterInput) (*AuthResponse, error) {
	var problems []string
	if input.Email == "" {
		problems = append(problems, "email is required")
	}
	if input.Username == "" {
		problems = append(problems, "username is required")
	}
	if len(input.Password) < 8 {
		problems = append(problems, "password must be at least 8 characters")
	}
	if len(problems) > 0 {
		return nil, broker.NewValidationError(problems...)
	}

	exists, err := s.repo.ExistsByEmailOrUsername(ctx, input.Email, input.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to check existing users: %w", err)
	}
	if exists {
		return nil, broker.NewConflict("Email or username already registered")
	}

	hashedPassword, err := HashPassword(input.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &User{
		Email:    input.Email,
		Username: input.Username,
		Password: hashedPassword,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	s.logger.Info("user registered", "user_id", user.ID, "username", user.Username)

	return s.issueTokens(ctx, user)
}

func (s *Service) Login(ctx context.Context, input LoginInput) (*AuthResponse, error) {
	user, err := s.repo.FindByEmail(ctx, input.Email)
	if err != nil {
		// dummy compare to mitigate timing attacks (always take same time)
		VerifyPassword(dummyPasswordHash, input.Password)
		return nil, broker.NewUnauthorized("Invalid credentials")
	}
	if err := VerifyPassword(user.Password, input.Password); err != nil {
		return nil, broker.NewUnauthorized("Invalid credentials")
	}

	s.logger.Info("user logged in", "user_id", user.ID)
	return s.issueTokens(ctx, user)
}

// Refresh validates the presented refresh token against both its signature
// and the stored hash, then rotates the pair. A token that was already
// rotated away fails the hash check even though its signature is valid.
func (s *Service) Refresh(ctx context.Context, input RefreshInput) (*AuthResponse, error) {
	userID, err := s.parseRefreshToken(input.RefreshToken)
	if err != nil {
		return nil, broker.NewUnauthorized("Invalid refresh token")
	}

	user, err := s.repo.FindByID(ctx, userID)
	if err != nil {
		return nil, broker.NewUnauthorized("Invalid refresh token")
	}
	if user.RefreshTokenHash == "" || VerifyToken(user.RefreshTokenHash, input.RefreshToken) != nil {
		return nil, broker.NewUnauthorized("Invalid refresh token")
	}

	s.logger.Info("tokens refreshed", "user_id", user.ID)
	return s.issueTokens(ctx, user)
}

// ValidateUser checks credentials without issuing tokens
func (s *Service) ValidateUser(ctx context.Context, input LoginInput) (*shared.User, error) {
	user, err := s.repo.FindByEmail(ctx, input.Email)
	if err != nil {
		VerifyPassword(dummyPasswordHash, input.Password)
		return nil, broker.NewUnauthorized("Invalid credentials")
	}
	if err := VerifyPassword(user.Password, input.Password); err != nil {
		return nil, broker.NewUnauthorized("Invalid credentials")
	}
	public := user.Public()
	return &public, nil
}

func (s *Service) FindAll(ctx context.Context) ([]shared.User, error) {
	users, err := s.repo.FindAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	return toPublic(users), nil
}

func (s *Service) FindByIDs(ctx context.Context, ids []string) ([]shared.User, error) {
	users, err := s.repo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to find users: %w", err)
	}
	return toPublic(users), nil
}

func (s *Service) issueTokens(ctx context.Context, user *User) (*AuthResponse, error) {
	accessToken, err := s.generateAccessToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to sign access token: %w", err)
	}
	refreshToken, err := s.generateRefreshToken(user)
	if err != nil {
		return nil, fmt.Errorf("failed to sign refresh token: %w", err)
	}

	hash, err := HashToken(refreshToken)
	if err != nil {
		return nil, fmt.Errorf("failed to hash refresh token: %w", err)
	}
	if err := s.repo.UpdateRefreshTokenHash(ctx, user.ID, hash); err != nil {
		return nil, fmt.Errorf("failed to store refresh token: %w", err)
	}

	return &AuthResponse{
		User:         user.Public(),
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}

func (s *Service) generateAccessToken(user *User) (string, error) {
	claims := jwt.MapClaims{
		"sub":      user.ID,
		"email":    user.Email,
		"username": user.Username,
		"exp":      time.Now().Add(s.accessTokenTTL).Unix(),
		"iat":      time.Now().Unix(),
		"type":     "access",
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.jwtSecret))
}

func (s *Service) generateRefreshToken(user *User) (string, error) {
	claims := jwt.MapClaims{
		"sub": user.ID,
		// unique per token so rotation invalidates the old one even when
		// two tokens are minted within the same second
		"jti":  uuid.NewString(),
		"exp":  time.Now().Add(s.refreshTokenTTL).Unix(),
		"iat":  time.Now().Unix(),
		"type": "refresh",
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.refreshSecret))
}

func (s *Service) parseRefreshToken(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("invalid signing method")
		}
		return []byte(s.refreshSecret), nil
	})
	if err != nil {
		return "", err
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return "", errors.New("invalid token")
	}
	if kind, _ := claims["type"].(string); kind != "refresh" {
		return "", errors.New("not a refresh token")
	}
	sub, _ := claims["sub"].(string)
	if sub == "" {
		return "", errors.New("missing subject")
	}
	return sub, nil
}

func toPublic(users []User) []shared.User {
	out := make([]shared.User, 0, len(users))
	for _, user := range users {
		out = append(out, user.Public())
	}
	return out
}
