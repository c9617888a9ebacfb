package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Dan9191/card-transfer-service/internal/models"
	"github.com/Dan9191/card-transfer-service/internal/repository"
	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

// AuthService handles registration and login
type AuthService struct {
	users     UserStore
	jwtSecret string
	log       *logrus.Logger
}

// NewAuthService initializes a new auth service
func NewAuthService(users UserStore, jwtSecret string, log *logrus.Logger) *AuthService {
	return &AuthService{users: users, jwtSecret: jwtSecret, log: log}
}

// RegisterRequest carries registration parameters
type RegisterRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// LoginRequest carries login credentials
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// AuthResponse carries the issued token and the authenticated identity
type AuthResponse struct {
	Token    string `json:"token"`
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// Register creates a new user with a hashed password and returns a token
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	if exists, err := s.users.UsernameExists(ctx, req.Username); err != nil {
		return nil, err
	} else if exists {
		return nil, fmt.Errorf("%w: username already exists: %s", ErrDuplicateResource, req.Username)
	}
	if exists, err := s.users.EmailExists(ctx, req.Email); err != nil {
		return nil, err
	} else if exists {
		return nil, fmt.Errorf("%w: email already exists: %s", ErrDuplicateResource, req.Email)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: string(hashedPassword),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Role:         models.RoleUser,
		Enabled:      true,
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}

	s.log.Infof("User registered: %s", user.Email)
	return s.respondWithToken(user)
}

// Login authenticates a user and returns a JWT token
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	user, err := s.users.FindUserByUsername(ctx, req.Username)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrBadCredentials
	}
	if err != nil {
		return nil, err
	}
	if !user.Enabled {
		return nil, ErrBadCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrBadCredentials
	}

	s.log.Infof("User logged in: %s", user.Email)
	return s.respondWithToken(user)
}

func (s *AuthService) respondWithToken(user *models.User) (*AuthResponse, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":    user.Username,
		"userId": user.ID,
		"role":   user.Role,
		"email":  user.Email,
		"exp":    jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
	})
	tokenString, err := token.SignedString([]byte(s.jwtSecret))
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	return &AuthResponse{
		Token:    tokenString,
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
		Role:     user.Role,
	}, nil
}
