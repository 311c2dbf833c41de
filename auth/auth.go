// Package auth registers accounts, checks credentials and issues the signed
// session tokens the HTTP layer uses to identify callers.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"restaurant-tracker-api/models"
	"restaurant-tracker-api/store"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"
)

var logger = logrus.WithField("context", "auth")

// Claims is the payload of a session token
type Claims struct {
	UserID string          `json:"user_id"`
	Email  string          `json:"email"`
	Role   models.UserRole `json:"role"`
	jwt.RegisteredClaims
}

type Service struct {
	accounts store.AccountStore
	secret   []byte
	ttl      time.Duration
	now      func() time.Time
}

func NewService(accounts store.AccountStore, secret []byte, ttl time.Duration) *Service {
	return &Service{accounts: accounts, secret: secret, ttl: ttl, now: time.Now}
}

type RegisterInput struct {
	Username string
	Email    string
	Password string
	Role     models.UserRole
}

func (in *RegisterInput) validate() error {
	if strings.TrimSpace(in.Username) == "" {
		return fmt.Errorf("%w: username is required", models.ErrValidation)
	}
	if err := models.ValidateVar(in.Email, "required,email"); err != nil {
		return fmt.Errorf("email: %w", err)
	}
	if in.Password == "" {
		return fmt.Errorf("%w: password is required", models.ErrValidation)
	}
	if in.Role != "" && !in.Role.Valid() {
		return fmt.Errorf("%w: role must be admin or user", models.ErrValidation)
	}
	return nil
}

// Register creates an account with a bcrypt-hashed password
func (s *Service) Register(ctx context.Context, in RegisterInput) (*models.Account, error) {
	in.Email = normalizeEmail(in.Email)
	if err := in.validate(); err != nil {
		return nil, err
	}
	role := in.Role
	if role == "" {
		role = models.RoleUser
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	account := &models.Account{
		Username:     strings.TrimSpace(in.Username),
		Email:        in.Email,
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := s.accounts.CreateAccount(ctx, account); err != nil {
		return nil, err
	}
	logger.WithFields(logrus.Fields{"id": account.ID, "role": account.Role}).Info("Account registered")
	return account, nil
}

// Login checks the credentials and returns a fresh token. Unknown email and
// wrong password are indistinguishable to the caller.
func (s *Service) Login(ctx context.Context, email, password string) (string, *models.Account, error) {
	account, err := s.accounts.FindAccountByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if !errors.Is(err, models.ErrNotFound) {
			return "", nil, err
		}
		// keep timing comparable to a real password check
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		logger.Info("Login rejected")
		return "", nil, models.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(password)); err != nil {
		logger.Info("Login rejected")
		return "", nil, models.ErrInvalidCredentials
	}

	token, err := s.IssueToken(account)
	if err != nil {
		return "", nil, err
	}
	return token, account, nil
}

// IssueToken signs a token for account valid for the configured lifetime
func (s *Service) IssueToken(account *models.Account) (string, error) {
	now := s.now()
	claims := Claims{
		UserID: account.ID,
		Email:  account.Email,
		Role:   account.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   account.ID,
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// ParseToken verifies signature and expiry and returns the claims
func (s *Service) ParseToken(tokenStr string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.Email == "" {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}

// Profile returns the account behind a token
func (s *Service) Profile(ctx context.Context, id string) (*models.Account, error) {
	return s.accounts.GetAccount(ctx, id)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// dummyHash is compared against when the email is unknown
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("restaurant-tracker"), bcrypt.DefaultCost)
