// Package authemp provides company-scoped employee credential handling.
// Employees sign in with their company id, employee id, and a password
// that is issued during provisioning and can be changed afterwards.
package authemp

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"

	"golang.org/x/crypto/bcrypt"

	"hrsupport/internal/store"
)

// Service verifies and manages employee credentials
type Service struct {
	store UserStore
}

// UserStore defines the storage interface for credential checks
type UserStore interface {
	GetUserByEmployeeID(ctx context.Context, companyID, employeeID string) (store.User, error)
	GetUserByID(ctx context.Context, id string) (store.User, error)
	UpdateUserPassword(ctx context.Context, userID, passwordHash string) error
}

// ErrInvalidCredentials is returned for any sign-in failure so callers
// cannot distinguish a wrong password from an unknown employee.
var ErrInvalidCredentials = errors.New("invalid company, employee id, or password")

// NewService creates a new credential service
func NewService(store UserStore) *Service {
	return &Service{store: store}
}

// SignInRequest contains sign-in parameters
type SignInRequest struct {
	CompanyID  string
	EmployeeID string
	Password   string
}

// SignIn authenticates an employee within a company
func (s *Service) SignIn(ctx context.Context, req SignInRequest) (store.User, error) {
	if req.CompanyID == "" || req.EmployeeID == "" || req.Password == "" {
		return store.User{}, errors.New("company id, employee id, and password are required")
	}

	user, err := s.store.GetUserByEmployeeID(ctx, req.CompanyID, req.EmployeeID)
	if err != nil {
		return store.User{}, ErrInvalidCredentials
	}
	if user.PasswordHash == "" {
		return store.User{}, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return store.User{}, ErrInvalidCredentials
	}

	return user, nil
}

// ChangePasswordRequest contains password change parameters
type ChangePasswordRequest struct {
	UserID      string
	OldPassword string
	NewPassword string
}

// ChangePassword updates an employee's password after verifying the old one
func (s *Service) ChangePassword(ctx context.Context, req ChangePasswordRequest) error {
	if req.UserID == "" || req.OldPassword == "" || req.NewPassword == "" {
		return errors.New("user id, old password, and new password are required")
	}
	if len(req.NewPassword) < 8 {
		return errors.New("password must be at least 8 characters")
	}

	user, err := s.store.GetUserByID(ctx, req.UserID)
	if err != nil {
		return ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.OldPassword)); err != nil {
		return ErrInvalidCredentials
	}

	hash, err := HashPassword(req.NewPassword)
	if err != nil {
		return err
	}
	if err := s.store.UpdateUserPassword(ctx, req.UserID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// HashPassword hashes a plaintext password with bcrypt
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

const passwordAlphabet = "abcdefghjkmnpqrstuvwxyzABCDEFGHJKMNPQRSTUVWXYZ23456789"

// GeneratePassword creates a random initial password for a provisioned
// employee. The alphabet skips lookalike characters since passwords are
// delivered by email and typed by hand.
func GeneratePassword(length int) (string, error) {
	if length < 8 {
		length = 8
	}
	out := make([]byte, length)
	max := big.NewInt(int64(len(passwordAlphabet)))
	for i := range out {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("generate password: %w", err)
		}
		out[i] = passwordAlphabet[n.Int64()]
	}
	return string(out), nil
}
