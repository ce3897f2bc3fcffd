package domain

import (
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/trackline/issue-board-backend/internal/core/errors"
)

// Validation limits for user fields.
const (
	MinUsernameLength = 3
	MaxUsernameLength = 50
	MinPasswordLength = 6
	MaxPasswordLength = 128
	MaxFullNameLength = 255
	MaxEmailLength    = 255
)

// User is an account that can own teams, create issues and receive notifications.
type User struct {
	ID           uuid.UUID
	Username     string
	Email        string
	FullName     string
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// UserRegistrationParams holds parameters for user registration.
type UserRegistrationParams struct {
	Username string
	Email    string
	FullName string
	Password string
}

// Validate validates user registration parameters.
func (p *UserRegistrationParams) Validate() error {
	errs := apperrors.NewValidationErrors()

	username := strings.TrimSpace(p.Username)
	if username == "" {
		errs.Add("username", "Username is required")
	} else if len(username) < MinUsernameLength {
		errs.Add("username", "Username must be at least 3 characters")
	} else if len(username) > MaxUsernameLength {
		errs.Add("username", "Username must be 50 characters or less")
	}

	if p.Email == "" {
		errs.Add("email", "Email is required")
	} else if len(p.Email) > MaxEmailLength {
		errs.Add("email", "Email must be 255 characters or less")
	} else if !isValidEmail(p.Email) {
		errs.Add("email", "Invalid email format")
	}

	if len(p.FullName) > MaxFullNameLength {
		errs.Add("fullName", "Full name must be 255 characters or less")
	}

	if len(p.Password) < MinPasswordLength {
		errs.Add("password", "Password must be at least 6 characters long")
	} else if len(p.Password) > MaxPasswordLength {
		errs.Add("password", "Password must be 128 characters or less")
	}

	if errs.HasErrors() {
		return errs
	}
	return nil
}

// isValidEmail checks email format using the stdlib parser plus a basic sanity check.
func isValidEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	if err != nil {
		return false
	}
	// Reject addresses with a display name ("Bob <bob@x.com>").
	return addr.Address == email && strings.Contains(email, ".")
}

// NewUser creates a user from validated registration params, hashing the password.
func NewUser(params UserRegistrationParams) (*User, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(params.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	return &User{
		Username:     strings.TrimSpace(params.Username),
		Email:        strings.ToLower(strings.TrimSpace(params.Email)),
		FullName:     strings.TrimSpace(params.FullName),
		PasswordHash: string(hash),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// CheckPassword compares a plaintext password against the stored hash.
func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}
