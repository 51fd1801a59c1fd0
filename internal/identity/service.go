package identity

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials hides whether the username or the password was wrong.
var ErrInvalidCredentials = errors.New("invalid username or password")

// Service manages user lifecycle and credential checks.
type Service struct {
	repo Repository
}

// NewService creates a new identity service.
func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// RegisterInput captures the data required to create a user.
type RegisterInput struct {
	Username string
	Name     string
	Surname  string
	Password string
	Role     Role
}

// Register creates a user with a hashed password.
func (s *Service) Register(ctx context.Context, input RegisterInput) (User, error) {
	if len(input.Password) < 6 {
		return User{}, errors.New("password must be at least 6 characters")
	}
	if input.Username == "" {
		return User{}, errors.New("username is required")
	}
	if input.Role != RoleEmployee && input.Role != RoleCustomer {
		return User{}, errors.New("role must be EMPLOYEE or CUSTOMER")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.DefaultCost)
	if err != nil {
		return User{}, err
	}

	user := User{
		ID:           uuid.NewString(),
		Username:     input.Username,
		Name:         input.Name,
		Surname:      input.Surname,
		Role:         input.Role,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}

	if err := s.repo.Create(ctx, user); err != nil {
		return User{}, err
	}

	return user, nil
}

// Authenticate verifies credentials and returns the matching user.
func (s *Service) Authenticate(ctx context.Context, creds Credentials) (User, error) {
	user, err := s.repo.FindByUsername(ctx, creds.Username)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}

	if err := bcrypt.CompareHashAndPassword(user.PasswordHash, []byte(creds.Password)); err != nil {
		return User{}, ErrInvalidCredentials
	}

	return user, nil
}

// Get fetches a user by id.
func (s *Service) Get(ctx context.Context, id string) (User, error) {
	return s.repo.FindByID(ctx, id)
}
