// Package authpw provides email/password authentication.
package authpw

import (
	"context"
	"errors"
	"fmt"

	"groundswell/api/internal/rbac"
	"groundswell/api/internal/store"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned when the email is unknown or the
// password does not match. Callers must not distinguish the two cases.
var ErrInvalidCredentials = errors.New("invalid email or password")

// ErrNotAdmin is returned when credentials check out but the account
// lacks the admin role required for the requested surface.
var ErrNotAdmin = errors.New("account is not an administrator")

// Service provides email/password authentication
type Service struct {
	store UserStore
}

// UserStore defines the storage interface for auth
type UserStore interface {
	GetUserByEmail(ctx context.Context, email string) (store.User, error)
	GetUserByID(ctx context.Context, id string) (store.User, error)
	CreateUser(ctx context.Context, user store.User) error
}

// NewService creates a new auth service
func NewService(store UserStore) *Service {
	return &Service{store: store}
}

// SignUpRequest contains sign-up parameters
type SignUpRequest struct {
	Email       string
	Password    string
	DisplayName string
	Role        rbac.Role
}

// SignUp creates a new user account. It is not exposed over HTTP; the
// platform seeds accounts at startup and admins are provisioned out of band.
func (s *Service) SignUp(ctx context.Context, req SignUpRequest) (store.User, error) {
	if req.Email == "" || req.Password == "" || req.DisplayName == "" {
		return store.User{}, errors.New("email, password, and display name are required")
	}

	if len(req.Password) < 8 {
		return store.User{}, errors.New("password must be at least 8 characters")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return store.User{}, fmt.Errorf("hash password: %w", err)
	}

	user := store.User{
		ID:           uuid.NewString(),
		DisplayName:  req.DisplayName,
		Email:        req.Email,
		PasswordHash: string(hash),
		Role:         rbac.Normalize(string(req.Role)),
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		return store.User{}, fmt.Errorf("create user: %w", err)
	}

	return user, nil
}

// SignInRequest contains sign-in parameters
type SignInRequest struct {
	Email    string
	Password string
}

// SignInResponse contains sign-in result
type SignInResponse struct {
	User    store.User
	IsAdmin bool
}

// SignIn authenticates a user. The admin verdict is derived from the
// row resolved during this call, never from state cached elsewhere.
func (s *Service) SignIn(ctx context.Context, req SignInRequest) (*SignInResponse, error) {
	if req.Email == "" || req.Password == "" {
		return nil, ErrInvalidCredentials
	}

	user, err := s.store.GetUserByEmail(ctx, req.Email)
	if err != nil {
		return nil, ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	return &SignInResponse{
		User:    user,
		IsAdmin: rbac.Can(user.Role, rbac.ActionManage),
	}, nil
}

// SignInAdmin authenticates a user and requires the admin role. A valid
// password on a non-admin account yields ErrNotAdmin, distinct from
// ErrInvalidCredentials, so the caller can report the two differently.
func (s *Service) SignInAdmin(ctx context.Context, req SignInRequest) (*SignInResponse, error) {
	resp, err := s.SignIn(ctx, req)
	if err != nil {
		return nil, err
	}
	if !resp.IsAdmin {
		return nil, ErrNotAdmin
	}
	return resp, nil
}
