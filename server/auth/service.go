package auth

import (
	"context"
	"log/slog"

	"github.com/pkg/errors"

	apierrors "github.com/hrygo/ispkb/server/internal/errors"
	"github.com/hrygo/ispkb/store"
)

// Service authenticates users against the store.
type Service struct {
	store  *store.Store
	tokens *TokenIssuer
}

func NewService(s *store.Store, tokens *TokenIssuer) *Service {
	return &Service{store: s, tokens: tokens}
}

// Tokens returns the issuer used to sign access tokens.
func (s *Service) Tokens() *TokenIssuer {
	return s.tokens
}

// Login checks the credentials and returns the user with a fresh token.
func (s *Service) Login(ctx context.Context, username, password string) (*store.User, string, error) {
	user, err := s.store.GetUser(ctx, &store.FindUser{Username: &username})
	if err != nil {
		return nil, "", apierrors.Internal("failed to find user", err)
	}
	if user == nil || !CheckPassword(user.PasswordHash, password) {
		return nil, "", apierrors.Unauthorized("incorrect username or password")
	}
	if !user.IsActive {
		return nil, "", apierrors.Forbidden("user is disabled")
	}
	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, "", apierrors.Internal("failed to issue token", err)
	}
	return user, token, nil
}

// CreateUser hashes the password and stores a new active user. Taken
// usernames and emails are reported as conflicts.
func (s *Service) CreateUser(ctx context.Context, username, email, password string, role store.Role) (*store.User, error) {
	existing, err := s.store.GetUser(ctx, &store.FindUser{Username: &username})
	if err != nil {
		return nil, apierrors.Internal("failed to find user", err)
	}
	if existing != nil {
		return nil, apierrors.Conflict("username already exists").WithContext("username", username)
	}
	if email != "" {
		existing, err := s.store.GetUser(ctx, &store.FindUser{Email: &email})
		if err != nil {
			return nil, apierrors.Internal("failed to find user", err)
		}
		if existing != nil {
			return nil, apierrors.Conflict("email already exists").WithContext("email", email)
		}
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, apierrors.Internal("failed to hash password", err)
	}
	user, err := s.store.CreateUser(ctx, &store.User{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return nil, apierrors.Conflict("user already exists")
		}
		return nil, apierrors.Internal("failed to create user", err)
	}
	return user, nil
}

// Register creates a regular user and signs them in.
func (s *Service) Register(ctx context.Context, username, email, password string) (*store.User, string, error) {
	user, err := s.CreateUser(ctx, username, email, password, store.RoleUser)
	if err != nil {
		return nil, "", err
	}
	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, "", apierrors.Internal("failed to issue token", err)
	}
	return user, token, nil
}

// Authenticate resolves a token to an active user.
func (s *Service) Authenticate(ctx context.Context, token string) (*store.User, error) {
	claims, err := s.tokens.Parse(token)
	if err != nil {
		return nil, apierrors.Wrap(err, apierrors.ErrCodeUnauthorized, "could not validate credentials")
	}
	user, err := s.store.GetUser(ctx, &store.FindUser{ID: &claims.UserID})
	if err != nil {
		return nil, apierrors.Internal("failed to find user", err)
	}
	if user == nil || user.Username != claims.Subject {
		return nil, apierrors.Unauthorized("could not validate credentials")
	}
	if !user.IsActive {
		return nil, apierrors.Forbidden("user is disabled")
	}
	return user, nil
}

// BootstrapAdmin creates an admin account when username is set and the
// store holds no admin yet.
func (s *Service) BootstrapAdmin(ctx context.Context, username, password string) error {
	if username == "" {
		return nil
	}
	if password == "" {
		return errors.New("admin password is required to bootstrap the admin account")
	}
	role := store.RoleAdmin
	limit := 1
	admins, err := s.store.ListUsers(ctx, &store.FindUser{Role: &role, Pagination: store.Pagination{Limit: &limit}})
	if err != nil {
		return errors.Wrap(err, "failed to list admins")
	}
	if len(admins) > 0 {
		return nil
	}
	if _, err := s.CreateUser(ctx, username, "", password, store.RoleAdmin); err != nil {
		return errors.Wrap(err, "failed to create admin")
	}
	slog.Info("created admin account", slog.String("username", username))
	return nil
}
