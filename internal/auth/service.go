package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/ledgerbook/ledgerbook/internal/platform/httpx"
	"github.com/ledgerbook/ledgerbook/internal/shared"
)

// Service wraps authentication business rules.
type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs a new Service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// Authenticate validates email/password credentials. Unknown users, inactive
// users and wrong passwords are indistinguishable to the caller.
func (s *Service) Authenticate(ctx context.Context, email, password string) (*User, error) {
	user, err := s.repo.FindByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			return nil, err
		}
		return nil, shared.ErrInvalidCredentials
	}
	if !user.IsActive {
		return nil, shared.ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, shared.ErrInvalidCredentials
	}
	at := s.now().UTC()
	if err := s.repo.TouchLogin(ctx, user.ID, at); err != nil {
		s.logger.Warn("record login", slog.Int64("user_id", user.ID), slog.Any("error", err))
	} else {
		user.LastLoginAt = &at
	}
	return user, nil
}

// Get returns the user by id.
func (s *Service) Get(ctx context.Context, id int64) (*User, error) {
	return s.repo.FindByID(ctx, id)
}

// CreateUser hashes the password and stores a new active user.
func (s *Service) CreateUser(ctx context.Context, in NewUserInput) (*User, error) {
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Name = strings.TrimSpace(in.Name)
	if err := httpx.Validate(in); err != nil {
		return nil, err
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user, err := s.repo.Create(ctx, in.Email, in.Name, string(hash))
	if err != nil {
		return nil, err
	}
	s.logger.Info("user created", slog.Int64("user_id", user.ID), slog.String("email", user.Email))
	return user, nil
}

// Actor converts a user into the session actor.
func (u *User) Actor() shared.Actor {
	name := u.Name
	if name == "" {
		name = u.Email
	}
	return shared.Actor{ID: u.ID, Name: name}
}
