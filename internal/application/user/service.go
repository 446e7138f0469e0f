package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	domain "github.com/campus-market/meetup-hub/internal/domain/user"
)

var (
	ErrUsernameTaken = errors.New("username is already registered")
	ErrEmailTaken    = errors.New("email is already registered")
	ErrUserNotFound  = errors.New("user not found")
)

// Service handles user management.
type Service struct {
	repo         domain.Repository
	campusDomain string
	logger       zerolog.Logger
}

// NewService creates a user service. A non-empty campusDomain restricts
// registration to addresses at that domain.
func NewService(repo domain.Repository, campusDomain string, logger zerolog.Logger) *Service {
	return &Service{
		repo:         repo,
		campusDomain: campusDomain,
		logger:       logger.With().Str("service", "user").Logger(),
	}
}

// RegisterInput defines self-registration input.
type RegisterInput struct {
	Username    string
	Email       string
	DisplayName string
	Password    string
}

// Register creates a student account.
func (s *Service) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	username := domain.NormalizeUsername(input.Username)
	if err := domain.ValidateUsername(username); err != nil {
		return nil, err
	}
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if err := domain.ValidateEmail(email, s.campusDomain); err != nil {
		return nil, err
	}
	if err := domain.ValidatePassword(input.Password, username); err != nil {
		return nil, err
	}

	existing, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrUsernameTaken
	}
	existing, err = s.repo.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, ErrEmailTaken
	}

	hash, err := domain.HashPassword(input.Password)
	if err != nil {
		return nil, err
	}
	displayName := strings.TrimSpace(input.DisplayName)
	if displayName == "" {
		displayName = username
	}

	now := time.Now().UTC()
	u := &domain.User{
		UserID:       uuid.New(),
		Username:     username,
		Email:        email,
		DisplayName:  displayName,
		PasswordHash: hash,
		Role:         domain.RoleStudent,
		Status:       domain.StatusActive,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.repo.Create(ctx, u); err != nil {
		return nil, err
	}

	s.logger.Info().Str("user_id", u.UserID.String()).Str("username", u.Username).Msg("user registered")
	return u, nil
}

func (s *Service) GetUser(ctx context.Context, userID uuid.UUID) (*domain.User, error) {
	u, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if u == nil {
		return nil, fmt.Errorf("%w: %s", ErrUserNotFound, userID)
	}
	return u, nil
}
