package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/campus-market/meetup-hub/internal/domain/product"
)

// Service is the read-only product lookup used before proposing a meetup.
type Service struct {
	repo   product.Repository
	logger zerolog.Logger
}

// NewService creates a new catalog service
func NewService(repo product.Repository, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger.With().Str("service", "catalog").Logger(),
	}
}

// GetProduct returns the listing or product.ErrNotFound.
func (s *Service) GetProduct(ctx context.Context, productID string) (*product.Product, error) {
	productID = strings.TrimSpace(productID)
	if productID == "" {
		return nil, product.ErrNotFound
	}
	p, err := s.repo.GetByID(ctx, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}
	return p, nil
}

// DefaultMeetupLocation returns the seller's preferred meetup spot, or "" when
// the listing has none.
func (s *Service) DefaultMeetupLocation(ctx context.Context, productID string) (string, error) {
	p, err := s.GetProduct(ctx, productID)
	if err != nil {
		return "", err
	}
	if p.DefaultMeetupLocation == nil {
		return "", nil
	}
	return strings.TrimSpace(*p.DefaultMeetupLocation), nil
}
