package product

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("product not found")

// Status represents listing availability.
type Status string

const (
	StatusAvailable Status = "AVAILABLE"
	StatusReserved  Status = "RESERVED"
	StatusSold      Status = "SOLD"
)

// Product is a marketplace listing. Only the fields the meetup flow reads are
// modelled here.
type Product struct {
	ID                    int64     `json:"id"`
	ProductID             string    `json:"productId"`
	SellerID              string    `json:"sellerId"`
	Title                 string    `json:"title"`
	DefaultMeetupLocation *string   `json:"defaultMeetupLocation,omitempty"`
	Status                Status    `json:"status"`
	CreatedAt             time.Time `json:"createdAt"`
	UpdatedAt             time.Time `json:"updatedAt"`
}

//go:generate go run go.uber.org/mock/mockgen -destination=mocks/mock_repository.go -package=mocks . Repository

// Repository is a read-only view of the catalog.
type Repository interface {
	GetByID(ctx context.Context, productID string) (*Product, error)
}
