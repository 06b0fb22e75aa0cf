package repositories

import (
	"warung/internal/models"
)

// ProductRepository defines the interface for product data access.
// Reserve and Release adjust stock atomically per product so concurrent
// checkouts never oversell and releases are never lost.
type ProductRepository interface {
	GetAll() ([]models.Product, error)
	GetByID(id string) (*models.Product, error)
	GetBySeller(sellerID string) ([]models.Product, error)
	Create(product *models.Product) error
	Update(product *models.Product) error
	Delete(id string) error
	Reserve(id string, qty int) error
	Release(id string, qty int) error
}
