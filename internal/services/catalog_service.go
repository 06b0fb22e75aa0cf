package services

import (
	"fmt"
	"strings"

	"warung/internal/apperrors"
	"warung/internal/models"
	"warung/internal/repositories"
)

// CatalogService handles business logic related to the product catalog.
type CatalogService struct {
	repo repositories.ProductRepository
}

// NewCatalogService creates a new CatalogService.
func NewCatalogService(repo repositories.ProductRepository) *CatalogService {
	return &CatalogService{
		repo: repo,
	}
}

// ListProducts retrieves all products, optionally filtered by a keyword
// matched against name and description (case-insensitive).
func (s *CatalogService) ListProducts(keyword string) ([]models.Product, error) {
	products, err := s.repo.GetAll()
	if err != nil {
		return nil, err
	}
	keyword = strings.ToLower(strings.TrimSpace(keyword))
	if keyword == "" {
		return products, nil
	}
	filtered := make([]models.Product, 0, len(products))
	for _, p := range products {
		if strings.Contains(strings.ToLower(p.Name), keyword) ||
			strings.Contains(strings.ToLower(p.Description), keyword) {
			filtered = append(filtered, p)
		}
	}
	return filtered, nil
}

// GetProduct retrieves a single product by its ID.
func (s *CatalogService) GetProduct(id string) (*models.Product, error) {
	return s.repo.GetByID(id)
}

// GetProductsBySeller retrieves all products owned by the given seller.
func (s *CatalogService) GetProductsBySeller(sellerID string) ([]models.Product, error) {
	return s.repo.GetBySeller(sellerID)
}

// CreateProduct creates a new product owned by the given seller.
func (s *CatalogService) CreateProduct(product *models.Product, sellerID string) error {
	product.SellerID = sellerID
	return s.repo.Create(product)
}

// UpdateProduct updates an existing product.
func (s *CatalogService) UpdateProduct(product *models.Product) error {
	return s.repo.Update(product)
}

// DeleteProduct deletes a product. Only the admin who listed it may remove it.
func (s *CatalogService) DeleteProduct(id, sellerID string) error {
	product, err := s.repo.GetByID(id)
	if err != nil {
		return err
	}
	if product.SellerID != sellerID {
		return fmt.Errorf("product %s belongs to another seller: %w", id, apperrors.ErrForbidden)
	}
	return s.repo.Delete(id)
}
