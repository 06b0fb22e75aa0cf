package services_test

import (
	"fmt"
	"testing"

	"warung/internal/apperrors"
	"warung/internal/models"
	"warung/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockProductRepository is a mock implementation of repositories.ProductRepository
type MockProductRepository struct {
	mock.Mock
}

func (m *MockProductRepository) GetAll() ([]models.Product, error) {
	args := m.Called()
	return args.Get(0).([]models.Product), args.Error(1)
}

func (m *MockProductRepository) GetByID(id string) (*models.Product, error) {
	args := m.Called(id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Product), args.Error(1)
}

func (m *MockProductRepository) GetBySeller(sellerID string) ([]models.Product, error) {
	args := m.Called(sellerID)
	return args.Get(0).([]models.Product), args.Error(1)
}

func (m *MockProductRepository) Create(product *models.Product) error {
	args := m.Called(product)
	return args.Error(0)
}

func (m *MockProductRepository) Update(product *models.Product) error {
	args := m.Called(product)
	return args.Error(0)
}

func (m *MockProductRepository) Delete(id string) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockProductRepository) Reserve(id string, qty int) error {
	args := m.Called(id, qty)
	return args.Error(0)
}

func (m *MockProductRepository) Release(id string, qty int) error {
	args := m.Called(id, qty)
	return args.Error(0)
}

func TestCatalogService_ListProducts(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := services.NewCatalogService(mockRepo)

	catalog := []models.Product{
		{ID: "1", Name: "Game Voucher", Description: "Digital voucher", Price: 100000, Stock: 10},
		{ID: "2", Name: "Streaming Account", Description: "Premium account", Price: 55000, Stock: 5},
	}

	mockRepo.On("GetAll").Return(catalog, nil).Once()
	products, err := service.ListProducts("")
	require.NoError(t, err)
	assert.Len(t, products, 2)
	mockRepo.AssertExpectations(t)
}

func TestCatalogService_ListProductsKeyword(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := services.NewCatalogService(mockRepo)

	catalog := []models.Product{
		{ID: "1", Name: "Game Voucher", Description: "Digital voucher", Price: 100000, Stock: 10},
		{ID: "2", Name: "Streaming Account", Description: "Premium account", Price: 55000, Stock: 5},
	}

	// Keyword matches name, case-insensitive.
	mockRepo.On("GetAll").Return(catalog, nil).Once()
	products, err := service.ListProducts("VOUCHER")
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Game Voucher", products[0].Name)

	// Keyword matches description.
	mockRepo.On("GetAll").Return(catalog, nil).Once()
	products, err = service.ListProducts("premium")
	require.NoError(t, err)
	require.Len(t, products, 1)
	assert.Equal(t, "Streaming Account", products[0].Name)

	// No matches.
	mockRepo.On("GetAll").Return(catalog, nil).Once()
	products, err = service.ListProducts("nonexistent")
	require.NoError(t, err)
	assert.Empty(t, products)

	mockRepo.AssertExpectations(t)
}

func TestCatalogService_GetProduct(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := services.NewCatalogService(mockRepo)

	expected := &models.Product{ID: "1", Name: "Game Voucher", Price: 100000, Stock: 10}

	mockRepo.On("GetByID", "1").Return(expected, nil).Once()
	product, err := service.GetProduct("1")
	require.NoError(t, err)
	assert.Equal(t, expected, product)

	mockRepo.On("GetByID", "99").Return(nil, fmt.Errorf("product 99: %w", apperrors.ErrNotFound)).Once()
	product, err = service.GetProduct("99")
	assert.ErrorIs(t, err, apperrors.ErrNotFound)
	assert.Nil(t, product)

	mockRepo.AssertExpectations(t)
}

func TestCatalogService_CreateProductSetsSeller(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := services.NewCatalogService(mockRepo)

	product := &models.Product{Name: "New Voucher", Price: 50000, Stock: 20}

	mockRepo.On("Create", product).Return(nil).Once()
	err := service.CreateProduct(product, "admin-1")
	require.NoError(t, err)
	assert.Equal(t, "admin-1", product.SellerID)
	mockRepo.AssertExpectations(t)
}

func TestCatalogService_DeleteProductOwnership(t *testing.T) {
	mockRepo := new(MockProductRepository)
	service := services.NewCatalogService(mockRepo)

	product := &models.Product{ID: "1", Name: "Voucher", Price: 1000, Stock: 1, SellerID: "admin-1"}

	// The owner can delete.
	mockRepo.On("GetByID", "1").Return(product, nil).Once()
	mockRepo.On("Delete", "1").Return(nil).Once()
	assert.NoError(t, service.DeleteProduct("1", "admin-1"))

	// Another admin cannot.
	mockRepo.On("GetByID", "1").Return(product, nil).Once()
	err := service.DeleteProduct("1", "admin-2")
	assert.ErrorIs(t, err, apperrors.ErrForbidden)

	mockRepo.AssertExpectations(t)
}
