package services

import (
	"context"
	"fmt"

	"crm-backoffice/internal/billing"
	"crm-backoffice/internal/database"
	"crm-backoffice/internal/models"
	"crm-backoffice/internal/repositories"
)

type ProductService struct {
	tx    database.TxRunner
	repos *repositories.Repositories
}

func NewProductService(tx database.TxRunner, repos *repositories.Repositories) *ProductService {
	return &ProductService{
		tx:    tx,
		repos: repos,
	}
}

func productFromInput(input models.ProductInput) *models.Product {
	return &models.Product{
		Code:        input.Code,
		Name:        input.Name,
		Kind:        input.Kind,
		Unit:        input.Unit,
		Price:       billing.Money(input.Price),
		Description: input.Description,
	}
}

func (s *ProductService) CreateProduct(ctx context.Context, input models.ProductInput) (*models.Product, error) {
	const op = "CreateProduct"
	if err := validate(input); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	p := productFromInput(input)
	if err := s.repos.Products.Create(ctx, s.tx.DB(), p); err != nil {
		return nil, fmt.Errorf("%s: %w", op, uniqueAs(err, ErrDuplicateCode))
	}
	return p, nil
}

func (s *ProductService) GetProduct(ctx context.Context, id int64) (*models.Product, error) {
	p, err := s.repos.Products.GetByID(ctx, s.tx.DB(), id)
	if err != nil {
		return nil, fmt.Errorf("GetProduct: %w", notFound(err, ErrProductNotFound))
	}
	return p, nil
}

func (s *ProductService) ListProducts(ctx context.Context, filter models.ProductFilter, page models.PageRequest) ([]*models.Product, *models.Pagination, error) {
	products, total, err := s.repos.Products.List(ctx, s.tx.DB(), filter, page)
	if err != nil {
		return nil, nil, fmt.Errorf("ListProducts: %w", err)
	}
	return products, models.NewPagination(page, total), nil
}

// UpdateProduct changes the catalog entry only; prices already copied onto
// transaction items stay as they were.
func (s *ProductService) UpdateProduct(ctx context.Context, id int64, input models.ProductInput) (*models.Product, error) {
	const op = "UpdateProduct"
	if err := validate(input); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	p := productFromInput(input)
	p.ID = id
	if err := s.repos.Products.Update(ctx, s.tx.DB(), p); err != nil {
		return nil, fmt.Errorf("%s: %w", op, notFound(uniqueAs(err, ErrDuplicateCode), ErrProductNotFound))
	}
	return p, nil
}

func (s *ProductService) DeleteProduct(ctx context.Context, id int64) error {
	if err := s.repos.Products.SoftDelete(ctx, s.tx.DB(), id); err != nil {
		return fmt.Errorf("DeleteProduct: %w", notFound(err, ErrProductNotFound))
	}
	return nil
}
