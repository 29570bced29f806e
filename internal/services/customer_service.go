package services

import (
	"context"
	"fmt"

	"crm-backoffice/internal/database"
	"crm-backoffice/internal/models"
	"crm-backoffice/internal/repositories"
)

type CustomerService struct {
	tx    database.TxRunner
	repos *repositories.Repositories
}

func NewCustomerService(tx database.TxRunner, repos *repositories.Repositories) *CustomerService {
	return &CustomerService{
		tx:    tx,
		repos: repos,
	}
}

func customerFromInput(input models.CustomerInput) *models.Customer {
	return &models.Customer{
		Code:     input.Code,
		Name:     input.Name,
		Email:    input.Email,
		Phone:    input.Phone,
		Address:  input.Address,
		City:     input.City,
		PICName:  input.PICName,
		PICPhone: input.PICPhone,
		PICEmail: input.PICEmail,
	}
}

func (s *CustomerService) CreateCustomer(ctx context.Context, input models.CustomerInput) (*models.Customer, error) {
	const op = "CreateCustomer"
	if err := validate(input); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	c := customerFromInput(input)
	if err := s.repos.Customers.Create(ctx, s.tx.DB(), c); err != nil {
		return nil, fmt.Errorf("%s: %w", op, uniqueAs(err, ErrDuplicateCode))
	}
	return c, nil
}

func (s *CustomerService) GetCustomer(ctx context.Context, id int64) (*models.Customer, error) {
	c, err := s.repos.Customers.GetByID(ctx, s.tx.DB(), id)
	if err != nil {
		return nil, fmt.Errorf("GetCustomer: %w", notFound(err, ErrCustomerNotFound))
	}
	return c, nil
}

func (s *CustomerService) ListCustomers(ctx context.Context, filter models.CustomerFilter, page models.PageRequest) ([]*models.Customer, *models.Pagination, error) {
	customers, total, err := s.repos.Customers.List(ctx, s.tx.DB(), filter, page)
	if err != nil {
		return nil, nil, fmt.Errorf("ListCustomers: %w", err)
	}
	return customers, models.NewPagination(page, total), nil
}

func (s *CustomerService) UpdateCustomer(ctx context.Context, id int64, input models.CustomerInput) (*models.Customer, error) {
	const op = "UpdateCustomer"
	if err := validate(input); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	c := customerFromInput(input)
	c.ID = id
	if err := s.repos.Customers.Update(ctx, s.tx.DB(), c); err != nil {
		return nil, fmt.Errorf("%s: %w", op, notFound(uniqueAs(err, ErrDuplicateCode), ErrCustomerNotFound))
	}
	return c, nil
}

// DeleteCustomer soft-deletes the customer and drops its product links.
func (s *CustomerService) DeleteCustomer(ctx context.Context, id int64) error {
	err := s.tx.WithinTx(ctx, func(q database.Querier) error {
		if err := s.repos.Customers.SoftDelete(ctx, q, id); err != nil {
			return notFound(err, ErrCustomerNotFound)
		}
		return s.repos.CustomerProducts.DeleteByCustomer(ctx, q, id)
	})
	if err != nil {
		return fmt.Errorf("DeleteCustomer: %w", err)
	}
	return nil
}

func (s *CustomerService) ListCustomerProducts(ctx context.Context, customerID int64) ([]*models.CustomerProduct, error) {
	const op = "ListCustomerProducts"
	q := s.tx.DB()

	if _, err := s.repos.Customers.GetByID(ctx, q, customerID); err != nil {
		return nil, fmt.Errorf("%s: %w", op, notFound(err, ErrCustomerNotFound))
	}
	products, err := s.repos.CustomerProducts.ListByCustomer(ctx, q, customerID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return products, nil
}

// ManageCustomerProducts replaces the customer's product set with the given
// deepening and success lists, which must not share a product.
func (s *CustomerService) ManageCustomerProducts(ctx context.Context, customerID int64, input models.ManageCustomerProductsInput) ([]*models.CustomerProduct, error) {
	const op = "ManageCustomerProducts"
	if err := validate(input); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	deepening := uniqueIDs(input.Deepening)
	success := uniqueIDs(input.Success)
	inDeepening := make(map[int64]bool, len(deepening))
	for _, id := range deepening {
		inDeepening[id] = true
	}
	for _, id := range success {
		if inDeepening[id] {
			return nil, fmt.Errorf("%s: product %d: %w", op, id, ErrProductListsClash)
		}
	}

	rows := make([]*models.CustomerProduct, 0, len(deepening)+len(success))
	for _, id := range deepening {
		rows = append(rows, &models.CustomerProduct{CustomerID: customerID, ProductID: id, Status: models.CustomerProductDeepening})
	}
	for _, id := range success {
		rows = append(rows, &models.CustomerProduct{CustomerID: customerID, ProductID: id, Status: models.CustomerProductSuccess})
	}

	var result []*models.CustomerProduct
	err := s.tx.WithinTx(ctx, func(q database.Querier) error {
		if _, err := s.repos.Customers.GetByID(ctx, q, customerID); err != nil {
			return notFound(err, ErrCustomerNotFound)
		}

		all := append(append([]int64{}, deepening...), success...)
		found, err := s.repos.Products.ExistingIDs(ctx, q, all)
		if err != nil {
			return err
		}
		for _, id := range all {
			if !found[id] {
				return fmt.Errorf("product %d: %w", id, ErrProductNotFound)
			}
		}

		if err := s.repos.CustomerProducts.DeleteByCustomer(ctx, q, customerID); err != nil {
			return err
		}
		if err := s.repos.CustomerProducts.BulkInsert(ctx, q, rows); err != nil {
			return err
		}
		result, err = s.repos.CustomerProducts.ListByCustomer(ctx, q, customerID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return result, nil
}
