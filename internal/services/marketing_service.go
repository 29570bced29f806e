package services

import (
	"context"
	"fmt"

	"crm-backoffice/internal/database"
	"crm-backoffice/internal/models"
	"crm-backoffice/internal/repositories"
)

type MarketingService struct {
	tx    database.TxRunner
	repos *repositories.Repositories
}

func NewMarketingService(tx database.TxRunner, repos *repositories.Repositories) *MarketingService {
	return &MarketingService{
		tx:    tx,
		repos: repos,
	}
}

func (s *MarketingService) CreateMarketing(ctx context.Context, input models.MarketingInput) (*models.Marketing, error) {
	const op = "CreateMarketing"
	if err := validate(input); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	m := &models.Marketing{Name: input.Name, Email: input.Email, Phone: input.Phone}
	if err := s.repos.Marketings.Create(ctx, s.tx.DB(), m); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return m, nil
}

func (s *MarketingService) GetMarketing(ctx context.Context, id int64) (*models.Marketing, error) {
	m, err := s.repos.Marketings.GetByID(ctx, s.tx.DB(), id)
	if err != nil {
		return nil, fmt.Errorf("GetMarketing: %w", notFound(err, ErrMarketingNotFound))
	}
	return m, nil
}

func (s *MarketingService) ListMarketings(ctx context.Context, filter models.MarketingFilter, page models.PageRequest) ([]*models.Marketing, *models.Pagination, error) {
	marketings, total, err := s.repos.Marketings.List(ctx, s.tx.DB(), filter, page)
	if err != nil {
		return nil, nil, fmt.Errorf("ListMarketings: %w", err)
	}
	return marketings, models.NewPagination(page, total), nil
}

func (s *MarketingService) UpdateMarketing(ctx context.Context, id int64, input models.MarketingInput) (*models.Marketing, error) {
	const op = "UpdateMarketing"
	if err := validate(input); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	m := &models.Marketing{ID: id, Name: input.Name, Email: input.Email, Phone: input.Phone}
	if err := s.repos.Marketings.Update(ctx, s.tx.DB(), m); err != nil {
		return nil, fmt.Errorf("%s: %w", op, notFound(err, ErrMarketingNotFound))
	}
	return m, nil
}

func (s *MarketingService) DeleteMarketing(ctx context.Context, id int64) error {
	if err := s.repos.Marketings.SoftDelete(ctx, s.tx.DB(), id); err != nil {
		return fmt.Errorf("DeleteMarketing: %w", notFound(err, ErrMarketingNotFound))
	}
	return nil
}
