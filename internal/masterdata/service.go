package masterdata

import (
	"context"
	"fmt"
)

// Service provides business logic for sales person and shareholder records.
type Service struct {
	repo *Repository
}

// NewService constructs a master data service.
func NewService(repo *Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) GetSalesPerson(ctx context.Context, id int64) (*SalesPerson, error) {
	return s.repo.GetSalesPerson(ctx, id)
}

func (s *Service) ListSalesPersons(ctx context.Context) ([]SalesPerson, error) {
	return s.repo.ListSalesPersons(ctx)
}

func (s *Service) CreateSalesPerson(ctx context.Context, req CreateSalesPersonRequest) (*SalesPerson, error) {
	id, err := s.repo.CreateSalesPerson(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create sales person: %w", err)
	}
	return s.repo.GetSalesPerson(ctx, id)
}

func (s *Service) UpdateSalesPerson(ctx context.Context, id int64, req UpdateSalesPersonRequest) (*SalesPerson, error) {
	if err := s.repo.UpdateSalesPerson(ctx, id, req); err != nil {
		return nil, err
	}
	return s.repo.GetSalesPerson(ctx, id)
}

func (s *Service) GetShareholder(ctx context.Context, id int64) (*Shareholder, error) {
	return s.repo.GetShareholder(ctx, id)
}

func (s *Service) ListShareholders(ctx context.Context) ([]Shareholder, error) {
	return s.repo.ListShareholders(ctx)
}

func (s *Service) CreateShareholder(ctx context.Context, req CreateShareholderRequest) (*Shareholder, error) {
	id, err := s.repo.CreateShareholder(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("create shareholder: %w", err)
	}
	return s.repo.GetShareholder(ctx, id)
}

func (s *Service) UpdateShareholder(ctx context.Context, id int64, req UpdateShareholderRequest) (*Shareholder, error) {
	if err := s.repo.UpdateShareholder(ctx, id, req); err != nil {
		return nil, err
	}
	return s.repo.GetShareholder(ctx, id)
}
