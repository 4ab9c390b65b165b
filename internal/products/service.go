package products

import (
	"context"
	"fmt"

	"github.com/mandibook/mandibook-backend/pkg/db/models"
	pkgerrors "github.com/mandibook/mandibook-backend/pkg/errors"
)

// Service exposes the product catalog to the API layer.
type Service interface {
	List(ctx context.Context) ([]models.Product, error)
}

type service struct {
	repo Repository
}

// NewService wires a product service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("products repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) List(ctx context.Context) ([]models.Product, error) {
	products, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list products")
	}
	return products, nil
}
