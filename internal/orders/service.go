// Package orders exposes read access to the orders checkout creates: a
// receipt lookup for the payment result page and a paginated admin list.
package orders

import (
	"context"
	"fmt"
	"net/mail"
	"strings"

	"github.com/phenomboxing/storefront/pkg/db"
	"github.com/phenomboxing/storefront/pkg/db/models"
	"github.com/phenomboxing/storefront/pkg/enums"
	pkgerrors "github.com/phenomboxing/storefront/pkg/errors"
	"github.com/phenomboxing/storefront/pkg/pagination"
)

type repository interface {
	FindByExternalReference(ctx context.Context, ref string) (*models.Order, error)
	List(ctx context.Context, filter ListFilter, params pagination.Params) ([]models.Order, string, error)
}

type Service interface {
	Receipt(ctx context.Context, externalReference string) (*ReceiptDTO, error)
	List(ctx context.Context, input ListInput) (*OrderPage, error)
}

// ListInput is the raw admin query. Status and Email are optional.
type ListInput struct {
	Status string
	Email  string
	pagination.Params
}

type service struct {
	repo repository
}

func NewService(repo repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("orders repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Receipt(ctx context.Context, externalReference string) (*ReceiptDTO, error) {
	ref := strings.TrimSpace(externalReference)
	if ref == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "external reference is required")
	}
	order, err := s.repo.FindByExternalReference(ctx, ref)
	if err != nil {
		if db.IsNotFound(err) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "order not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load order")
	}
	receipt := NewReceiptDTO(*order)
	return &receipt, nil
}

func (s *service) List(ctx context.Context, input ListInput) (*OrderPage, error) {
	var filter ListFilter
	if raw := strings.TrimSpace(input.Status); raw != "" {
		status, err := enums.ParseOrderStatus(raw)
		if err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid status").
				WithDetails(map[string]any{"allowed": enums.OrderStatuses()})
		}
		filter.Status = &status
	}
	if raw := strings.TrimSpace(input.Email); raw != "" {
		if _, err := mail.ParseAddress(raw); err != nil {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid email filter")
		}
		filter.Email = &raw
	}

	rows, next, err := s.repo.List(ctx, filter, input.Params)
	if err != nil {
		if pkgerrors.As(err) != nil {
			return nil, err
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list orders")
	}

	page := &OrderPage{Orders: make([]OrderDTO, 0, len(rows)), NextCursor: next}
	for _, row := range rows {
		page.Orders = append(page.Orders, NewOrderDTO(row))
	}
	return page, nil
}
