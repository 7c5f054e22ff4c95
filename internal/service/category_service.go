package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/elingeyesdev/tickets-incidentes-sub013/internal/config"
	"github.com/elingeyesdev/tickets-incidentes-sub013/internal/domain"
	"github.com/elingeyesdev/tickets-incidentes-sub013/internal/events"
	"github.com/elingeyesdev/tickets-incidentes-sub013/internal/repository"
	"github.com/elingeyesdev/tickets-incidentes-sub013/pkg/apperrors"
)

// CategoryService manages ticket categories and guards their deletion: a
// category referenced by any non-closed ticket cannot be removed.
type CategoryService struct {
	categories repository.CategoryRepository
	tickets    repository.TicketRepository
	txm        repository.TxManager
	dispatcher events.Dispatcher
	attempts   int
}

// CategoryDependencies bundles collaborators for the service.
type CategoryDependencies struct {
	CategoryRepo repository.CategoryRepository
	TicketRepo   repository.TicketRepository
	TxManager    repository.TxManager
	Dispatcher   events.Dispatcher
	Policy       config.TicketPolicyConfig
}

// NewCategoryService constructs the service.
func NewCategoryService(deps CategoryDependencies) *CategoryService {
	return &CategoryService{
		categories: deps.CategoryRepo,
		tickets:    deps.TicketRepo,
		txm:        deps.TxManager,
		dispatcher: deps.Dispatcher,
		attempts:   deps.Policy.TxAttempts,
	}
}

// Create adds a category.
func (s *CategoryService) Create(ctx context.Context, name, description string) (*domain.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.NewValidationError("name required", nil)
	}
	category := &domain.Category{Name: name, Description: strings.TrimSpace(description)}
	if err := s.categories.Create(ctx, category); err != nil {
		return nil, apperrors.MapError(err)
	}
	return category, nil
}

// Get fetches a category by id.
func (s *CategoryService) Get(ctx context.Context, id string) (*domain.Category, error) {
	category, err := s.categories.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("category", map[string]any{"category_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return category, nil
}

// List returns categories.
func (s *CategoryService) List(ctx context.Context, limit, offset int) ([]domain.Category, error) {
	list, err := s.categories.List(ctx, limit, offset)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return list, nil
}

// CanDelete answers whether the category can be removed right now: true only
// when no referencing ticket is in an active (non-closed) status.
func (s *CategoryService) CanDelete(ctx context.Context, id string) (bool, error) {
	count, err := s.tickets.CountActiveByCategory(ctx, id)
	if err != nil {
		return false, apperrors.MapError(err)
	}
	return count == 0, nil
}

// Delete removes the category after re-checking the guard inside the delete
// transaction, so a ticket activated concurrently with the check cannot slip
// past it. Closed tickets still referencing the category have the reference
// cleared rather than cascaded.
func (s *CategoryService) Delete(ctx context.Context, actorID, categoryID string) error {
	err := runInTxWithRetry(ctx, s.txm, s.attempts, func(ctx context.Context) error {
		count, err := s.tickets.CountActiveByCategory(ctx, categoryID)
		if err != nil {
			return err
		}
		if count > 0 {
			return apperrors.NewDeletionBlocked("category has active tickets", map[string]any{
				"category_id":    categoryID,
				"active_tickets": count,
			})
		}
		if err := s.tickets.ClearCategory(ctx, categoryID); err != nil {
			return err
		}
		if err := s.categories.Delete(ctx, categoryID); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperrors.NewNotFound("category", map[string]any{"category_id": categoryID})
			}
			return err
		}
		return nil
	})
	if err != nil {
		return apperrors.MapError(err)
	}

	publish(ctx, s.dispatcher, events.Event{
		Type:  events.EventCategoryDeleted,
		Actor: actorOf(domain.AuthorKindAgent, actorID),
		Payload: events.CategoryDeletedPayload{
			CategoryID: categoryID,
		},
	})
	return nil
}
