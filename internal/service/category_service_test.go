package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elingeyesdev/tickets-incidentes-sub013/internal/domain"
	"github.com/elingeyesdev/tickets-incidentes-sub013/pkg/apperrors"
)

func newCategoryService(store *memStore) *CategoryService {
	return NewCategoryService(CategoryDependencies{
		CategoryRepo: &memCategoryRepo{store: store},
		TicketRepo:   &memTicketRepo{store: store},
		TxManager:    &memTxManager{store: store},
		Policy:       testPolicy(),
	})
}

func categoryWithTicket(store *memStore, status domain.TicketStatus) (*domain.Category, *domain.Ticket) {
	category := store.addCategory(&domain.Category{Name: "hardware"})
	ticket := store.addTicket(&domain.Ticket{
		Code:                   "TCK-CAT00001",
		CompanyID:              "company-1",
		CategoryID:             &category.ID,
		CreatedBy:              "user-1",
		Status:                 status,
		LastResponseAuthorKind: domain.AuthorKindNone,
	})
	return category, ticket
}

func TestCanDelete_PerTicketStatus(t *testing.T) {
	cases := []struct {
		status    domain.TicketStatus
		deletable bool
	}{
		{domain.TicketStatusOpen, false},
		{domain.TicketStatusPending, false},
		{domain.TicketStatusResolved, false},
		{domain.TicketStatusClosed, true},
	}
	for _, tc := range cases {
		t.Run(string(tc.status), func(t *testing.T) {
			store := newMemStore()
			svc := newCategoryService(store)
			category, _ := categoryWithTicket(store, tc.status)

			ok, err := svc.CanDelete(context.Background(), category.ID)
			require.NoError(t, err)
			assert.Equal(t, tc.deletable, ok)
		})
	}
}

func TestCanDelete_Unreferenced(t *testing.T) {
	store := newMemStore()
	svc := newCategoryService(store)
	category := store.addCategory(&domain.Category{Name: "billing"})

	ok, err := svc.CanDelete(context.Background(), category.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestDelete_BlockedByActiveTicket(t *testing.T) {
	store := newMemStore()
	svc := newCategoryService(store)
	category, _ := categoryWithTicket(store, domain.TicketStatusResolved)

	err := svc.Delete(context.Background(), "agent-1", category.ID)
	require.Error(t, err)
	assert.Equal(t, "HAS_ACTIVE_TICKETS", apperrors.CodeOf(err))

	_, err = svc.Get(context.Background(), category.ID)
	assert.NoError(t, err, "blocked delete must not remove the category")
}

func TestDelete_ClearsReferencesOnClosedTickets(t *testing.T) {
	store := newMemStore()
	svc := newCategoryService(store)
	category, ticket := categoryWithTicket(store, domain.TicketStatusClosed)

	err := svc.Delete(context.Background(), "agent-1", category.ID)
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), category.ID)
	assert.Equal(t, "NOT_FOUND", apperrors.CodeOf(err))

	stored := store.ticketSnapshot(ticket.ID)
	assert.Nil(t, stored.CategoryID, "closed ticket keeps its row but drops the category reference")
}

func TestDelete_UnknownCategory(t *testing.T) {
	store := newMemStore()
	svc := newCategoryService(store)

	err := svc.Delete(context.Background(), "agent-1", "missing")
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", apperrors.CodeOf(err))
}

func TestCreate_Validation(t *testing.T) {
	store := newMemStore()
	svc := newCategoryService(store)

	_, err := svc.Create(context.Background(), "  ", "")
	assert.Equal(t, "VALIDATION_FAILED", apperrors.CodeOf(err))

	category, err := svc.Create(context.Background(), " network ", " vpn and wifi ")
	require.NoError(t, err)
	assert.Equal(t, "network", category.Name)
	assert.Equal(t, "vpn and wifi", category.Description)
	assert.NotEmpty(t, category.ID)
}
