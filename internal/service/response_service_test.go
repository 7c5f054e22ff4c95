package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elingeyesdev/tickets-incidentes-sub013/internal/config"
	"github.com/elingeyesdev/tickets-incidentes-sub013/internal/domain"
	"github.com/elingeyesdev/tickets-incidentes-sub013/pkg/apperrors"
)

func testPolicy() config.TicketPolicyConfig {
	return config.TicketPolicyConfig{
		AttachmentQuota:         5,
		AttachmentWindowMinutes: 30,
		TxAttempts:              3,
	}
}

func newResponseService(store *memStore) *ResponseService {
	return NewResponseService(ResponseDependencies{
		TicketRepo:   &memTicketRepo{store: store},
		ResponseRepo: &memResponseRepo{store: store},
		HistoryRepo:  &memHistoryRepo{store: store},
		TxManager:    &memTxManager{store: store},
		Policy:       testPolicy(),
	})
}

func openTicket(store *memStore) *domain.Ticket {
	return store.addTicket(&domain.Ticket{
		Code:                   "TCK-TEST0001",
		CompanyID:              "company-1",
		CreatedBy:              "user-1",
		Subject:                "printer on fire",
		Body:                   "it is very much on fire",
		Status:                 domain.TicketStatusOpen,
		Priority:               domain.TicketPriorityHigh,
		LastResponseAuthorKind: domain.AuthorKindNone,
	})
}

func TestRecordResponse_AgentAssignsOwnerAndMovesToPending(t *testing.T) {
	store := newMemStore()
	svc := newResponseService(store)
	ticket := openTicket(store)
	at := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return at }

	response, err := svc.RecordResponse(context.Background(), RecordResponseInput{
		TicketID:   ticket.ID,
		AuthorID:   "agent-1",
		AuthorKind: domain.AuthorKindAgent,
		Body:       "have you tried water",
	})
	require.NoError(t, err)
	require.NotEmpty(t, response.ID)

	stored := store.ticketSnapshot(ticket.ID)
	require.NotNil(t, stored.OwnerAgentID)
	assert.Equal(t, "agent-1", *stored.OwnerAgentID)
	assert.Equal(t, domain.TicketStatusPending, stored.Status)
	assert.Equal(t, domain.AuthorKindAgent, stored.LastResponseAuthorKind)
	require.NotNil(t, stored.FirstResponseAt)
	assert.Equal(t, at, *stored.FirstResponseAt)

	assert.Len(t, store.historyByType(domain.ChangeTypeOwner), 1)
	assert.Len(t, store.historyByType(domain.ChangeTypeStatus), 1)
}

func TestRecordResponse_UserReplyLeavesOwnershipAlone(t *testing.T) {
	store := newMemStore()
	svc := newResponseService(store)
	ticket := openTicket(store)

	_, err := svc.RecordResponse(context.Background(), RecordResponseInput{
		TicketID:   ticket.ID,
		AuthorID:   "user-1",
		AuthorKind: domain.AuthorKindUser,
		Body:       "any update?",
	})
	require.NoError(t, err)

	stored := store.ticketSnapshot(ticket.ID)
	assert.Nil(t, stored.OwnerAgentID)
	assert.Nil(t, stored.FirstResponseAt)
	assert.Equal(t, domain.TicketStatusOpen, stored.Status)
	assert.Equal(t, domain.AuthorKindUser, stored.LastResponseAuthorKind)
}

func TestRecordResponse_SecondAgentDoesNotStealOwnership(t *testing.T) {
	store := newMemStore()
	svc := newResponseService(store)
	ticket := openTicket(store)
	ctx := context.Background()

	_, err := svc.RecordResponse(ctx, RecordResponseInput{
		TicketID: ticket.ID, AuthorID: "agent-1", AuthorKind: domain.AuthorKindAgent, Body: "on it",
	})
	require.NoError(t, err)
	firstSeen := store.ticketSnapshot(ticket.ID).FirstResponseAt
	require.NotNil(t, firstSeen)

	_, err = svc.RecordResponse(ctx, RecordResponseInput{
		TicketID: ticket.ID, AuthorID: "agent-2", AuthorKind: domain.AuthorKindAgent, Body: "me too",
	})
	require.NoError(t, err)

	stored := store.ticketSnapshot(ticket.ID)
	assert.Equal(t, "agent-1", *stored.OwnerAgentID)
	assert.Equal(t, *firstSeen, *stored.FirstResponseAt)
	assert.Len(t, store.historyByType(domain.ChangeTypeOwner), 1)
}

func TestRecordResponse_UserReopensResolvedTicket(t *testing.T) {
	store := newMemStore()
	svc := newResponseService(store)
	owner := "agent-1"
	first := time.Now().Add(-time.Hour)
	ticket := store.addTicket(&domain.Ticket{
		Code:                   "TCK-TEST0002",
		CompanyID:              "company-1",
		CreatedBy:              "user-1",
		Status:                 domain.TicketStatusResolved,
		OwnerAgentID:           &owner,
		FirstResponseAt:        &first,
		LastResponseAuthorKind: domain.AuthorKindAgent,
	})

	_, err := svc.RecordResponse(context.Background(), RecordResponseInput{
		TicketID: ticket.ID, AuthorID: "user-1", AuthorKind: domain.AuthorKindUser, Body: "still broken",
	})
	require.NoError(t, err)

	stored := store.ticketSnapshot(ticket.ID)
	assert.Equal(t, domain.TicketStatusPending, stored.Status)
	assert.Equal(t, "agent-1", *stored.OwnerAgentID)
	assert.Equal(t, domain.AuthorKindUser, stored.LastResponseAuthorKind)
	assert.Len(t, store.historyByType(domain.ChangeTypeStatus), 1)
}

func TestRecordResponse_UnknownTicket(t *testing.T) {
	store := newMemStore()
	svc := newResponseService(store)

	_, err := svc.RecordResponse(context.Background(), RecordResponseInput{
		TicketID: "missing", AuthorID: "agent-1", AuthorKind: domain.AuthorKindAgent, Body: "hello",
	})
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", apperrors.CodeOf(err))
}

func TestRecordResponse_Validation(t *testing.T) {
	store := newMemStore()
	svc := newResponseService(store)
	ticket := openTicket(store)

	_, err := svc.RecordResponse(context.Background(), RecordResponseInput{
		TicketID: ticket.ID, AuthorID: "agent-1", AuthorKind: domain.AuthorKindAgent, Body: "   ",
	})
	assert.Equal(t, "VALIDATION_FAILED", apperrors.CodeOf(err))

	_, err = svc.RecordResponse(context.Background(), RecordResponseInput{
		TicketID: ticket.ID, AuthorID: "agent-1", AuthorKind: domain.AuthorKindNone, Body: "hello",
	})
	assert.Equal(t, "VALIDATION_FAILED", apperrors.CodeOf(err))
}

func TestRecordResponse_ConcurrentAgentsElectOneOwner(t *testing.T) {
	store := newMemStore()
	svc := newResponseService(store)
	ticket := openTicket(store)

	const agents = 8
	var wg sync.WaitGroup
	errs := make([]error, agents)
	for i := 0; i < agents; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.RecordResponse(context.Background(), RecordResponseInput{
				TicketID:   ticket.ID,
				AuthorID:   fmt.Sprintf("agent-%d", i),
				AuthorKind: domain.AuthorKindAgent,
				Body:       fmt.Sprintf("reply %d", i),
			})
		}(i)
	}
	wg.Wait()
	for i, err := range errs {
		require.NoError(t, err, "agent %d", i)
	}

	stored := store.ticketSnapshot(ticket.ID)
	require.NotNil(t, stored.OwnerAgentID)
	assert.Regexp(t, `^agent-\d+$`, *stored.OwnerAgentID)
	require.NotNil(t, stored.FirstResponseAt)
	assert.Equal(t, domain.TicketStatusPending, stored.Status)

	responses, err := (&memResponseRepo{store: store}).ListByTicket(context.Background(), ticket.ID)
	require.NoError(t, err)
	assert.Len(t, responses, agents)

	ownerChanges := store.historyByType(domain.ChangeTypeOwner)
	assert.Len(t, ownerChanges, 1, "exactly one writer may win the owner claim")
	require.NotNil(t, ownerChanges[0].ChangedByID)
	assert.Equal(t, *stored.OwnerAgentID, *ownerChanges[0].ChangedByID)
}
