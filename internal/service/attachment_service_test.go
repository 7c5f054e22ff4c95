package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elingeyesdev/tickets-incidentes-sub013/internal/domain"
	"github.com/elingeyesdev/tickets-incidentes-sub013/pkg/apperrors"
)

func newAttachmentService(store *memStore) *AttachmentService {
	return NewAttachmentService(AttachmentDependencies{
		TicketRepo:     &memTicketRepo{store: store},
		ResponseRepo:   &memResponseRepo{store: store},
		AttachmentRepo: &memAttachmentRepo{store: store},
		TxManager:      &memTxManager{store: store},
		Policy:         testPolicy(),
	})
}

func uploadInput(ticketID string, i int) RecordAttachmentInput {
	return RecordAttachmentInput{
		TicketID:     ticketID,
		UploaderID:   "user-1",
		UploaderKind: domain.AuthorKindUser,
		FileName:     fmt.Sprintf("screenshot-%d.png", i),
		MimeType:     "image/png",
		SizeBytes:    2048,
		StorageKey:   fmt.Sprintf("uploads/screenshot-%d.png", i),
	}
}

func TestRecordAttachment_DirectTicketUpload(t *testing.T) {
	store := newMemStore()
	svc := newAttachmentService(store)
	ticket := openTicket(store)

	attachment, err := svc.RecordAttachment(context.Background(), uploadInput(ticket.ID, 1))
	require.NoError(t, err)
	assert.NotEmpty(t, attachment.ID)
	assert.Nil(t, attachment.ResponseID)
	assert.Equal(t, 1, store.attachmentCount(ticket.ID))
}

func TestRecordAttachment_ResponseLinkedWithinWindow(t *testing.T) {
	store := newMemStore()
	svc := newAttachmentService(store)
	ticket := openTicket(store)
	respAt := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	response := store.addResponse(&domain.Response{
		TicketID:   ticket.ID,
		AuthorID:   "user-1",
		AuthorKind: domain.AuthorKindUser,
		Body:       "see attached",
		CreatedAt:  respAt,
	})
	svc.now = func() time.Time { return respAt.Add(10 * time.Minute) }

	in := uploadInput(ticket.ID, 1)
	in.ResponseID = &response.ID
	attachment, err := svc.RecordAttachment(context.Background(), in)
	require.NoError(t, err)
	require.NotNil(t, attachment.ResponseID)
	assert.Equal(t, response.ID, *attachment.ResponseID)
}

func TestRecordAttachment_RejectsUnknownResponse(t *testing.T) {
	store := newMemStore()
	svc := newAttachmentService(store)
	ticket := openTicket(store)

	missing := "response-missing"
	in := uploadInput(ticket.ID, 1)
	in.ResponseID = &missing
	_, err := svc.RecordAttachment(context.Background(), in)
	require.Error(t, err)
	assert.Equal(t, "REFERENTIAL_MISMATCH", apperrors.CodeOf(err))
	assert.Equal(t, 0, store.attachmentCount(ticket.ID))
}

func TestRecordAttachment_RejectsResponseFromAnotherTicket(t *testing.T) {
	store := newMemStore()
	svc := newAttachmentService(store)
	ticket := openTicket(store)
	other := store.addTicket(&domain.Ticket{
		Code: "TCK-OTHER001", CompanyID: "company-1", CreatedBy: "user-2",
		Status: domain.TicketStatusOpen, LastResponseAuthorKind: domain.AuthorKindNone,
	})
	foreign := store.addResponse(&domain.Response{
		TicketID: other.ID, AuthorID: "user-1", AuthorKind: domain.AuthorKindUser, Body: "elsewhere",
	})

	in := uploadInput(ticket.ID, 1)
	in.ResponseID = &foreign.ID
	_, err := svc.RecordAttachment(context.Background(), in)
	require.Error(t, err)
	assert.Equal(t, "REFERENTIAL_MISMATCH", apperrors.CodeOf(err))
	assert.Equal(t, 0, store.attachmentCount(ticket.ID))
}

func TestRecordAttachment_RejectsNonAuthorUploader(t *testing.T) {
	store := newMemStore()
	svc := newAttachmentService(store)
	ticket := openTicket(store)
	response := store.addResponse(&domain.Response{
		TicketID: ticket.ID, AuthorID: "user-1", AuthorKind: domain.AuthorKindUser, Body: "mine",
	})

	in := uploadInput(ticket.ID, 1)
	in.ResponseID = &response.ID
	in.UploaderID = "agent-1"
	in.UploaderKind = domain.AuthorKindAgent
	_, err := svc.RecordAttachment(context.Background(), in)
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", apperrors.CodeOf(err))
}

func TestRecordAttachment_RejectsExpiredWindow(t *testing.T) {
	store := newMemStore()
	svc := newAttachmentService(store)
	ticket := openTicket(store)
	respAt := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	response := store.addResponse(&domain.Response{
		TicketID: ticket.ID, AuthorID: "user-1", AuthorKind: domain.AuthorKindUser,
		Body: "see attached", CreatedAt: respAt,
	})
	svc.now = func() time.Time { return respAt.Add(40 * time.Minute) }

	in := uploadInput(ticket.ID, 1)
	in.ResponseID = &response.ID
	_, err := svc.RecordAttachment(context.Background(), in)
	require.Error(t, err)
	assert.Equal(t, "FORBIDDEN", apperrors.CodeOf(err))
	assert.Equal(t, 0, store.attachmentCount(ticket.ID))
}

func TestRecordAttachment_QuotaRejectsSixthUpload(t *testing.T) {
	store := newMemStore()
	svc := newAttachmentService(store)
	ticket := openTicket(store)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		_, err := svc.RecordAttachment(ctx, uploadInput(ticket.ID, i))
		require.NoError(t, err, "upload %d", i)
	}

	_, err := svc.RecordAttachment(ctx, uploadInput(ticket.ID, 6))
	require.Error(t, err)
	assert.Equal(t, "QUOTA_EXCEEDED", apperrors.CodeOf(err))
	assert.Equal(t, 5, store.attachmentCount(ticket.ID))
}

func TestRecordAttachment_ReferentialCheckRunsBeforeQuota(t *testing.T) {
	store := newMemStore()
	svc := newAttachmentService(store)
	ticket := openTicket(store)
	ctx := context.Background()

	for i := 1; i <= 5; i++ {
		_, err := svc.RecordAttachment(ctx, uploadInput(ticket.ID, i))
		require.NoError(t, err)
	}

	missing := "response-missing"
	in := uploadInput(ticket.ID, 6)
	in.ResponseID = &missing
	_, err := svc.RecordAttachment(ctx, in)
	require.Error(t, err)
	assert.Equal(t, "REFERENTIAL_MISMATCH", apperrors.CodeOf(err))
}

func TestRecordAttachment_Validation(t *testing.T) {
	store := newMemStore()
	svc := newAttachmentService(store)
	ticket := openTicket(store)

	in := uploadInput(ticket.ID, 1)
	in.FileName = "  "
	_, err := svc.RecordAttachment(context.Background(), in)
	assert.Equal(t, "VALIDATION_FAILED", apperrors.CodeOf(err))

	in = uploadInput(ticket.ID, 2)
	in.SizeBytes = -1
	_, err = svc.RecordAttachment(context.Background(), in)
	assert.Equal(t, "VALIDATION_FAILED", apperrors.CodeOf(err))
}

func TestRecordAttachment_UnknownTicket(t *testing.T) {
	store := newMemStore()
	svc := newAttachmentService(store)

	_, err := svc.RecordAttachment(context.Background(), uploadInput("missing", 1))
	require.Error(t, err)
	assert.Equal(t, "NOT_FOUND", apperrors.CodeOf(err))
}

func TestRecordAttachment_ConcurrentUploadsRespectQuota(t *testing.T) {
	store := newMemStore()
	svc := newAttachmentService(store)
	ticket := openTicket(store)

	const uploads = 8
	var wg sync.WaitGroup
	errs := make([]error, uploads)
	for i := 0; i < uploads; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = svc.RecordAttachment(context.Background(), uploadInput(ticket.ID, i))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
			continue
		}
		assert.Equal(t, "QUOTA_EXCEEDED", apperrors.CodeOf(err))
	}
	assert.Equal(t, 5, succeeded)
	assert.Equal(t, 5, store.attachmentCount(ticket.ID))
}

func TestCountAndListForTicket(t *testing.T) {
	store := newMemStore()
	svc := newAttachmentService(store)
	ticket := openTicket(store)
	ctx := context.Background()

	for i := 1; i <= 3; i++ {
		_, err := svc.RecordAttachment(ctx, uploadInput(ticket.ID, i))
		require.NoError(t, err)
	}

	count, err := svc.CountForTicket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	list, err := svc.ListForTicket(ctx, ticket.ID)
	require.NoError(t, err)
	assert.Len(t, list, 3)
}
