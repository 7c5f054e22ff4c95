package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/elingeyesdev/tickets-incidentes-sub013/internal/domain"
	"github.com/elingeyesdev/tickets-incidentes-sub013/internal/repository"
)

// memStore is an in-memory stand-in for the Postgres-backed repositories.
// Its TxManager takes a single lock for the whole transaction body, which
// serializes concurrent rules the way the ticket row lock does in SQL.
type memStore struct {
	mu          sync.Mutex
	seq         int
	tickets     map[string]*domain.Ticket
	responses   map[string]*domain.Response
	attachments map[string]*domain.Attachment
	categories  map[string]*domain.Category
	history     []domain.TicketHistory
}

func newMemStore() *memStore {
	return &memStore{
		tickets:     make(map[string]*domain.Ticket),
		responses:   make(map[string]*domain.Response),
		attachments: make(map[string]*domain.Attachment),
		categories:  make(map[string]*domain.Category),
	}
}

func (s *memStore) nextID(prefix string) string {
	s.seq++
	return fmt.Sprintf("%s-%d", prefix, s.seq)
}

func (s *memStore) addTicket(ticket *domain.Ticket) *domain.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ticket.ID == "" {
		ticket.ID = s.nextID("ticket")
	}
	if ticket.CreatedAt.IsZero() {
		ticket.CreatedAt = time.Now()
	}
	s.tickets[ticket.ID] = ticket
	return ticket
}

func (s *memStore) addResponse(response *domain.Response) *domain.Response {
	s.mu.Lock()
	defer s.mu.Unlock()
	if response.ID == "" {
		response.ID = s.nextID("response")
	}
	if response.CreatedAt.IsZero() {
		response.CreatedAt = time.Now()
	}
	s.responses[response.ID] = response
	return response
}

func (s *memStore) addCategory(category *domain.Category) *domain.Category {
	s.mu.Lock()
	defer s.mu.Unlock()
	if category.ID == "" {
		category.ID = s.nextID("category")
	}
	s.categories[category.ID] = category
	return category
}

func (s *memStore) ticketSnapshot(id string) domain.Ticket {
	s.mu.Lock()
	defer s.mu.Unlock()
	return *s.tickets[id]
}

func (s *memStore) attachmentCount(ticketID string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, attachment := range s.attachments {
		if attachment.TicketID == ticketID {
			count++
		}
	}
	return count
}

func (s *memStore) historyByType(changeType domain.TicketChangeType) []domain.TicketHistory {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []domain.TicketHistory
	for _, entry := range s.history {
		if entry.ChangeType == changeType {
			result = append(result, entry)
		}
	}
	return result
}

// memTxManager serializes transaction bodies on the store lock.
type memTxManager struct {
	store *memStore
}

func (m *memTxManager) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	m.store.mu.Lock()
	defer m.store.mu.Unlock()
	return fn(ctx)
}

type memTicketRepo struct {
	store *memStore
}

func (r *memTicketRepo) Create(ctx context.Context, ticket *domain.Ticket) error {
	if ticket.ID == "" {
		ticket.ID = r.store.nextID("ticket")
	}
	now := time.Now()
	ticket.CreatedAt = now
	ticket.UpdatedAt = now
	copied := *ticket
	r.store.tickets[ticket.ID] = &copied
	return nil
}

func (r *memTicketRepo) GetByID(ctx context.Context, id string) (*domain.Ticket, error) {
	stored, ok := r.store.tickets[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *stored
	return &copied, nil
}

func (r *memTicketRepo) GetByCode(ctx context.Context, code string) (*domain.Ticket, error) {
	for _, stored := range r.store.tickets {
		if stored.Code == code {
			copied := *stored
			return &copied, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *memTicketRepo) GetForUpdate(ctx context.Context, id string) (*domain.Ticket, error) {
	return r.GetByID(ctx, id)
}

func (r *memTicketRepo) ClaimOwner(ctx context.Context, ticketID, agentID string) (bool, error) {
	stored, ok := r.store.tickets[ticketID]
	if !ok {
		return false, pgx.ErrNoRows
	}
	if stored.OwnerAgentID != nil {
		return false, nil
	}
	owner := agentID
	stored.OwnerAgentID = &owner
	stored.UpdatedAt = time.Now()
	return true, nil
}

func (r *memTicketRepo) ApplyLifecycle(ctx context.Context, ticketID string, update repository.LifecycleUpdate) error {
	stored, ok := r.store.tickets[ticketID]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.Status = update.Status
	stored.LastResponseAuthorKind = update.LastResponseAuthorKind
	if stored.FirstResponseAt == nil && update.FirstResponseAt != nil {
		ts := *update.FirstResponseAt
		stored.FirstResponseAt = &ts
	}
	stored.UpdatedAt = time.Now()
	return nil
}

func (r *memTicketRepo) SetStatus(ctx context.Context, ticketID string, status domain.TicketStatus, at time.Time) error {
	stored, ok := r.store.tickets[ticketID]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.Status = status
	switch status {
	case domain.TicketStatusResolved:
		ts := at
		stored.ResolvedAt = &ts
	case domain.TicketStatusClosed:
		ts := at
		stored.ClosedAt = &ts
	}
	stored.UpdatedAt = time.Now()
	return nil
}

func (r *memTicketRepo) CountActiveByCategory(ctx context.Context, categoryID string) (int, error) {
	count := 0
	for _, stored := range r.store.tickets {
		if stored.CategoryID != nil && *stored.CategoryID == categoryID && stored.Active() {
			count++
		}
	}
	return count, nil
}

func (r *memTicketRepo) ClearCategory(ctx context.Context, categoryID string) error {
	for _, stored := range r.store.tickets {
		if stored.CategoryID != nil && *stored.CategoryID == categoryID {
			stored.CategoryID = nil
		}
	}
	return nil
}

func (r *memTicketRepo) ListWithFilter(ctx context.Context, filter repository.TicketFilter) ([]domain.Ticket, error) {
	var result []domain.Ticket
	for _, stored := range r.store.tickets {
		if filter.CreatedBy != nil && stored.CreatedBy != *filter.CreatedBy {
			continue
		}
		if filter.CategoryID != nil && (stored.CategoryID == nil || *stored.CategoryID != *filter.CategoryID) {
			continue
		}
		result = append(result, *stored)
	}
	return result, nil
}

type memResponseRepo struct {
	store *memStore
}

func (r *memResponseRepo) Create(ctx context.Context, response *domain.Response) error {
	response.ID = r.store.nextID("response")
	response.CreatedAt = time.Now()
	copied := *response
	r.store.responses[response.ID] = &copied
	return nil
}

func (r *memResponseRepo) GetByID(ctx context.Context, id string) (*domain.Response, error) {
	stored, ok := r.store.responses[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *stored
	return &copied, nil
}

func (r *memResponseRepo) ListByTicket(ctx context.Context, ticketID string) ([]domain.Response, error) {
	var result []domain.Response
	for _, stored := range r.store.responses {
		if stored.TicketID == ticketID {
			result = append(result, *stored)
		}
	}
	return result, nil
}

type memAttachmentRepo struct {
	store *memStore
}

func (r *memAttachmentRepo) Create(ctx context.Context, attachment *domain.Attachment) error {
	attachment.ID = r.store.nextID("attachment")
	attachment.CreatedAt = time.Now()
	copied := *attachment
	r.store.attachments[attachment.ID] = &copied
	return nil
}

func (r *memAttachmentRepo) CountByTicket(ctx context.Context, ticketID string) (int, error) {
	count := 0
	for _, attachment := range r.store.attachments {
		if attachment.TicketID == ticketID {
			count++
		}
	}
	return count, nil
}

func (r *memAttachmentRepo) ListByTicket(ctx context.Context, ticketID string) ([]domain.Attachment, error) {
	var result []domain.Attachment
	for _, attachment := range r.store.attachments {
		if attachment.TicketID == ticketID {
			result = append(result, *attachment)
		}
	}
	return result, nil
}

type memCategoryRepo struct {
	store *memStore
}

func (r *memCategoryRepo) Create(ctx context.Context, category *domain.Category) error {
	category.ID = r.store.nextID("category")
	now := time.Now()
	category.CreatedAt = now
	category.UpdatedAt = now
	copied := *category
	r.store.categories[category.ID] = &copied
	return nil
}

func (r *memCategoryRepo) GetByID(ctx context.Context, id string) (*domain.Category, error) {
	stored, ok := r.store.categories[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	copied := *stored
	return &copied, nil
}

func (r *memCategoryRepo) List(ctx context.Context, limit, offset int) ([]domain.Category, error) {
	var result []domain.Category
	for _, stored := range r.store.categories {
		result = append(result, *stored)
	}
	return result, nil
}

func (r *memCategoryRepo) Delete(ctx context.Context, id string) error {
	if _, ok := r.store.categories[id]; !ok {
		return pgx.ErrNoRows
	}
	delete(r.store.categories, id)
	return nil
}

type memHistoryRepo struct {
	store *memStore
}

func (r *memHistoryRepo) Create(ctx context.Context, entry *domain.TicketHistory) error {
	entry.ID = r.store.nextID("history")
	entry.CreatedAt = time.Now()
	r.store.history = append(r.store.history, *entry)
	return nil
}

func (r *memHistoryRepo) ListByTicket(ctx context.Context, ticketID string, limit, offset int) ([]domain.TicketHistory, error) {
	var result []domain.TicketHistory
	for _, entry := range r.store.history {
		if entry.TicketID == ticketID {
			result = append(result, entry)
		}
	}
	return result, nil
}
