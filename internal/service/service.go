package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/elingeyesdev/tickets-incidentes-sub013/internal/domain"
	"github.com/elingeyesdev/tickets-incidentes-sub013/internal/events"
	"github.com/elingeyesdev/tickets-incidentes-sub013/internal/repository"
	"github.com/elingeyesdev/tickets-incidentes-sub013/pkg/apperrors"
)

const defaultTxAttempts = 3

// runInTxWithRetry executes fn inside a transaction, retrying transient
// serialization aborts a bounded number of times. fn must be safe to re-run
// from scratch; the lifecycle rules are written so a retry after another
// writer committed simply observes the new state.
func runInTxWithRetry(ctx context.Context, txm repository.TxManager, attempts int, fn func(ctx context.Context) error) error {
	if attempts <= 0 {
		attempts = defaultTxAttempts
	}
	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(attempt) * 10 * time.Millisecond):
			}
		}
		err = txm.RunInTx(ctx, fn)
		if err == nil || !repository.IsTransientTxError(err) {
			return err
		}
	}
	return apperrors.NewRetryExhausted(err)
}

func publish(ctx context.Context, dispatcher events.Dispatcher, event events.Event) {
	if dispatcher == nil {
		return
	}
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	_ = dispatcher.Publish(ctx, event)
}

func actorOf(kind domain.AuthorKind, id string) events.Actor {
	return events.Actor{Kind: kind, UserID: id}
}

func generateTicketCode() string {
	return "TCK-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
}

func stringPreview(body string, max int) string {
	body = strings.TrimSpace(body)
	if len(body) <= max {
		return body
	}
	if max <= 3 {
		return body[:max]
	}
	return body[:max-3] + "..."
}
