package service

import (
	"context"
	"encoding/json"
	"strings"

	"go.uber.org/zap"

	"github.com/elingeyesdev/tickets-incidentes-sub013/internal/config"
	"github.com/elingeyesdev/tickets-incidentes-sub013/internal/events"
	"github.com/elingeyesdev/tickets-incidentes-sub013/internal/persistence"
)

// NotificationService handles emitting notifications for domain events.
// Delivery is a log line plus, when a channel is configured, a fan-out on
// Redis pub/sub for downstream consumers (mailers, webhooks).
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	redis      *persistence.Redis
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, redis *persistence.Redis, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		redis:      redis,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventTicketCreated, n.handle)
	n.dispatcher.Subscribe(events.EventResponseRecorded, n.handle)
	n.dispatcher.Subscribe(events.EventTicketOwnerAssigned, n.handle)
	n.dispatcher.Subscribe(events.EventTicketStatusChanged, n.handle)
	n.dispatcher.Subscribe(events.EventAttachmentAdded, n.handle)
	n.dispatcher.Subscribe(events.EventCategoryDeleted, n.handle)
}

func (n *NotificationService) handle(ctx context.Context, event events.Event) error {
	n.logger.Info("notification",
		zap.String("event_type", string(event.Type)),
		zap.String("ticket_id", event.TicketID),
		zap.Any("payload", event.Payload))
	n.fanOut(ctx, event)
	return nil
}

func (n *NotificationService) fanOut(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.RedisChannel) == "" || n.redis == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		n.logger.Warn("marshal notification event", zap.Error(err))
		return
	}
	if err := n.redis.Publish(ctx, n.cfg.RedisChannel, payload); err != nil {
		n.logger.Warn("publish notification event",
			zap.String("channel", n.cfg.RedisChannel),
			zap.Error(err))
	}
}
