package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/bem-health/admin-api/internal/events"
	"github.com/bem-health/admin-api/internal/observability"
)

// AuditService writes auditable events to the log and login outcomes to
// metrics.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger, metrics *observability.Metrics) *AuditService {
	return &AuditService{
		dispatcher: dispatcher,
		logger:     logger.Named("audit"),
		metrics:    metrics,
	}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventLoginSucceeded, a.handleLogin("success"))
	a.dispatcher.Subscribe(events.EventLoginFailed, a.handleLogin("failure"))
	a.dispatcher.Subscribe(events.EventLoginThrottled, a.handleLogin("throttled"))
	for _, t := range []events.EventType{
		events.EventPasswordChanged,
		events.EventAdminUserCreated,
		events.EventAdminUserUpdated,
		events.EventAdminUserDisabled,
		events.EventAdminPasswordReset,
		events.EventResourceCreated,
		events.EventResourceUpdated,
		events.EventResourceDeleted,
	} {
		a.dispatcher.Subscribe(t, a.handleChange)
	}
}

func (a *AuditService) handleLogin(outcome string) events.EventHandler {
	return func(_ context.Context, event events.Event) error {
		a.metrics.RecordLogin(outcome)
		fields := eventFields(event)
		if outcome == "success" {
			a.logger.Info(string(event.Type), fields...)
		} else {
			a.logger.Warn(string(event.Type), fields...)
		}
		return nil
	}
}

func (a *AuditService) handleChange(_ context.Context, event events.Event) error {
	a.logger.Info(string(event.Type), eventFields(event)...)
	return nil
}

func eventFields(event events.Event) []zap.Field {
	fields := []zap.Field{
		zap.String("event_id", event.ID),
		zap.Time("at", event.Timestamp),
	}
	if event.Actor != nil {
		fields = append(fields,
			zap.String("actor_id", event.Actor.SubjectID),
			zap.String("actor_username", event.Actor.Username),
			zap.String("actor_role", string(event.Actor.Role)))
	}
	if event.Target != "" {
		fields = append(fields, zap.String("target", event.Target))
	}
	if event.Payload != nil {
		fields = append(fields, zap.Any("payload", event.Payload))
	}
	return fields
}
