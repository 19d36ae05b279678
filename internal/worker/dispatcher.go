package worker

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/lifetag/lifetag-api/internal/email"
	"github.com/lifetag/lifetag-api/internal/model"
	"github.com/lifetag/lifetag-api/internal/repository"
	"github.com/lifetag/lifetag-api/pkg/logger"
	"github.com/lifetag/lifetag-api/pkg/messaging"
	"github.com/lifetag/lifetag-api/pkg/metrics"
)

// EmailDispatcher consumes committed verification events from the broker
// and sends the decision email. The admin action itself never waits on
// SMTP; a dispatch failure leaves emailSent false on the notification.
type EmailDispatcher struct {
	broker    messaging.Broker
	approvals repository.ApprovalRepository
	email     email.Service
	logger    *logger.Logger
	metrics   *metrics.Metrics
}

func NewEmailDispatcher(
	broker messaging.Broker,
	approvals repository.ApprovalRepository,
	emailSvc email.Service,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *EmailDispatcher {
	return &EmailDispatcher{
		broker:    broker,
		approvals: approvals,
		email:     emailSvc,
		logger:    logger,
		metrics:   metrics,
	}
}

// Run consumes events until ctx is cancelled.
func (d *EmailDispatcher) Run(ctx context.Context) error {
	messages, err := d.broker.Subscribe(ctx, messaging.ChannelVerificationEvents)
	if err != nil {
		return fmt.Errorf("failed to subscribe to verification events: %w", err)
	}

	d.logger.Info("email dispatcher started", "channel", messaging.ChannelVerificationEvents)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-messages:
			if !ok {
				return nil
			}
			d.handle(ctx, msg)
		}
	}
}

func (d *EmailDispatcher) handle(ctx context.Context, msg []byte) {
	var event model.VerificationEvent
	if err := json.Unmarshal(msg, &event); err != nil {
		d.logger.Error(err, "dropping malformed verification event")
		return
	}

	err := d.email.SendVerificationDecision(ctx,
		event.ProfessionalEmail, event.ProfessionalName, string(event.Action), event.Notes)
	if err != nil {
		d.metrics.EmailsFailed.Inc()
		d.logger.Error(err, "decision email failed",
			"notification_id", event.NotificationID,
			"professional_id", event.ProfessionalID,
			"action", string(event.Action))
		return
	}

	d.metrics.EmailsDispatched.Inc()

	if err := d.approvals.MarkNotificationEmailSent(ctx, event.NotificationID); err != nil {
		d.logger.Error(err, "failed to stamp emailSent",
			"notification_id", event.NotificationID)
	}
}
