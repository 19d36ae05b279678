package verification

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/lifetag/lifetag-api/internal/model"
	"github.com/lifetag/lifetag-api/internal/repository"
	apperrors "github.com/lifetag/lifetag-api/pkg/errors"
	"github.com/lifetag/lifetag-api/pkg/logger"
	"github.com/lifetag/lifetag-api/pkg/messaging"
	"github.com/lifetag/lifetag-api/pkg/metrics"
)

const recentWindow = 7 * 24 * time.Hour

// Fixed messages surfaced to callers on hard failures; the underlying store
// error stays in the log.
const (
	msgApproveFailed = "failed to approve medical professional"
	msgRejectFailed  = "failed to reject medical professional"
	msgRevokeFailed  = "failed to revoke medical professional verification"
	msgListFailed    = "failed to load medical professionals"
	msgStatsFailed   = "failed to load verification statistics"
)

type Servicer interface {
	GetPendingProfessionals(ctx context.Context) ([]*model.Professional, error)
	GetVerifiedProfessionals(ctx context.Context) ([]*model.Professional, error)
	GetAllProfessionals(ctx context.Context) ([]*model.Professional, error)
	GetProfessionalByID(ctx context.Context, id string) (*model.Professional, error)
	ApproveProfessional(ctx context.Context, id, adminID, adminName, notes string) error
	RejectProfessional(ctx context.Context, id, adminID, adminName, reason string) error
	RevokeProfessional(ctx context.Context, id, adminID, adminName, reason string) error
	GetApprovalHistory(ctx context.Context, professionalID string) ([]*model.ApprovalHistory, error)
	GetApprovalNotifications(ctx context.Context, limit int64, unreadOnly bool) ([]*model.ApprovalNotification, error)
	MarkNotificationAsRead(ctx context.Context, id string) error
	GetVerificationStats(ctx context.Context) (*model.VerificationStats, error)
}

type Service struct {
	professionals repository.ProfessionalRepository
	approvals     repository.ApprovalRepository
	statusUpdates repository.StatusUpdateRepository
	tx            repository.TxRunner
	broker        messaging.Broker
	logger        *logger.Logger
	metrics       *metrics.Metrics
}

func NewService(
	professionals repository.ProfessionalRepository,
	approvals repository.ApprovalRepository,
	statusUpdates repository.StatusUpdateRepository,
	tx repository.TxRunner,
	broker messaging.Broker,
	logger *logger.Logger,
	metrics *metrics.Metrics,
) *Service {
	return &Service{
		professionals: professionals,
		approvals:     approvals,
		statusUpdates: statusUpdates,
		tx:            tx,
		broker:        broker,
		logger:        logger,
		metrics:       metrics,
	}
}

func (s *Service) GetPendingProfessionals(ctx context.Context) ([]*model.Professional, error) {
	verified := false
	return s.list(ctx, &model.ProfessionalFilter{IsVerified: &verified})
}

func (s *Service) GetVerifiedProfessionals(ctx context.Context) ([]*model.Professional, error) {
	verified := true
	return s.list(ctx, &model.ProfessionalFilter{IsVerified: &verified})
}

func (s *Service) GetAllProfessionals(ctx context.Context) ([]*model.Professional, error) {
	return s.list(ctx, nil)
}

func (s *Service) list(ctx context.Context, filter *model.ProfessionalFilter) ([]*model.Professional, error) {
	professionals, err := s.professionals.List(ctx, filter)
	if err != nil {
		s.logger.Error(err, "professional list query failed")
		return nil, apperrors.Internal(msgListFailed, err)
	}
	return professionals, nil
}

func (s *Service) GetProfessionalByID(ctx context.Context, id string) (*model.Professional, error) {
	p, err := s.professionals.Get(ctx, id)
	if err != nil {
		s.logger.Error(err, "professional lookup failed", "professional_id", id)
		return nil, apperrors.Internal(msgListFailed, err)
	}
	if p == nil {
		return nil, apperrors.NotFound("medical professional", nil)
	}
	return p, nil
}

// ApproveProfessional grants the verified flag and records the decision. The
// profile stamp, history row, notification and status update commit in one
// store transaction; the notification email is dispatched asynchronously and
// never fails the action.
func (s *Service) ApproveProfessional(ctx context.Context, id, adminID, adminName, notes string) error {
	return s.transition(ctx, transition{
		professionalID: id,
		adminID:        adminID,
		adminName:      adminName,
		notes:          notes,
		action:         model.ActionApprove,
		newState:       model.StateApproved,
		failureMsg:     msgApproveFailed,
	})
}

// RejectProfessional clears the verified flag with a reason. Same write
// sequence as approval.
func (s *Service) RejectProfessional(ctx context.Context, id, adminID, adminName, reason string) error {
	return s.transition(ctx, transition{
		professionalID: id,
		adminID:        adminID,
		adminName:      adminName,
		notes:          reason,
		action:         model.ActionReject,
		newState:       model.StateRejected,
		failureMsg:     msgRejectFailed,
	})
}

// RevokeProfessional withdraws previously granted verification. It records a
// distinct revoke action rather than reusing reject.
func (s *Service) RevokeProfessional(ctx context.Context, id, adminID, adminName, reason string) error {
	return s.transition(ctx, transition{
		professionalID: id,
		adminID:        adminID,
		adminName:      adminName,
		notes:          reason,
		action:         model.ActionRevoke,
		newState:       model.StateRejected,
		failureMsg:     msgRevokeFailed,
	})
}

type transition struct {
	professionalID string
	adminID        string
	adminName      string
	notes          string
	action         model.ApprovalAction
	newState       model.VerificationState
	failureMsg     string
}

func (s *Service) transition(ctx context.Context, t transition) error {
	p, err := s.professionals.Get(ctx, t.professionalID)
	if err != nil {
		s.logger.Error(err, "professional lookup failed", "professional_id", t.professionalID)
		s.metrics.VerificationActions.WithLabelValues(string(t.action), "error").Inc()
		return apperrors.Internal(t.failureMsg, err)
	}
	if p == nil {
		s.metrics.VerificationActions.WithLabelValues(string(t.action), "not_found").Inc()
		return apperrors.NotFound("medical professional", nil)
	}

	now := time.Now().UTC()
	previous := p.VerificationStatus.IsVerified
	status := stampStatus(p.VerificationStatus, t, now)

	history := &model.ApprovalHistory{
		ID:             uuid.New().String(),
		ProfessionalID: p.ID,
		Action:         t.action,
		AdminID:        t.adminID,
		AdminName:      t.adminName,
		Notes:          t.notes,
		Timestamp:      now,
		PreviousStatus: previous,
		NewStatus:      status.IsVerified,
	}
	notification := &model.ApprovalNotification{
		ID:                uuid.New().String(),
		ProfessionalID:    p.ID,
		ProfessionalEmail: p.PersonalInfo.Email,
		ProfessionalName:  p.FullName(),
		Action:            t.action,
		AdminID:           t.adminID,
		AdminName:         t.adminName,
		Notes:             t.notes,
		Timestamp:         now,
	}
	update := &model.VerificationStatusUpdate{
		ID:             uuid.New().String(),
		ProfessionalID: p.ID,
		Status:         t.newState,
		Message:        statusMessage(t.action, t.adminName),
		Timestamp:      now,
		AdminName:      t.adminName,
		PreviousStatus: stateOf(previous),
		Notes:          t.notes,
	}

	err = s.tx.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.professionals.UpdateVerification(txCtx, p.ID, &status); err != nil {
			return err
		}
		if err := s.approvals.CreateHistory(txCtx, history); err != nil {
			return err
		}
		if err := s.approvals.CreateNotification(txCtx, notification); err != nil {
			return err
		}
		return s.statusUpdates.Create(txCtx, update)
	})
	if err != nil {
		s.logger.Error(err, "verification transition failed",
			"professional_id", p.ID, "action", string(t.action))
		s.metrics.VerificationActions.WithLabelValues(string(t.action), "error").Inc()
		return apperrors.Internal(t.failureMsg, err)
	}

	s.metrics.VerificationActions.WithLabelValues(string(t.action), "success").Inc()

	// Best-effort: email dispatch rides the broker and must never fail the
	// admin action.
	event := &model.VerificationEvent{
		NotificationID:    notification.ID,
		ProfessionalID:    p.ID,
		ProfessionalEmail: p.PersonalInfo.Email,
		ProfessionalName:  p.FullName(),
		Action:            t.action,
		AdminName:         t.adminName,
		Notes:             t.notes,
		Timestamp:         now,
	}
	if err := s.broker.Publish(ctx, messaging.ChannelVerificationEvents, event); err != nil {
		s.logger.Error(err, "failed to publish verification event",
			"professional_id", p.ID, "action", string(t.action))
		s.metrics.BrokerOperations.WithLabelValues("publish", "error").Inc()
	} else {
		s.metrics.BrokerOperations.WithLabelValues("publish", "success").Inc()
	}

	return nil
}

// stampStatus derives the next verificationStatus document from the action.
// Each action clears the opposing stamps so the record reflects only the
// most recent decision.
func stampStatus(current model.VerificationStatus, t transition, now time.Time) model.VerificationStatus {
	status := model.VerificationStatus{}
	switch t.action {
	case model.ActionApprove:
		status.IsVerified = true
		status.VerifiedAt = &now
		status.VerifiedBy = t.adminID
		status.VerificationNotes = t.notes
	case model.ActionReject:
		status.IsVerified = false
		status.RejectedAt = &now
		status.RejectedBy = t.adminID
		status.RejectionReason = t.notes
		status.VerificationNotes = t.notes
	case model.ActionRevoke:
		status.IsVerified = false
		status.RevokedAt = &now
		status.RevokedBy = t.adminID
		status.RevocationReason = t.notes
		status.VerificationNotes = t.notes
		// Keep the original grant stamps for the audit trail.
		status.VerifiedAt = current.VerifiedAt
		status.VerifiedBy = current.VerifiedBy
	}
	return status
}

func statusMessage(action model.ApprovalAction, adminName string) string {
	switch action {
	case model.ActionApprove:
		return "Your professional credentials were verified by " + adminName + "."
	case model.ActionReject:
		return "Your verification request was not approved."
	case model.ActionRevoke:
		return "Your verified status has been revoked."
	}
	return "Your verification status changed."
}

func stateOf(verified bool) model.VerificationState {
	if verified {
		return model.StateApproved
	}
	return model.StatePending
}

func (s *Service) GetApprovalHistory(ctx context.Context, professionalID string) ([]*model.ApprovalHistory, error) {
	entries, err := s.approvals.ListHistory(ctx, professionalID)
	if err != nil {
		s.logger.Error(err, "approval history query failed", "professional_id", professionalID)
		return nil, apperrors.Internal("failed to load approval history", err)
	}
	return entries, nil
}

func (s *Service) GetApprovalNotifications(ctx context.Context, limit int64, unreadOnly bool) ([]*model.ApprovalNotification, error) {
	notifications, err := s.approvals.ListNotifications(ctx, &model.NotificationFilter{
		Limit:      limit,
		UnreadOnly: unreadOnly,
	})
	if err != nil {
		s.logger.Error(err, "notification query failed")
		return nil, apperrors.Internal("failed to load notifications", err)
	}
	return notifications, nil
}

func (s *Service) MarkNotificationAsRead(ctx context.Context, id string) error {
	if err := s.approvals.MarkNotificationRead(ctx, id); err != nil {
		s.logger.Error(err, "failed to mark notification read", "notification_id", id)
		return apperrors.Internal("failed to mark notification as read", err)
	}
	return nil
}

// GetVerificationStats recomputes the dashboard counts on every call; there
// are no incremental counters.
func (s *Service) GetVerificationStats(ctx context.Context) (*model.VerificationStats, error) {
	verified := true
	pending := false

	pendingCount, err := s.professionals.Count(ctx, &model.ProfessionalFilter{IsVerified: &pending})
	if err != nil {
		return nil, s.statsErr(err)
	}
	verifiedCount, err := s.professionals.Count(ctx, &model.ProfessionalFilter{IsVerified: &verified})
	if err != nil {
		return nil, s.statsErr(err)
	}
	total, err := s.professionals.Count(ctx, nil)
	if err != nil {
		return nil, s.statsErr(err)
	}

	since := time.Now().UTC().Add(-recentWindow)
	approvals, err := s.approvals.CountHistorySince(ctx, model.ActionApprove, since)
	if err != nil {
		return nil, s.statsErr(err)
	}
	rejections, err := s.approvals.CountHistorySince(ctx, model.ActionReject, since)
	if err != nil {
		return nil, s.statsErr(err)
	}

	return &model.VerificationStats{
		Pending:          pendingCount,
		Verified:         verifiedCount,
		Total:            total,
		RecentApprovals:  approvals,
		RecentRejections: rejections,
	}, nil
}

func (s *Service) statsErr(err error) error {
	s.logger.Error(err, "verification stats query failed")
	return apperrors.Internal(msgStatsFailed, err)
}
