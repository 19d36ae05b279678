package verification

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lifetag/lifetag-api/internal/model"
	apperrors "github.com/lifetag/lifetag-api/pkg/errors"
	"github.com/lifetag/lifetag-api/pkg/logger"
	"github.com/lifetag/lifetag-api/pkg/metrics"
)

type fakeProfessionalRepo struct {
	professionals map[string]*model.Professional
	getErr        error
	updateErr     error
	countErr      error
}

func newFakeProfessionalRepo(ps ...*model.Professional) *fakeProfessionalRepo {
	repo := &fakeProfessionalRepo{professionals: map[string]*model.Professional{}}
	for _, p := range ps {
		repo.professionals[p.ID] = p
	}
	return repo
}

func (r *fakeProfessionalRepo) Create(ctx context.Context, p *model.Professional) error {
	r.professionals[p.ID] = p
	return nil
}

func (r *fakeProfessionalRepo) Get(ctx context.Context, id string) (*model.Professional, error) {
	if r.getErr != nil {
		return nil, r.getErr
	}
	p, ok := r.professionals[id]
	if !ok {
		return nil, nil
	}
	copied := *p
	return &copied, nil
}

func (r *fakeProfessionalRepo) List(ctx context.Context, filter *model.ProfessionalFilter) ([]*model.Professional, error) {
	var out []*model.Professional
	for _, p := range r.professionals {
		if filter != nil && filter.IsVerified != nil && p.VerificationStatus.IsVerified != *filter.IsVerified {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *fakeProfessionalRepo) Count(ctx context.Context, filter *model.ProfessionalFilter) (int64, error) {
	if r.countErr != nil {
		return 0, r.countErr
	}
	list, _ := r.List(ctx, filter)
	return int64(len(list)), nil
}

func (r *fakeProfessionalRepo) UpdateVerification(ctx context.Context, id string, status *model.VerificationStatus) error {
	if r.updateErr != nil {
		return r.updateErr
	}
	p, ok := r.professionals[id]
	if !ok {
		return errors.New("missing professional")
	}
	p.VerificationStatus = *status
	return nil
}

func (r *fakeProfessionalRepo) Watch(ctx context.Context, id string) (<-chan *model.Professional, <-chan error) {
	snapshots := make(chan *model.Professional)
	errs := make(chan error)
	close(snapshots)
	close(errs)
	return snapshots, errs
}

type fakeApprovalRepo struct {
	histories     []*model.ApprovalHistory
	notifications []*model.ApprovalNotification
	historyErr    error
}

func (r *fakeApprovalRepo) CreateHistory(ctx context.Context, entry *model.ApprovalHistory) error {
	if r.historyErr != nil {
		return r.historyErr
	}
	r.histories = append(r.histories, entry)
	return nil
}

func (r *fakeApprovalRepo) ListHistory(ctx context.Context, professionalID string) ([]*model.ApprovalHistory, error) {
	var out []*model.ApprovalHistory
	for _, h := range r.histories {
		if h.ProfessionalID == professionalID {
			out = append(out, h)
		}
	}
	return out, nil
}

func (r *fakeApprovalRepo) LatestHistory(ctx context.Context, professionalID string) (*model.ApprovalHistory, error) {
	entries, _ := r.ListHistory(ctx, professionalID)
	if len(entries) == 0 {
		return nil, nil
	}
	return entries[len(entries)-1], nil
}

func (r *fakeApprovalRepo) CountHistorySince(ctx context.Context, action model.ApprovalAction, since time.Time) (int64, error) {
	var n int64
	for _, h := range r.histories {
		if h.Action == action && h.Timestamp.After(since) {
			n++
		}
	}
	return n, nil
}

func (r *fakeApprovalRepo) CreateNotification(ctx context.Context, n *model.ApprovalNotification) error {
	r.notifications = append(r.notifications, n)
	return nil
}

func (r *fakeApprovalRepo) ListNotifications(ctx context.Context, filter *model.NotificationFilter) ([]*model.ApprovalNotification, error) {
	var out []*model.ApprovalNotification
	for _, n := range r.notifications {
		if filter != nil && filter.UnreadOnly && n.Read {
			continue
		}
		out = append(out, n)
	}
	return out, nil
}

func (r *fakeApprovalRepo) MarkNotificationRead(ctx context.Context, id string) error {
	for _, n := range r.notifications {
		if n.ID == id {
			n.Read = true
			return nil
		}
	}
	return errors.New("missing notification")
}

func (r *fakeApprovalRepo) MarkNotificationEmailSent(ctx context.Context, id string) error {
	for _, n := range r.notifications {
		if n.ID == id {
			n.EmailSent = true
			return nil
		}
	}
	return errors.New("missing notification")
}

type fakeStatusUpdateRepo struct {
	updates []*model.VerificationStatusUpdate
}

func (r *fakeStatusUpdateRepo) Create(ctx context.Context, update *model.VerificationStatusUpdate) error {
	r.updates = append(r.updates, update)
	return nil
}

func (r *fakeStatusUpdateRepo) ListByProfessional(ctx context.Context, professionalID string) ([]*model.VerificationStatusUpdate, error) {
	var out []*model.VerificationStatusUpdate
	for _, u := range r.updates {
		if u.ProfessionalID == professionalID {
			out = append(out, u)
		}
	}
	return out, nil
}

func (r *fakeStatusUpdateRepo) Watch(ctx context.Context, professionalID string) (<-chan []*model.VerificationStatusUpdate, <-chan error) {
	snapshots := make(chan []*model.VerificationStatusUpdate)
	errs := make(chan error)
	close(snapshots)
	close(errs)
	return snapshots, errs
}

type passTx struct{}

func (passTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

type fakeBroker struct {
	published  []interface{}
	publishErr error
}

func (b *fakeBroker) Publish(ctx context.Context, channel string, message interface{}) error {
	if b.publishErr != nil {
		return b.publishErr
	}
	b.published = append(b.published, message)
	return nil
}

func (b *fakeBroker) Subscribe(ctx context.Context, channel string) (<-chan []byte, error) {
	ch := make(chan []byte)
	close(ch)
	return ch, nil
}

func (b *fakeBroker) Close() error { return nil }

func testLogger() *logger.Logger {
	return logger.NewLogger(&logger.Config{Level: logger.ErrorLevel, Output: io.Discard})
}

func testMetrics() *metrics.Metrics {
	return metrics.NewMetricsWith(prometheus.NewRegistry(), "lifetag", "test")
}

func pendingProfessional(id string) *model.Professional {
	return &model.Professional{
		ID:       id,
		UserID:   id,
		UserType: model.UserTypeMedicalProfessional,
		PersonalInfo: model.PersonalInfo{
			FirstName: "Dana",
			LastName:  "Reyes",
			Email:     "dana.reyes@example.com",
		},
		ProfessionalInfo: model.ProfessionalInfo{LicenseNumber: "MD12345"},
		CreatedAt:        time.Now().Add(-48 * time.Hour),
	}
}

type fixture struct {
	svc           *Service
	professionals *fakeProfessionalRepo
	approvals     *fakeApprovalRepo
	updates       *fakeStatusUpdateRepo
	broker        *fakeBroker
}

func newFixture(ps ...*model.Professional) *fixture {
	f := &fixture{
		professionals: newFakeProfessionalRepo(ps...),
		approvals:     &fakeApprovalRepo{},
		updates:       &fakeStatusUpdateRepo{},
		broker:        &fakeBroker{},
	}
	f.svc = NewService(f.professionals, f.approvals, f.updates, passTx{}, f.broker, testLogger(), testMetrics())
	return f
}

func TestApproveProfessional(t *testing.T) {
	f := newFixture(pendingProfessional("p1"))

	err := f.svc.ApproveProfessional(context.Background(), "p1", "adminA", "Alice Admin", "verified license")
	require.NoError(t, err)

	p := f.professionals.professionals["p1"]
	assert.True(t, p.VerificationStatus.IsVerified)
	assert.Equal(t, "adminA", p.VerificationStatus.VerifiedBy)
	assert.NotNil(t, p.VerificationStatus.VerifiedAt)
	assert.Equal(t, "verified license", p.VerificationStatus.VerificationNotes)

	require.Len(t, f.approvals.histories, 1)
	h := f.approvals.histories[0]
	assert.Equal(t, model.ActionApprove, h.Action)
	assert.Equal(t, "Alice Admin", h.AdminName)
	assert.False(t, h.PreviousStatus)
	assert.True(t, h.NewStatus)

	require.Len(t, f.approvals.notifications, 1)
	n := f.approvals.notifications[0]
	assert.Equal(t, "dana.reyes@example.com", n.ProfessionalEmail)
	assert.Equal(t, "Dana Reyes", n.ProfessionalName)
	assert.False(t, n.EmailSent)
	assert.False(t, n.Read)

	require.Len(t, f.updates.updates, 1)
	assert.Equal(t, model.StateApproved, f.updates.updates[0].Status)
	assert.Equal(t, model.StatePending, f.updates.updates[0].PreviousStatus)

	require.Len(t, f.broker.published, 1)
	event := f.broker.published[0].(*model.VerificationEvent)
	assert.Equal(t, n.ID, event.NotificationID)
	assert.Equal(t, model.ActionApprove, event.Action)
}

func TestApproveTwiceRecordsBothActions(t *testing.T) {
	f := newFixture(pendingProfessional("p1"))
	ctx := context.Background()

	require.NoError(t, f.svc.ApproveProfessional(ctx, "p1", "adminA", "Alice Admin", ""))
	require.NoError(t, f.svc.ApproveProfessional(ctx, "p1", "adminB", "Bob Admin", ""))

	assert.True(t, f.professionals.professionals["p1"].VerificationStatus.IsVerified)
	require.Len(t, f.approvals.histories, 2)
	assert.True(t, f.approvals.histories[1].PreviousStatus)
	assert.True(t, f.approvals.histories[1].NewStatus)
}

func TestRejectProfessional(t *testing.T) {
	f := newFixture(pendingProfessional("p1"))

	err := f.svc.RejectProfessional(context.Background(), "p1", "adminA", "Alice Admin", "license expired")
	require.NoError(t, err)

	p := f.professionals.professionals["p1"]
	assert.False(t, p.VerificationStatus.IsVerified)
	assert.Equal(t, "adminA", p.VerificationStatus.RejectedBy)
	assert.Equal(t, "license expired", p.VerificationStatus.RejectionReason)

	require.Len(t, f.approvals.histories, 1)
	assert.Equal(t, model.ActionReject, f.approvals.histories[0].Action)
	assert.Equal(t, "license expired", f.approvals.histories[0].Notes)

	require.Len(t, f.updates.updates, 1)
	assert.Equal(t, model.StateRejected, f.updates.updates[0].Status)
}

func TestRevokeIsDistinctFromReject(t *testing.T) {
	f := newFixture(pendingProfessional("p1"))
	ctx := context.Background()

	require.NoError(t, f.svc.ApproveProfessional(ctx, "p1", "adminA", "Alice Admin", "ok"))
	require.NoError(t, f.svc.RevokeProfessional(ctx, "p1", "adminB", "Bob Admin", "board complaint"))

	p := f.professionals.professionals["p1"]
	assert.False(t, p.VerificationStatus.IsVerified)
	assert.Equal(t, "adminB", p.VerificationStatus.RevokedBy)
	assert.Equal(t, "board complaint", p.VerificationStatus.RevocationReason)
	// The original grant stamps survive revocation.
	assert.NotNil(t, p.VerificationStatus.VerifiedAt)
	assert.Equal(t, "adminA", p.VerificationStatus.VerifiedBy)

	require.Len(t, f.approvals.histories, 2)
	assert.Equal(t, model.ActionRevoke, f.approvals.histories[1].Action)
	assert.True(t, f.approvals.histories[1].PreviousStatus)
	assert.False(t, f.approvals.histories[1].NewStatus)
}

func TestTransitionUnknownProfessional(t *testing.T) {
	f := newFixture()

	err := f.svc.ApproveProfessional(context.Background(), "ghost", "adminA", "Alice Admin", "")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrNotFound, apperrors.CodeOf(err))
	assert.Empty(t, f.approvals.histories)
	assert.Empty(t, f.updates.updates)
}

func TestTransitionSurfacesFixedMessageOnWriteFailure(t *testing.T) {
	f := newFixture(pendingProfessional("p1"))
	f.approvals.historyErr = errors.New("socket closed")

	err := f.svc.ApproveProfessional(context.Background(), "p1", "adminA", "Alice Admin", "")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrInternal, apperrors.CodeOf(err))
	assert.Equal(t, msgApproveFailed, apperrors.MessageOf(err))
	assert.Empty(t, f.broker.published)
}

func TestBrokerFailureDoesNotFailAction(t *testing.T) {
	f := newFixture(pendingProfessional("p1"))
	f.broker.publishErr = errors.New("redis down")

	err := f.svc.ApproveProfessional(context.Background(), "p1", "adminA", "Alice Admin", "")
	require.NoError(t, err)
	assert.True(t, f.professionals.professionals["p1"].VerificationStatus.IsVerified)
	require.Len(t, f.approvals.histories, 1)
}

func TestListFiltersPartitionProfessionals(t *testing.T) {
	verified := pendingProfessional("p2")
	verified.VerificationStatus.IsVerified = true
	f := newFixture(pendingProfessional("p1"), verified, pendingProfessional("p3"))
	ctx := context.Background()

	pending, err := f.svc.GetPendingProfessionals(ctx)
	require.NoError(t, err)
	verifiedList, err := f.svc.GetVerifiedProfessionals(ctx)
	require.NoError(t, err)
	all, err := f.svc.GetAllProfessionals(ctx)
	require.NoError(t, err)

	assert.Len(t, pending, 2)
	assert.Len(t, verifiedList, 1)
	assert.Len(t, all, 3)
	assert.Equal(t, len(all), len(pending)+len(verifiedList))
}

func TestGetVerificationStats(t *testing.T) {
	verified := pendingProfessional("p2")
	verified.VerificationStatus.IsVerified = true
	f := newFixture(pendingProfessional("p1"), verified)
	ctx := context.Background()

	require.NoError(t, f.svc.ApproveProfessional(ctx, "p1", "adminA", "Alice Admin", ""))
	require.NoError(t, f.svc.RejectProfessional(ctx, "p1", "adminA", "Alice Admin", "bad license"))

	stats, err := f.svc.GetVerificationStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.Pending)
	assert.Equal(t, int64(1), stats.Verified)
	assert.Equal(t, int64(2), stats.Total)
	assert.Equal(t, int64(1), stats.RecentApprovals)
	assert.Equal(t, int64(1), stats.RecentRejections)
}

func TestStatsFailureSurfacesFixedMessage(t *testing.T) {
	f := newFixture()
	f.professionals.countErr = errors.New("no primary")

	_, err := f.svc.GetVerificationStats(context.Background())
	require.Error(t, err)
	assert.Equal(t, msgStatsFailed, apperrors.MessageOf(err))
}

func TestMarkNotificationAsRead(t *testing.T) {
	f := newFixture(pendingProfessional("p1"))
	ctx := context.Background()

	require.NoError(t, f.svc.ApproveProfessional(ctx, "p1", "adminA", "Alice Admin", ""))
	id := f.approvals.notifications[0].ID

	unread, err := f.svc.GetApprovalNotifications(ctx, 10, true)
	require.NoError(t, err)
	require.Len(t, unread, 1)

	require.NoError(t, f.svc.MarkNotificationAsRead(ctx, id))

	unread, err = f.svc.GetApprovalNotifications(ctx, 10, true)
	require.NoError(t, err)
	assert.Empty(t, unread)
}
