package statustrack

import (
	"context"
	"time"

	"github.com/lifetag/lifetag-api/internal/model"
)

// ProfessionalGetter reads one professional document.
type ProfessionalGetter interface {
	Get(ctx context.Context, id string) (*model.Professional, error)
}

// UpdateLister reads a professional's status feed, newest-first.
type UpdateLister interface {
	ListByProfessional(ctx context.Context, professionalID string) ([]*model.VerificationStatusUpdate, error)
}

// Resolve builds a one-shot snapshot for userID without establishing
// subscriptions. Used by the plain (non-streaming) status endpoint.
func Resolve(ctx context.Context, professionals ProfessionalGetter, updates UpdateLister, userID string) (Snapshot, error) {
	p, err := professionals.Get(ctx, userID)
	if err != nil {
		return Snapshot{}, err
	}
	if p == nil {
		return Snapshot{
			Updates:  []*model.VerificationStatusUpdate{},
			Current:  statusDisplay[StatusNotRegistered],
			Timeline: []TimelineEntry{},
		}, nil
	}

	feed, err := updates.ListByProfessional(ctx, p.ID)
	if err != nil {
		return Snapshot{}, err
	}

	return Snapshot{
		Professional:     p,
		Updates:          feed,
		Current:          deriveStatus(p, feed),
		HasUnreadUpdates: hasUnread(feed, time.Now()),
		Timeline:         buildTimeline(p, feed),
	}, nil
}
