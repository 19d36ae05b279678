package statustrack

import (
	"sort"
	"time"

	"github.com/lifetag/lifetag-api/internal/model"
)

// Display statuses derived for the professional's own view.
const (
	StatusVerified      = "verified"
	StatusUnderReview   = "under_review"
	StatusRejected      = "rejected"
	StatusPending       = "pending"
	StatusNotRegistered = "not_registered"
)

const unreadWindow = 24 * time.Hour

// CurrentStatus is the display-ready verification state.
type CurrentStatus struct {
	Status string `json:"status"`
	Label  string `json:"label"`
	Color  string `json:"color"`
	Icon   string `json:"icon"`
}

var statusDisplay = map[string]CurrentStatus{
	StatusVerified:      {StatusVerified, "Verified", "#4CAF50", "checkmark-circle"},
	StatusUnderReview:   {StatusUnderReview, "Under Review", "#FF9800", "time"},
	StatusRejected:      {StatusRejected, "Not Approved", "#F44336", "close-circle"},
	StatusPending:       {StatusPending, "Pending Review", "#FFC107", "hourglass"},
	StatusNotRegistered: {StatusNotRegistered, "Not Registered", "#9E9E9E", "person-outline"},
}

// deriveStatus computes the current status: the verified flag wins, then the
// most recent status update, then pending.
func deriveStatus(p *model.Professional, updates []*model.VerificationStatusUpdate) CurrentStatus {
	switch {
	case p == nil:
		return statusDisplay[StatusNotRegistered]
	case p.VerificationStatus.IsVerified:
		return statusDisplay[StatusVerified]
	case len(updates) > 0:
		switch updates[0].Status {
		case model.StateApproved:
			return statusDisplay[StatusVerified]
		case model.StateRejected:
			return statusDisplay[StatusRejected]
		case model.StateUnderReview:
			return statusDisplay[StatusUnderReview]
		}
		return statusDisplay[StatusPending]
	default:
		return statusDisplay[StatusPending]
	}
}

// hasUnread reports whether any update is strictly younger than 24 hours.
// An update exactly 24 hours old does not count.
func hasUnread(updates []*model.VerificationStatusUpdate, now time.Time) bool {
	for _, u := range updates {
		age := now.Sub(u.Timestamp)
		if age >= 0 && age < unreadWindow {
			return true
		}
	}
	return false
}

// TimelineEntry is one row of the combined status timeline.
type TimelineEntry struct {
	Type      string                  `json:"type"`
	Title     string                  `json:"title"`
	Message   string                  `json:"message,omitempty"`
	Status    model.VerificationState `json:"status,omitempty"`
	AdminName string                  `json:"admin_name,omitempty"`
	Timestamp time.Time               `json:"timestamp"`
}

// buildTimeline merges the registration event with every status update,
// newest-first.
func buildTimeline(p *model.Professional, updates []*model.VerificationStatusUpdate) []TimelineEntry {
	if p == nil {
		return nil
	}

	timeline := make([]TimelineEntry, 0, len(updates)+1)
	timeline = append(timeline, TimelineEntry{
		Type:      "registration",
		Title:     "Registration submitted",
		Timestamp: p.CreatedAt,
	})
	for _, u := range updates {
		timeline = append(timeline, TimelineEntry{
			Type:      "status_update",
			Title:     string(u.Status),
			Message:   u.Message,
			Status:    u.Status,
			AdminName: u.AdminName,
			Timestamp: u.Timestamp,
		})
	}

	sort.SliceStable(timeline, func(i, j int) bool {
		return timeline[i].Timestamp.After(timeline[j].Timestamp)
	})
	return timeline
}
