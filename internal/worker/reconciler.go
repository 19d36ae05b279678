package worker

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/lifetag/lifetag-api/internal/model"
	"github.com/lifetag/lifetag-api/internal/repository"
	"github.com/lifetag/lifetag-api/pkg/logger"
	"github.com/lifetag/lifetag-api/pkg/metrics"
)

// Reconciler periodically re-checks every professional's verified flag
// against the latest audit entry and repairs drift. The flag and the audit
// log are written in one transaction, so drift means manual edits or a
// partial restore; the audit log wins.
type Reconciler struct {
	professionals repository.ProfessionalRepository
	approvals     repository.ApprovalRepository
	logger        *logger.Logger
	metrics       *metrics.Metrics
	schedule      string
	cron          *cron.Cron
}

func NewReconciler(
	professionals repository.ProfessionalRepository,
	approvals repository.ApprovalRepository,
	logger *logger.Logger,
	metrics *metrics.Metrics,
	schedule string,
) *Reconciler {
	return &Reconciler{
		professionals: professionals,
		approvals:     approvals,
		logger:        logger,
		metrics:       metrics,
		schedule:      schedule,
	}
}

// Start registers the sweep on the cron schedule and runs one sweep
// immediately.
func (r *Reconciler) Start(ctx context.Context) error {
	r.cron = cron.New()
	if _, err := r.cron.AddFunc(r.schedule, func() {
		if err := r.Sweep(ctx); err != nil {
			r.logger.Error(err, "reconciliation sweep failed")
		}
	}); err != nil {
		return fmt.Errorf("failed to schedule reconciler: %w", err)
	}
	r.cron.Start()

	if err := r.Sweep(ctx); err != nil {
		r.logger.Error(err, "initial reconciliation sweep failed")
	}
	return nil
}

func (r *Reconciler) Stop() {
	if r.cron != nil {
		<-r.cron.Stop().Done()
	}
}

// Sweep walks every professional and repairs verified flags that
// contradict the latest audit entry.
func (r *Reconciler) Sweep(ctx context.Context) error {
	professionals, err := r.professionals.List(ctx, &model.ProfessionalFilter{})
	if err != nil {
		return fmt.Errorf("failed to list professionals: %w", err)
	}

	var repaired int
	for _, p := range professionals {
		latest, err := r.approvals.LatestHistory(ctx, p.ID)
		if err != nil {
			r.logger.Error(err, "latest history lookup failed", "professional_id", p.ID)
			continue
		}
		if latest == nil {
			// Never acted on; pending is correct whatever the flag says.
			continue
		}

		want := latest.Action == model.ActionApprove
		if p.VerificationStatus.IsVerified == want {
			continue
		}

		status := p.VerificationStatus
		status.IsVerified = want
		if err := r.professionals.UpdateVerification(ctx, p.ID, &status); err != nil {
			r.logger.Error(err, "repair failed", "professional_id", p.ID)
			continue
		}

		repaired++
		r.metrics.ReconcilerRepairs.Inc()
		r.logger.Warn("repaired verified flag",
			"professional_id", p.ID,
			"action", string(latest.Action),
			"is_verified", want)
	}

	if repaired > 0 {
		r.logger.Info("reconciliation sweep finished", "repaired", repaired)
	}
	return nil
}
