package collab

import (
	"context"
	"log/slog"
	"slices"
	"sync"

	"github.com/roach88/bequest/internal/plan"
)

// LogDispatcher announces open claims on a structured logger.
type LogDispatcher struct {
	Logger *slog.Logger
}

func (d LogDispatcher) InitiateClaims(ctx context.Context, planID uint64, beneficiaries []plan.Beneficiary) (bool, error) {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	for _, b := range beneficiaries {
		logger.InfoContext(ctx, "claim opened",
			"plan_id", planID,
			"beneficiary", b.Beneficiary,
			"share", b.Share,
		)
	}
	return true, nil
}

// Notice is one dispatched claim notification.
type Notice struct {
	PlanID      uint64
	Beneficiary plan.Identity
	Share       uint64
}

// RecordingDispatcher keeps every notification in memory.
type RecordingDispatcher struct {
	mu      sync.Mutex
	notices []Notice
}

func (d *RecordingDispatcher) InitiateClaims(_ context.Context, planID uint64, beneficiaries []plan.Beneficiary) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	for _, b := range beneficiaries {
		d.notices = append(d.notices, Notice{PlanID: planID, Beneficiary: b.Beneficiary, Share: b.Share})
	}
	return true, nil
}

// Notices returns the notifications so far.
func (d *RecordingDispatcher) Notices() []Notice {
	d.mu.Lock()
	defer d.mu.Unlock()
	return slices.Clone(d.notices)
}
