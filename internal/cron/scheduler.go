// Package cron runs the nightly maintenance jobs.
package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/starosta-app/starosta-back/internal/db"
	"github.com/starosta-app/starosta-back/internal/models"
)

// Maintenance deactivates finished events and expires stale invites.
type Maintenance struct {
	Store     *db.Store
	Log       *zap.Logger
	Location  *time.Location
	InviteTTL time.Duration

	now func() time.Time
}

func NewMaintenance(store *db.Store, loc *time.Location, inviteTTL time.Duration, log *zap.Logger) *Maintenance {
	if loc == nil {
		loc = time.UTC
	}
	return &Maintenance{Store: store, Log: log, Location: loc, InviteTTL: inviteTTL, now: time.Now}
}

// Run performs one maintenance pass.
func (m *Maintenance) Run(ctx context.Context) error {
	now := m.now()
	today := models.DateOnly(now.In(m.Location))

	events, err := m.Store.DeactivateFinishedEvents(ctx, today)
	if err != nil {
		return fmt.Errorf("deactivate events: %w", err)
	}

	var invites int64
	if m.InviteTTL > 0 {
		invites, err = m.Store.ExpireStaleInvites(ctx, now.Add(-m.InviteTTL))
		if err != nil {
			return fmt.Errorf("expire invites: %w", err)
		}
	}

	m.Log.Info("maintenance finished",
		zap.Int64("events_deactivated", events),
		zap.Int64("invites_expired", invites),
	)
	return nil
}

// Start schedules Run on spec and starts the scheduler. Stop the returned
// cron to wait for a running job.
func Start(spec string, m *Maintenance) (*cron.Cron, error) {
	c := cron.New(cron.WithLocation(m.Location))

	_, err := c.AddFunc(spec, func() {
		m.Log.Info("running maintenance job")
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if err := m.Run(ctx); err != nil {
			m.Log.Error("maintenance job failed", zap.Error(err))
		}
	})
	if err != nil {
		return nil, fmt.Errorf("schedule %q: %w", spec, err)
	}

	c.Start()
	return c, nil
}
