package events

import (
	"context"
	"log"
	"time"

	"ticketly/internal/shared/config"

	"github.com/go-co-op/gocron/v2"
)

const jobTimeout = 2 * time.Minute

// StartScheduler runs the event status sync and the nightly availability
// reconciliation. The caller owns Shutdown.
func StartScheduler(svc Service, cfg config.SchedulerConfig) (gocron.Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}

	_, err = s.NewJob(
		gocron.DurationJob(cfg.StatusSyncInterval),
		gocron.NewTask(runJob, "status-sync", svc.SyncStatuses),
		gocron.WithName("event-status-sync"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return nil, err
	}

	_, err = s.NewJob(
		gocron.DailyJob(
			1,
			gocron.NewAtTimes(
				gocron.NewAtTime(cfg.AvailabilitySyncAtHour, 0, 0),
			),
		),
		gocron.NewTask(runJob, "availability-reconcile", svc.ReconcileAvailability),
		gocron.WithName("availability-reconcile"),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return nil, err
	}

	s.Start()
	log.Printf("✅ Event scheduler started (status sync every %s, reconcile at %02d:00)",
		cfg.StatusSyncInterval, cfg.AvailabilitySyncAtHour)
	return s, nil
}

func runJob(name string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
	defer cancel()

	if err := fn(ctx); err != nil {
		log.Printf("[CRON] %s failed: %v", name, err)
	}
}
