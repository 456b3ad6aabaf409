package worker

import (
	"context"

	"github.com/m-mizutani/ctxlog"
	"github.com/m-mizutani/goerr/v2"
	"github.com/robfig/cron/v3"
	"github.com/vigilancia-bie/malarisk/pkg/usecase"
	"github.com/vigilancia-bie/malarisk/pkg/utils/apperr"
	"github.com/vigilancia-bie/malarisk/pkg/utils/async"
)

// Default schedules: every day at 18:00 plus a Sunday morning weekly run
var DefaultSchedules = []string{"0 18 * * *", "0 8 * * 0"}

// Scheduler runs alert checks on cron schedules
type Scheduler struct {
	alertUC   usecase.AlertUseCase
	schedules []string
	cron      *cron.Cron
}

// NewScheduler creates a Scheduler. Empty schedules fall back to
// DefaultSchedules.
func NewScheduler(alertUC usecase.AlertUseCase, schedules []string) *Scheduler {
	if len(schedules) == 0 {
		schedules = DefaultSchedules
	}
	return &Scheduler{
		alertUC:   alertUC,
		schedules: schedules,
		cron:      cron.New(),
	}
}

// Start registers the schedules and begins running. An immediate check is
// dispatched on start so a restart never skips a day.
func (s *Scheduler) Start(ctx context.Context) error {
	logger := ctxlog.From(ctx)

	for _, spec := range s.schedules {
		spec := spec
		if _, err := s.cron.AddFunc(spec, func() {
			s.runCheck(ctx, spec)
		}); err != nil {
			return goerr.Wrap(err, "invalid alert schedule", goerr.V("schedule", spec))
		}
		logger.Info("Alert check scheduled", "schedule", spec)
	}

	s.cron.Start()

	async.Dispatch(ctx, func(ctx context.Context) error {
		s.runCheck(ctx, "startup")
		return nil
	})
	return nil
}

func (s *Scheduler) runCheck(ctx context.Context, trigger string) {
	logger := ctxlog.From(ctx)

	report, err := s.alertUC.RunCheck(ctx)
	if err != nil {
		apperr.Handle(ctx, goerr.Wrap(err, "scheduled alert check failed", goerr.V("trigger", trigger)))
		return
	}
	logger.Info("Scheduled alert check finished",
		"trigger", trigger,
		"week", report.Week,
		"level", report.Level,
	)
}

// Stop stops the scheduler and waits for running jobs, honoring the
// context deadline.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop().Done()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return goerr.Wrap(ctx.Err(), "timed out waiting for alert jobs to finish")
	}
}
