package worker_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/m-mizutani/gt"
	"github.com/vigilancia-bie/malarisk/pkg/domain/model"
	"github.com/vigilancia-bie/malarisk/pkg/domain/types"
	"github.com/vigilancia-bie/malarisk/pkg/worker"
)

type stubAlert struct {
	checks atomic.Int32
}

func (s *stubAlert) RunCheck(ctx context.Context) (*model.AlertReport, error) {
	s.checks.Add(1)
	return model.ComposeAlertReport(types.EpiWeek{Year: 2024, Week: 31}, nil, time.Now()), nil
}

func (s *stubAlert) ListAlerts(ctx context.Context, limit int) ([]*model.Alert, error) {
	return nil, nil
}

func TestSchedulerRunsImmediateCheck(t *testing.T) {
	stub := &stubAlert{}
	sched := worker.NewScheduler(stub, nil)

	ctx := context.Background()
	gt.NoError(t, sched.Start(ctx))
	t.Cleanup(func() { _ = sched.Stop(context.Background()) })

	// The startup check is dispatched asynchronously
	deadline := time.Now().Add(2 * time.Second)
	for stub.checks.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	gt.True(t, stub.checks.Load() >= 1)
}

func TestSchedulerRejectsInvalidSchedule(t *testing.T) {
	sched := worker.NewScheduler(&stubAlert{}, []string{"not a cron spec"})
	gt.Error(t, sched.Start(context.Background()))
}

func TestSchedulerStop(t *testing.T) {
	sched := worker.NewScheduler(&stubAlert{}, []string{"0 18 * * *"})
	gt.NoError(t, sched.Start(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	gt.NoError(t, sched.Stop(ctx))
}
