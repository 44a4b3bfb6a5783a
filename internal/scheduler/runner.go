package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const (
	ModeOnce = "once"
	ModeLoop = "loop"
	ModeCron = "cron"
)

// RunFunc performs one pipeline run.
type RunFunc func(ctx context.Context) error

// Runner decides when runs happen. Runs are independent; in cron mode a
// slow run may overlap the next one.
type Runner struct {
	Mode         string
	Cron         string
	LoopInterval time.Duration
	Run          RunFunc
	Logger       *zap.Logger
}

// Start blocks until the mode is finished: after one run for "once",
// or until ctx is cancelled for "loop" and "cron".
func (r *Runner) Start(ctx context.Context) error {
	switch r.Mode {
	case ModeOnce, "":
		return r.Run(ctx)
	case ModeLoop:
		return r.loop(ctx)
	case ModeCron:
		return r.runCron(ctx)
	default:
		return fmt.Errorf("unknown run mode %q", r.Mode)
	}
}

// loop reruns forever regardless of the outcome of the previous run.
func (r *Runner) loop(ctx context.Context) error {
	for {
		if ctx.Err() != nil {
			return nil
		}
		r.runOnce(ctx)

		if r.LoopInterval <= 0 {
			continue
		}
		timer := time.NewTimer(r.LoopInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil
		case <-timer.C:
		}
	}
}

func (r *Runner) runCron(ctx context.Context) error {
	c := cron.New(cron.WithLocation(time.UTC))
	if _, err := c.AddFunc(r.Cron, func() { r.runOnce(ctx) }); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", r.Cron, err)
	}

	r.Logger.Info("scheduled runs", zap.String("cron", r.Cron))
	c.Start()
	<-ctx.Done()

	// Let in-flight runs finish.
	<-c.Stop().Done()
	return nil
}

func (r *Runner) runOnce(ctx context.Context) {
	if err := r.Run(ctx); err != nil {
		r.Logger.Warn("run finished with error", zap.Error(err))
	}
}
