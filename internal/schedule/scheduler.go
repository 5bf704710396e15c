// Package schedule runs reconciliation on a cron spec.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/robfig/cron/v3"

	"github.com/rollcallhq/rollcall/internal/reconcile"
)

// Runner executes one reconciliation batch.
type Runner interface {
	Run(ctx context.Context) (reconcile.Report, error)
}

// Scheduler triggers the runner on a cron spec. An in-flight run is never
// overlapped; a tick that fires while the previous run is still going is
// skipped.
type Scheduler struct {
	cron   *cron.Cron
	spec   string
	runner Runner
	logger *slog.Logger
}

// NewScheduler creates a scheduler. An empty spec disables scheduling;
// Start then does nothing.
func NewScheduler(log *slog.Logger, spec string, runner Runner) *Scheduler {
	if log == nil {
		log = slog.Default()
	}
	logger := log.With(slog.String("service", "schedule"))
	return &Scheduler{
		cron: cron.New(cron.WithChain(
			cron.SkipIfStillRunning(cron.DiscardLogger),
			cron.Recover(cron.DiscardLogger),
		)),
		spec:   strings.TrimSpace(spec),
		runner: runner,
		logger: logger,
	}
}

// Start registers the job and starts the cron loop.
func (s *Scheduler) Start() error {
	if s.spec == "" {
		s.logger.Info("scheduled reconciliation disabled")
		return nil
	}
	_, err := s.cron.AddFunc(s.spec, func() {
		report, err := s.runner.Run(context.Background())
		if err != nil {
			s.logger.Error("scheduled reconciliation failed", slog.Any("error", err))
			return
		}
		s.logger.Info("scheduled reconciliation finished",
			slog.Int("considered", report.Total),
			slog.Int("linked", report.Linked),
		)
	})
	if err != nil {
		return fmt.Errorf("invalid cron spec %q: %w", s.spec, err)
	}
	s.cron.Start()
	s.logger.Info("scheduled reconciliation enabled", slog.String("spec", s.spec))
	return nil
}

// Stop stops the cron loop and waits for a running job to finish.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop().Done()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
