// Package reconcile orchestrates a batch reconciliation run: snapshot the
// roster and directory, run the matcher, and apply accepted links with
// compare-and-set writes.
package reconcile

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/rollcallhq/rollcall/internal/db"
	"github.com/rollcallhq/rollcall/internal/directory"
	"github.com/rollcallhq/rollcall/internal/identity"
	"github.com/rollcallhq/rollcall/internal/match"
)

const defaultFetchTimeout = 30 * time.Second

// RosterProvider fetches the live platform roster.
type RosterProvider interface {
	Roster(ctx context.Context) ([]identity.PlatformIdentity, error)
}

// Directory is the membership directory collaborator.
type Directory interface {
	List(ctx context.Context) ([]directory.Member, error)
	LinkIdentity(ctx context.Context, memberID, identityID string) (directory.LinkStatus, error)
}

// Service runs on-demand reconciliation batches. Concurrent runs are safe:
// the per-member compare-and-set decides every race, so two runs may report
// different subsets of successful links but never double-link.
type Service struct {
	roster       RosterProvider
	directory    Directory
	opts         match.Options
	fetchTimeout time.Duration
	logger       *slog.Logger
}

// NewService creates the coordinator.
func NewService(log *slog.Logger, roster RosterProvider, dir Directory, opts match.Options) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		roster:       roster,
		directory:    dir,
		opts:         opts,
		fetchTimeout: defaultFetchTimeout,
		logger:       log.With(slog.String("service", "reconcile")),
	}
}

// Run executes one reconciliation batch. A roster or directory fetch failure
// aborts the run before any write; once writes begin, per-identity failures
// are logged and skipped and the batch runs to completion.
func (s *Service) Run(ctx context.Context) (Report, error) {
	report := Report{StartedAt: time.Now().UTC()}

	fetchCtx, cancel := context.WithTimeout(ctx, s.fetchTimeout)
	defer cancel()

	roster, err := s.roster.Roster(fetchCtx)
	if err != nil {
		return Report{}, fmt.Errorf("fetch roster: %w", err)
	}
	members, err := s.directory.List(fetchCtx)
	if err != nil {
		return Report{}, fmt.Errorf("fetch directory: %w", err)
	}

	candidates := make([]match.Member, 0, len(members))
	for _, m := range members {
		candidates = append(candidates, match.Member{
			ID:               m.ID,
			Handle:           m.Handle,
			Name:             m.Name,
			LinkedIdentityID: m.PlatformIdentityID,
		})
	}

	proposals := match.Match(roster, candidates, s.opts)
	report.Total = len(proposals)
	report.Details = make([]Detail, 0, len(proposals))

	for _, p := range proposals {
		report.Details = append(report.Details, s.apply(ctx, p, &report))
	}

	report.FinishedAt = time.Now().UTC()
	s.logger.Info("reconciliation complete",
		slog.Int("considered", report.Total),
		slog.Int("linked", report.Linked),
		slog.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)),
	)
	return report, nil
}

func (s *Service) apply(ctx context.Context, p match.Proposal, report *Report) Detail {
	detail := Detail{
		IdentityID: p.Identity.ID,
		Username:   p.Identity.Username,
		Score:      p.Score,
		Method:     string(p.Method),
	}

	switch {
	case p.Ambiguous:
		detail.Outcome = OutcomeAmbiguous
		s.logger.Warn("ambiguous match left unlinked",
			slog.String("identity_id", p.Identity.ID),
			slog.Int("score", p.Score),
		)
		return detail

	case !p.Accepted():
		detail.Outcome = OutcomeBelowThreshold
		return detail
	}

	detail.MatchedHandle = p.Member.Handle

	var status directory.LinkStatus
	err := db.Retry(ctx, func(ctx context.Context) error {
		var linkErr error
		status, linkErr = s.directory.LinkIdentity(ctx, p.Member.ID, p.Identity.ID)
		return linkErr
	})
	if err != nil {
		detail.Outcome = OutcomeError
		s.logger.Error("link write failed",
			slog.String("identity_id", p.Identity.ID),
			slog.String("member_id", p.Member.ID),
			slog.Any("error", err),
		)
		return detail
	}

	switch status {
	case directory.LinkApplied:
		detail.Outcome = OutcomeLinked
		report.Linked++
		s.logger.Info("identity linked",
			slog.String("identity_id", p.Identity.ID),
			slog.String("handle", p.Member.Handle),
			slog.Int("score", p.Score),
			slog.String("method", string(p.Method)),
		)
	case directory.LinkNotFound:
		// Member vanished between snapshot and write.
		detail.Outcome = OutcomeError
		s.logger.Warn("matched member no longer exists", slog.String("member_id", p.Member.ID))
	default:
		detail.Outcome = OutcomeAlreadyLinked
	}
	return detail
}
