package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/punchamoorthee/loanops/internal/domain"
)

// SweepOverdue reclassifies ACTIVE loans whose due date has passed to
// OVERDUE. It is safe to run repeatedly and concurrently with
// issuance and return: each write is conditioned on the loan's
// version, so a loan returned between the query and the write is
// skipped rather than dragged back to OVERDUE. Returns the number of
// loans it transitioned.
func (s *LoanService) SweepOverdue(ctx context.Context, now time.Time) (int, error) {
	overdue, err := s.loans.ListOverdueAsOf(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("overdue sweep query failed: %w", err)
	}

	marked := 0
	for i := range overdue {
		loan := overdue[i]
		loan.Status = domain.StatusOverdue

		switch err := s.loans.Save(ctx, &loan); {
		case err == nil:
			marked++
			sweepMarkedTotal.Inc()
		case errors.Is(err, domain.ErrStaleLoan), errors.Is(err, domain.ErrLoanNotFound):
			// Someone else moved the loan since the query; their
			// write wins.
			sweepSkippedTotal.Inc()
			s.log.Debug().Str("loan_id", loan.ID).Msg("sweep skipped stale loan")
		default:
			s.log.Warn().Str("loan_id", loan.ID).Err(err).Msg("sweep write failed")
		}
	}

	if marked > 0 {
		s.log.Info().Int("marked", marked).Time("as_of", now).Msg("overdue sweep complete")
	}
	return marked, nil
}

// Sweeper runs the overdue sweep on a fixed interval.
type Sweeper struct {
	svc      *LoanService
	interval time.Duration
	log      zerolog.Logger
}

func NewSweeper(svc *LoanService, interval time.Duration, log zerolog.Logger) *Sweeper {
	return &Sweeper{svc: svc, interval: interval, log: log}
}

// Run blocks, sweeping every interval until ctx is cancelled.
func (w *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.Info().Dur("interval", w.interval).Msg("overdue sweeper started")
	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("overdue sweeper stopped")
			return
		case now := <-ticker.C:
			if _, err := w.svc.SweepOverdue(ctx, now); err != nil {
				w.log.Error().Err(err).Msg("scheduled sweep failed")
			}
		}
	}
}
