// Package store persists loan records. Two backends implement
// LoanStore: Postgres for production and BoltDB for single-node
// deployments without an external database.
package store

import (
	"context"
	"time"

	"github.com/punchamoorthee/loanops/internal/domain"
)

// LoanStore is the persistence contract for loan records. Reads are
// consistent with the most recent completed write on the same store
// instance. Save performs a full replace conditioned on the loan's
// version: a mismatch returns domain.ErrStaleLoan and writes nothing.
type LoanStore interface {
	// Create persists a new loan record.
	Create(ctx context.Context, loan *domain.Loan) error

	// GetLoan returns the loan or domain.ErrLoanNotFound.
	GetLoan(ctx context.Context, id string) (*domain.Loan, error)

	// ListByUser returns the user's loans, most recent first.
	ListByUser(ctx context.Context, userID string) ([]domain.Loan, error)

	// FindActive returns the single ACTIVE or OVERDUE loan for the
	// (user, book) pair, or nil when there is none.
	FindActive(ctx context.Context, userID, bookID string) (*domain.Loan, error)

	// ListOverdueAsOf returns ACTIVE loans whose due date has passed.
	ListOverdueAsOf(ctx context.Context, now time.Time) ([]domain.Loan, error)

	// ListByStatus returns all loans in the given status, ordered by
	// due date.
	ListByStatus(ctx context.Context, status string) ([]domain.Loan, error)

	// Save replaces the stored record if the version still matches,
	// bumping both the stored and in-memory version on success.
	Save(ctx context.Context, loan *domain.Loan) error
}
