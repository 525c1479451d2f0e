// Package service implements the loan workflow engine: issuance,
// return and extension as multi-step sequences across the user
// service, the book service's availability ledger and the loan store,
// with compensating actions when a later step fails after an earlier
// one committed a side effect.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/punchamoorthee/loanops/internal/domain"
	"github.com/punchamoorthee/loanops/internal/store"
)

// UserDirectory resolves borrowers in the user service.
type UserDirectory interface {
	FetchUser(ctx context.Context, id string) (*domain.User, error)
}

// BookCatalog resolves books and owns the availability ledger. A
// reservation is a single atomic decrement on the book service's
// side; this engine never assumes exclusive access to the counter.
type BookCatalog interface {
	FetchBook(ctx context.Context, id string) (*domain.Book, error)
	ReserveCopy(ctx context.Context, id string) (*domain.Book, error)
	ReleaseCopy(ctx context.Context, id string) (*domain.Book, error)
}

// saveRetries bounds the re-read-and-retry loop when a Save loses a
// version race against the sweeper or another workflow.
const saveRetries = 3

type LoanService struct {
	users UserDirectory
	books BookCatalog
	loans store.LoanStore
	log   zerolog.Logger
	now   func() time.Time
}

func NewLoanService(users UserDirectory, books BookCatalog, loans store.LoanStore, log zerolog.Logger) *LoanService {
	return &LoanService{
		users: users,
		books: books,
		loans: loans,
		log:   log,
		now:   time.Now,
	}
}

// IssueBook lends one copy of a book to a user. The availability
// decrement is the authoritative gate: the advisory availability
// check on the fetched book only short-circuits the obvious case.
// A reservation that cannot be followed by a persisted loan is
// released before the failure is reported.
func (s *LoanService) IssueBook(ctx context.Context, req domain.IssueRequest) (*domain.Loan, error) {
	if req.UserID == "" || req.BookID == "" {
		return nil, fmt.Errorf("%w: user_id and book_id are required", domain.ErrInvalidRequest)
	}
	now := s.now()
	if req.DueDate.IsZero() {
		return nil, fmt.Errorf("%w: due_date is required", domain.ErrInvalidRequest)
	}
	if req.DueDate.Before(startOfDay(now)) {
		return nil, fmt.Errorf("%w: due_date must not be in the past", domain.ErrInvalidRequest)
	}

	if _, err := s.users.FetchUser(ctx, req.UserID); err != nil {
		return nil, err
	}

	book, err := s.books.FetchBook(ctx, req.BookID)
	if err != nil {
		return nil, err
	}
	if book.AvailableCopies <= 0 {
		return nil, domain.ErrNoCopies
	}

	existing, err := s.loans.FindActive(ctx, req.UserID, req.BookID)
	if err != nil {
		return nil, fmt.Errorf("active loan lookup failed: %w", err)
	}
	if existing != nil {
		return nil, domain.ErrDuplicateLoan
	}

	if _, err := s.books.ReserveCopy(ctx, req.BookID); err != nil {
		return nil, err
	}

	loan := &domain.Loan{
		ID:        uuid.NewString(),
		UserID:    req.UserID,
		BookID:    req.BookID,
		IssueDate: now,
		DueDate:   req.DueDate,
		Status:    domain.StatusActive,
		Version:   1,
	}

	if err := s.loans.Create(ctx, loan); err != nil {
		return nil, s.compensateReservation(ctx, "issue", loan, err)
	}

	loansIssuedTotal.Inc()
	s.log.Info().
		Str("loan_id", loan.ID).
		Str("user_id", loan.UserID).
		Str("book_id", loan.BookID).
		Time("due_date", loan.DueDate).
		Msg("loan issued")
	return loan, nil
}

// ReturnBook releases the copy back to the ledger before persisting
// the RETURNED transition, so a failed release leaves the loan
// untouched. A failed persist after the release is compensated by
// re-reserving the copy.
func (s *LoanService) ReturnBook(ctx context.Context, loanID string) (*domain.Loan, error) {
	if loanID == "" {
		return nil, fmt.Errorf("%w: loan_id is required", domain.ErrInvalidRequest)
	}

	loan, err := s.loans.GetLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if loan.Status == domain.StatusReturned {
		return nil, domain.ErrAlreadyReturned
	}

	if _, err := s.books.ReleaseCopy(ctx, loan.BookID); err != nil {
		return nil, err
	}

	returnedAt := s.now()
	for attempt := 0; ; attempt++ {
		loan.Status = domain.StatusReturned
		loan.ReturnDate = &returnedAt

		err = s.loans.Save(ctx, loan)
		if err == nil {
			break
		}

		if errors.Is(err, domain.ErrStaleLoan) && attempt < saveRetries {
			// Lost a version race, typically against the sweeper.
			// Re-read: if someone else completed the return, our
			// release double-counted and must be taken back.
			fresh, readErr := s.loans.GetLoan(ctx, loanID)
			if readErr == nil && fresh.Status != domain.StatusReturned {
				loan = fresh
				continue
			}
			if readErr == nil {
				err = domain.ErrAlreadyReturned
			} else {
				err = readErr
			}
		}
		return nil, s.compensateRelease(ctx, loan, err)
	}

	loansReturnedTotal.Inc()
	s.log.Info().
		Str("loan_id", loan.ID).
		Str("book_id", loan.BookID).
		Msg("loan returned")
	return loan, nil
}

// ExtendLoan pushes the due date out by 1 to 30 days. Availability is
// untouched.
func (s *LoanService) ExtendLoan(ctx context.Context, loanID string, extensionDays int) (*domain.Loan, error) {
	if loanID == "" {
		return nil, fmt.Errorf("%w: loan_id is required", domain.ErrInvalidRequest)
	}

	loan, err := s.loans.GetLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}
	if loan.Status == domain.StatusReturned {
		return nil, domain.ErrAlreadyReturned
	}
	if extensionDays < 1 || extensionDays > 30 {
		return nil, fmt.Errorf("%w: extension_days must be between 1 and 30", domain.ErrInvalidRequest)
	}

	for attempt := 0; ; attempt++ {
		loan.DueDate = loan.DueDate.AddDate(0, 0, extensionDays)

		err = s.loans.Save(ctx, loan)
		if err == nil {
			break
		}

		if errors.Is(err, domain.ErrStaleLoan) && attempt < saveRetries {
			fresh, readErr := s.loans.GetLoan(ctx, loanID)
			if readErr != nil {
				return nil, readErr
			}
			if fresh.Status == domain.StatusReturned {
				return nil, domain.ErrAlreadyReturned
			}
			loan = fresh
			continue
		}
		return nil, fmt.Errorf("extension persist failed: %w", err)
	}

	loansExtendedTotal.Inc()
	s.log.Info().
		Str("loan_id", loan.ID).
		Int("extension_days", extensionDays).
		Time("due_date", loan.DueDate).
		Msg("loan extended")
	return loan, nil
}

// GetLoan returns the loan decorated with user and book details.
// Collaborator lookups are best-effort: a failed lookup degrades to
// placeholder details, it never fails the read.
func (s *LoanService) GetLoan(ctx context.Context, loanID string) (*domain.LoanDetail, error) {
	if loanID == "" {
		return nil, fmt.Errorf("%w: loan_id is required", domain.ErrInvalidRequest)
	}

	loan, err := s.loans.GetLoan(ctx, loanID)
	if err != nil {
		return nil, err
	}

	detail := &domain.LoanDetail{
		ID:         loan.ID,
		User:       s.userRef(ctx, loan.UserID),
		Book:       s.bookRef(ctx, loan.BookID),
		IssueDate:  loan.IssueDate,
		DueDate:    loan.DueDate,
		ReturnDate: loan.ReturnDate,
		Status:     loan.Status,
	}
	return detail, nil
}

// GetUserLoans lists a user's loans, most recent first. The user must
// exist; per-loan book details are best-effort.
func (s *LoanService) GetUserLoans(ctx context.Context, userID string) (*domain.UserLoansResponse, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user_id is required", domain.ErrInvalidRequest)
	}

	if _, err := s.users.FetchUser(ctx, userID); err != nil {
		return nil, err
	}

	loans, err := s.loans.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("user loans lookup failed: %w", err)
	}

	details := make([]domain.LoanDetail, 0, len(loans))
	for i := range loans {
		l := &loans[i]
		details = append(details, domain.LoanDetail{
			ID:         l.ID,
			User:       domain.UserRef{ID: l.UserID},
			Book:       s.bookRef(ctx, l.BookID),
			IssueDate:  l.IssueDate,
			DueDate:    l.DueDate,
			ReturnDate: l.ReturnDate,
			Status:     l.Status,
		})
	}
	return &domain.UserLoansResponse{Loans: details, Total: len(details)}, nil
}

// OverdueLoans sweeps past-due ACTIVE loans, then lists everything
// currently OVERDUE with user and book details and days overdue.
func (s *LoanService) OverdueLoans(ctx context.Context) (*domain.OverdueLoansResponse, error) {
	now := s.now()
	if _, err := s.SweepOverdue(ctx, now); err != nil {
		return nil, err
	}

	loans, err := s.loans.ListByStatus(ctx, domain.StatusOverdue)
	if err != nil {
		return nil, fmt.Errorf("overdue lookup failed: %w", err)
	}

	entries := make([]domain.OverdueLoan, 0, len(loans))
	for i := range loans {
		l := &loans[i]
		entries = append(entries, domain.OverdueLoan{
			ID:          l.ID,
			User:        s.userRef(ctx, l.UserID),
			Book:        s.bookRef(ctx, l.BookID),
			IssueDate:   l.IssueDate,
			DueDate:     l.DueDate,
			DaysOverdue: int(now.Sub(l.DueDate).Hours() / 24),
			Status:      l.Status,
		})
	}
	return &domain.OverdueLoansResponse{OverdueLoans: entries, Total: len(entries)}, nil
}

// compensateReservation releases the copy reserved for a loan whose
// persistence failed. When even the release fails, availability has
// drifted: the full context is logged for operator remediation and
// the caller gets ErrCompensationFailed.
func (s *LoanService) compensateReservation(ctx context.Context, workflow string, loan *domain.Loan, cause error) error {
	if _, relErr := s.books.ReleaseCopy(ctx, loan.BookID); relErr != nil {
		compensationsTotal.WithLabelValues(workflow, "failed").Inc()
		s.log.Error().
			Str("loan_id", loan.ID).
			Str("user_id", loan.UserID).
			Str("book_id", loan.BookID).
			AnErr("cause", cause).
			AnErr("release_error", relErr).
			Msg("reservation rollback failed, availability has drifted")
		return fmt.Errorf("%w: reserved copy of book %s could not be released: %v (after: %v)",
			domain.ErrCompensationFailed, loan.BookID, relErr, cause)
	}

	compensationsTotal.WithLabelValues(workflow, "compensated").Inc()
	s.log.Warn().
		Str("loan_id", loan.ID).
		Str("user_id", loan.UserID).
		Str("book_id", loan.BookID).
		AnErr("cause", cause).
		Msg("loan persistence failed, reservation released")
	return fmt.Errorf("loan persistence failed: %w", cause)
}

// compensateRelease is the mirror image for returns: the copy was
// already released but the RETURNED transition could not be
// persisted, so the release is taken back by re-reserving.
func (s *LoanService) compensateRelease(ctx context.Context, loan *domain.Loan, cause error) error {
	if _, resErr := s.books.ReserveCopy(ctx, loan.BookID); resErr != nil {
		compensationsTotal.WithLabelValues("return", "failed").Inc()
		s.log.Error().
			Str("loan_id", loan.ID).
			Str("user_id", loan.UserID).
			Str("book_id", loan.BookID).
			AnErr("cause", cause).
			AnErr("reserve_error", resErr).
			Msg("release rollback failed, availability has drifted")
		return fmt.Errorf("%w: released copy of book %s could not be re-reserved: %v (after: %v)",
			domain.ErrCompensationFailed, loan.BookID, resErr, cause)
	}

	compensationsTotal.WithLabelValues("return", "compensated").Inc()
	if errors.Is(cause, domain.ErrAlreadyReturned) {
		return cause
	}
	return fmt.Errorf("return persistence failed: %w", cause)
}

func (s *LoanService) userRef(ctx context.Context, userID string) domain.UserRef {
	user, err := s.users.FetchUser(ctx, userID)
	if err != nil {
		s.log.Debug().Str("user_id", userID).Err(err).Msg("user detail lookup failed")
		return domain.UserRef{ID: userID, Name: "Unknown", Email: "Unknown"}
	}
	return domain.UserRef{ID: user.ID, Name: user.Name, Email: user.Email}
}

func (s *LoanService) bookRef(ctx context.Context, bookID string) domain.BookRef {
	book, err := s.books.FetchBook(ctx, bookID)
	if err != nil {
		s.log.Debug().Str("book_id", bookID).Err(err).Msg("book detail lookup failed")
		return domain.BookRef{ID: bookID, Title: "Unknown", Author: "Unknown"}
	}
	return domain.BookRef{ID: book.ID, Title: book.Title, Author: book.Author}
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
