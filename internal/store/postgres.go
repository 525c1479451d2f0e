package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/punchamoorthee/loanops/internal/domain"
)

// PostgresStore is the pgx-backed LoanStore.
type PostgresStore struct {
	db *pgxpool.Pool
}

func NewPostgresStore(connString string) (*PostgresStore, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(context.Background()); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	return &PostgresStore{db: pool}, nil
}

// NewPostgresStoreWithPool wraps an existing pool, used by cmd/api
// which owns the pool lifecycle.
func NewPostgresStoreWithPool(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: pool}
}

func (s *PostgresStore) Close() {
	s.db.Close()
}

const loanColumns = "id, user_id, book_id, issue_date, due_date, return_date, status, version"

func (s *PostgresStore) Create(ctx context.Context, loan *domain.Loan) error {
	_, err := s.db.Exec(ctx,
		"INSERT INTO loans (id, user_id, book_id, issue_date, due_date, return_date, status, version) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)",
		loan.ID, loan.UserID, loan.BookID, loan.IssueDate, loan.DueDate, loan.ReturnDate, loan.Status, loan.Version,
	)
	if err != nil {
		return fmt.Errorf("loan insert failed: %w", err)
	}
	return nil
}

func (s *PostgresStore) GetLoan(ctx context.Context, id string) (*domain.Loan, error) {
	row := s.db.QueryRow(ctx, "SELECT "+loanColumns+" FROM loans WHERE id = $1", id)
	loan, err := scanLoan(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrLoanNotFound
		}
		return nil, fmt.Errorf("loan query failed: %w", err)
	}
	return loan, nil
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID string) ([]domain.Loan, error) {
	rows, err := s.db.Query(ctx,
		"SELECT "+loanColumns+" FROM loans WHERE user_id = $1 ORDER BY issue_date DESC",
		userID)
	if err != nil {
		return nil, fmt.Errorf("user loans query failed: %w", err)
	}
	defer rows.Close()
	return collectLoans(rows)
}

func (s *PostgresStore) FindActive(ctx context.Context, userID, bookID string) (*domain.Loan, error) {
	row := s.db.QueryRow(ctx,
		"SELECT "+loanColumns+" FROM loans WHERE user_id = $1 AND book_id = $2 AND status IN ($3, $4) LIMIT 1",
		userID, bookID, domain.StatusActive, domain.StatusOverdue)
	loan, err := scanLoan(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("active loan query failed: %w", err)
	}
	return loan, nil
}

func (s *PostgresStore) ListOverdueAsOf(ctx context.Context, now time.Time) ([]domain.Loan, error) {
	rows, err := s.db.Query(ctx,
		"SELECT "+loanColumns+" FROM loans WHERE status = $1 AND due_date < $2 ORDER BY due_date ASC",
		domain.StatusActive, now)
	if err != nil {
		return nil, fmt.Errorf("overdue query failed: %w", err)
	}
	defer rows.Close()
	return collectLoans(rows)
}

func (s *PostgresStore) ListByStatus(ctx context.Context, status string) ([]domain.Loan, error) {
	rows, err := s.db.Query(ctx,
		"SELECT "+loanColumns+" FROM loans WHERE status = $1 ORDER BY due_date ASC",
		status)
	if err != nil {
		return nil, fmt.Errorf("status query failed: %w", err)
	}
	defer rows.Close()
	return collectLoans(rows)
}

// Save replaces the record conditioned on the version column. Zero
// rows affected means a concurrent writer got there first.
func (s *PostgresStore) Save(ctx context.Context, loan *domain.Loan) error {
	tag, err := s.db.Exec(ctx,
		"UPDATE loans SET due_date = $1, return_date = $2, status = $3, version = version + 1 WHERE id = $4 AND version = $5",
		loan.DueDate, loan.ReturnDate, loan.Status, loan.ID, loan.Version,
	)
	if err != nil {
		return fmt.Errorf("loan update failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Distinguish a stale version from a missing row.
		var exists bool
		if err := s.db.QueryRow(ctx, "SELECT EXISTS(SELECT 1 FROM loans WHERE id = $1)", loan.ID).Scan(&exists); err != nil {
			return fmt.Errorf("loan existence check failed: %w", err)
		}
		if !exists {
			return domain.ErrLoanNotFound
		}
		return domain.ErrStaleLoan
	}
	loan.Version++
	return nil
}

func scanLoan(row pgx.Row) (*domain.Loan, error) {
	var loan domain.Loan
	err := row.Scan(&loan.ID, &loan.UserID, &loan.BookID, &loan.IssueDate,
		&loan.DueDate, &loan.ReturnDate, &loan.Status, &loan.Version)
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

func collectLoans(rows pgx.Rows) ([]domain.Loan, error) {
	var loans []domain.Loan
	for rows.Next() {
		loan, err := scanLoan(rows)
		if err != nil {
			return nil, fmt.Errorf("loan scan failed: %w", err)
		}
		loans = append(loans, *loan)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("loan rows iteration failed: %w", err)
	}
	return loans, nil
}
