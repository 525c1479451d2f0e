package store

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	bolt "github.com/boltdb/bolt"

	"github.com/punchamoorthee/loanops/internal/domain"
)

const loansBucket = "loans"

// BoltStore is an embedded single-file LoanStore. All data lives in
// one BoltDB file, so no external database process is required. The
// secondary lookups (by user, by status) scan the bucket; loan
// volumes in a single-node deployment stay well inside what a scan
// can serve.
type BoltStore struct {
	db *bolt.DB
}

// NewBoltStore opens (or creates) the database file and ensures the
// loans bucket exists.
func NewBoltStore(path string) (*BoltStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(loansBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create loans bucket: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Close releases the database file lock.
func (s *BoltStore) Close() error {
	return s.db.Close()
}

func (s *BoltStore) Create(_ context.Context, loan *domain.Loan) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(loansBucket))
		if b.Get([]byte(loan.ID)) != nil {
			return fmt.Errorf("loan %s already exists", loan.ID)
		}
		data, err := json.Marshal(loan)
		if err != nil {
			return err
		}
		return b.Put([]byte(loan.ID), data)
	})
}

func (s *BoltStore) GetLoan(_ context.Context, id string) (*domain.Loan, error) {
	var loan domain.Loan
	err := s.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(loansBucket)).Get([]byte(id))
		if v == nil {
			return domain.ErrLoanNotFound
		}
		return json.Unmarshal(v, &loan)
	})
	if err != nil {
		return nil, err
	}
	return &loan, nil
}

func (s *BoltStore) ListByUser(_ context.Context, userID string) ([]domain.Loan, error) {
	loans, err := s.scan(func(l *domain.Loan) bool { return l.UserID == userID })
	if err != nil {
		return nil, err
	}
	sort.Slice(loans, func(i, j int) bool {
		return loans[i].IssueDate.After(loans[j].IssueDate)
	})
	return loans, nil
}

func (s *BoltStore) FindActive(_ context.Context, userID, bookID string) (*domain.Loan, error) {
	loans, err := s.scan(func(l *domain.Loan) bool {
		return l.UserID == userID && l.BookID == bookID &&
			(l.Status == domain.StatusActive || l.Status == domain.StatusOverdue)
	})
	if err != nil {
		return nil, err
	}
	if len(loans) == 0 {
		return nil, nil
	}
	return &loans[0], nil
}

func (s *BoltStore) ListOverdueAsOf(_ context.Context, now time.Time) ([]domain.Loan, error) {
	loans, err := s.scan(func(l *domain.Loan) bool {
		return l.Status == domain.StatusActive && l.DueDate.Before(now)
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(loans, func(i, j int) bool {
		return loans[i].DueDate.Before(loans[j].DueDate)
	})
	return loans, nil
}

func (s *BoltStore) ListByStatus(_ context.Context, status string) ([]domain.Loan, error) {
	loans, err := s.scan(func(l *domain.Loan) bool { return l.Status == status })
	if err != nil {
		return nil, err
	}
	sort.Slice(loans, func(i, j int) bool {
		return loans[i].DueDate.Before(loans[j].DueDate)
	})
	return loans, nil
}

// Save re-reads the stored record inside the update transaction and
// refuses the write when the version moved underneath the caller.
func (s *BoltStore) Save(_ context.Context, loan *domain.Loan) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(loansBucket))
		v := b.Get([]byte(loan.ID))
		if v == nil {
			return domain.ErrLoanNotFound
		}

		var stored domain.Loan
		if err := json.Unmarshal(v, &stored); err != nil {
			return err
		}
		if stored.Version != loan.Version {
			return domain.ErrStaleLoan
		}

		next := *loan
		next.Version++
		data, err := json.Marshal(&next)
		if err != nil {
			return err
		}
		return b.Put([]byte(loan.ID), data)
	})
	if err != nil {
		return err
	}
	loan.Version++
	return nil
}

func (s *BoltStore) scan(match func(*domain.Loan) bool) ([]domain.Loan, error) {
	var loans []domain.Loan
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(loansBucket)).ForEach(func(_, v []byte) error {
			var l domain.Loan
			if err := json.Unmarshal(v, &l); err != nil {
				return err
			}
			if match(&l) {
				loans = append(loans, l)
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return loans, nil
}
