package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/punchamoorthee/loanops/internal/domain"
)

func seedLoan(t *testing.T, loans *fakeStore, id, status string, due time.Time) {
	t.Helper()
	err := loans.Create(context.Background(), &domain.Loan{
		ID:        id,
		UserID:    "user-a",
		BookID:    "book-1",
		IssueDate: due.AddDate(0, 0, -14),
		DueDate:   due,
		Status:    status,
		Version:   1,
	})
	require.NoError(t, err)
}

func Test_SweepOverdue_MarksPastDueActiveLoans(t *testing.T) {
	svc, _, _, loans := newTestService()
	now := time.Now()

	seedLoan(t, loans, "late-1", domain.StatusActive, now.AddDate(0, 0, -3))
	seedLoan(t, loans, "late-2", domain.StatusActive, now.AddDate(0, 0, -1))
	seedLoan(t, loans, "on-time", domain.StatusActive, now.AddDate(0, 0, 7))
	seedLoan(t, loans, "done", domain.StatusReturned, now.AddDate(0, 0, -5))

	marked, err := svc.SweepOverdue(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 2, marked)

	overdue, err := loans.ListByStatus(context.Background(), domain.StatusOverdue)
	require.NoError(t, err)
	assert.Len(t, overdue, 2)

	onTime, err := loans.GetLoan(context.Background(), "on-time")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusActive, onTime.Status)

	done, err := loans.GetLoan(context.Background(), "done")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReturned, done.Status)
}

func Test_SweepOverdue_Idempotent(t *testing.T) {
	svc, _, _, loans := newTestService()
	now := time.Now()

	seedLoan(t, loans, "late-1", domain.StatusActive, now.AddDate(0, 0, -3))
	seedLoan(t, loans, "done", domain.StatusReturned, now.AddDate(0, 0, -5))

	first, err := svc.SweepOverdue(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 1, first)

	second, err := svc.SweepOverdue(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 0, second)

	overdue, err := loans.ListByStatus(context.Background(), domain.StatusOverdue)
	require.NoError(t, err)
	assert.Len(t, overdue, 1)

	done, err := loans.GetLoan(context.Background(), "done")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReturned, done.Status)
}

func Test_SweepOverdue_SkipsLoanReturnedMidSweep(t *testing.T) {
	svc, _, _, loans := newTestService()
	now := time.Now()

	seedLoan(t, loans, "late-1", domain.StatusActive, now.AddDate(0, 0, -3))

	// Between the overdue query and the write, the loan is returned
	// by a concurrent workflow. The sweep's stale write must not drag
	// it back to OVERDUE.
	loans.afterList = func(f *fakeStore) {
		f.mu.Lock()
		defer f.mu.Unlock()
		l := f.loans["late-1"]
		returned := time.Now()
		l.Status = domain.StatusReturned
		l.ReturnDate = &returned
		l.Version++
	}

	marked, err := svc.SweepOverdue(context.Background(), now)
	require.NoError(t, err)
	assert.Equal(t, 0, marked)

	loan, err := loans.GetLoan(context.Background(), "late-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReturned, loan.Status)
}

func Test_OverdueLoans_SweepsThenLists(t *testing.T) {
	svc, _, _, loans := newTestService()
	now := time.Now()

	seedLoan(t, loans, "late-1", domain.StatusActive, now.AddDate(0, 0, -3))

	resp, err := svc.OverdueLoans(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, resp.Total)
	assert.Equal(t, "late-1", resp.OverdueLoans[0].ID)
	assert.Equal(t, domain.StatusOverdue, resp.OverdueLoans[0].Status)
	assert.GreaterOrEqual(t, resp.OverdueLoans[0].DaysOverdue, 2)
}

func Test_Sweeper_RunStopsOnCancel(t *testing.T) {
	svc, _, _, loans := newTestService()
	seedLoan(t, loans, "late-1", domain.StatusActive, time.Now().AddDate(0, 0, -1))

	sweeper := NewSweeper(svc, 5*time.Millisecond, svc.log)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		sweeper.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		loan, err := loans.GetLoan(context.Background(), "late-1")
		return err == nil && loan.Status == domain.StatusOverdue
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop after cancellation")
	}
}
