package domain

import "errors"

// Workflow error taxonomy. Collaborator and store failures are
// translated to one of these at the service boundary; raw transport
// errors never reach the API layer.
var (
	// ErrInvalidRequest rejects malformed input before any
	// collaborator is contacted.
	ErrInvalidRequest = errors.New("invalid request")

	ErrUserNotFound = errors.New("user not found")
	ErrBookNotFound = errors.New("book not found")
	ErrLoanNotFound = errors.New("loan not found")

	// ErrDuplicateLoan enforces the one-active-loan-per-(user,book)
	// invariant.
	ErrDuplicateLoan = errors.New("user already has this book on loan")

	// ErrAlreadyReturned rejects a second return of the same loan.
	ErrAlreadyReturned = errors.New("loan already returned")

	// ErrNoCopies is the book service refusing to decrement at zero.
	ErrNoCopies = errors.New("no available copies")

	// ErrUnavailable covers collaborator timeouts, connection
	// failures and 5xx responses. The whole workflow is safe to
	// retry: nothing was committed before the failing call.
	ErrUnavailable = errors.New("dependency unavailable")

	// ErrCompensationFailed means a reservation (or release) could
	// not be rolled back after a downstream failure. Availability has
	// drifted and needs operator remediation.
	ErrCompensationFailed = errors.New("compensation failed")

	// ErrStaleLoan is returned by Save when the loan changed since it
	// was read. The caller re-reads or, in the sweeper's case, skips.
	ErrStaleLoan = errors.New("stale loan write")
)
