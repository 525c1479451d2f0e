package domain

import "time"

// Loan statuses. A loan is created ACTIVE, may be reclassified to
// OVERDUE by the sweeper, and ends RETURNED. RETURNED is terminal.
const (
	StatusActive   = "ACTIVE"
	StatusOverdue  = "OVERDUE"
	StatusReturned = "RETURNED"
)

// Loan represents one borrowing event. ReturnDate is nil until the
// book comes back. Version backs the store's optimistic write check.
type Loan struct {
	ID         string     `json:"id"`
	UserID     string     `json:"user_id"`
	BookID     string     `json:"book_id"`
	IssueDate  time.Time  `json:"issue_date"`
	DueDate    time.Time  `json:"due_date"`
	ReturnDate *time.Time `json:"return_date,omitempty"`
	Status     string     `json:"status"`
	Version    int64      `json:"version"`
}

// User is the user-service's view of a borrower.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// Book is the book-service's view of a title. AvailableCopies is
// owned by the book service; this side never mutates it directly.
type Book struct {
	ID              string `json:"id"`
	Title           string `json:"title"`
	Author          string `json:"author"`
	Copies          int    `json:"copies"`
	AvailableCopies int    `json:"available_copies"`
}

// IssueRequest is the payload for creating a loan.
type IssueRequest struct {
	UserID  string    `json:"user_id"`
	BookID  string    `json:"book_id"`
	DueDate time.Time `json:"due_date"`
}

// ReturnRequest is the payload for returning a book.
type ReturnRequest struct {
	LoanID string `json:"loan_id"`
}

// ExtendRequest is the payload for pushing out a due date.
type ExtendRequest struct {
	ExtensionDays int `json:"extension_days"`
}

// UserRef is the subset of user details attached to loan reads. When
// the user service cannot be reached the Name/Email fall back to
// "Unknown" rather than failing the read.
type UserRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// BookRef is the subset of book details attached to loan reads.
type BookRef struct {
	ID     string `json:"id"`
	Title  string `json:"title"`
	Author string `json:"author"`
}

// LoanDetail is a loan decorated with collaborator details.
type LoanDetail struct {
	ID         string     `json:"id"`
	User       UserRef    `json:"user"`
	Book       BookRef    `json:"book"`
	IssueDate  time.Time  `json:"issue_date"`
	DueDate    time.Time  `json:"due_date"`
	ReturnDate *time.Time `json:"return_date,omitempty"`
	Status     string     `json:"status"`
}

// UserLoansResponse is the listing shape for a user's loan history.
type UserLoansResponse struct {
	Loans []LoanDetail `json:"loans"`
	Total int          `json:"total"`
}

// OverdueLoan is an overdue listing entry.
type OverdueLoan struct {
	ID          string    `json:"id"`
	User        UserRef   `json:"user"`
	Book        BookRef   `json:"book"`
	IssueDate   time.Time `json:"issue_date"`
	DueDate     time.Time `json:"due_date"`
	DaysOverdue int       `json:"days_overdue"`
	Status      string    `json:"status"`
}

// OverdueLoansResponse is the overdue listing shape.
type OverdueLoansResponse struct {
	OverdueLoans []OverdueLoan `json:"overdue_loans"`
	Total        int           `json:"total"`
}
