package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/punchamoorthee/loanops/internal/domain"
)

// Availability operations accepted by the book service.
const (
	opDecrement = "decrement"
	opIncrement = "increment"
)

// BookClient queries the book service and acts as the availability
// ledger: ReserveCopy and ReleaseCopy are single atomic adjustments
// on the book service's side. This client holds no copy of the
// counter.
type BookClient struct {
	baseURL string
	http    *http.Client
}

func NewBookClient(baseURL string, httpClient *http.Client) *BookClient {
	return &BookClient{baseURL: baseURL, http: httpClient}
}

// FetchBook resolves a book by ID. A 404 is domain.ErrBookNotFound;
// anything else that isn't a 200 is domain.ErrUnavailable.
func (c *BookClient) FetchBook(ctx context.Context, id string) (*domain.Book, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+id, nil)
	if err != nil {
		return nil, fmt.Errorf("build book request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: book service: %v", domain.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var book domain.Book
		if err := json.NewDecoder(resp.Body).Decode(&book); err != nil {
			return nil, fmt.Errorf("%w: decoding book response: %v", domain.ErrUnavailable, err)
		}
		return &book, nil
	case http.StatusNotFound:
		return nil, domain.ErrBookNotFound
	default:
		return nil, fmt.Errorf("%w: book service returned %d", domain.ErrUnavailable, resp.StatusCode)
	}
}

// ReserveCopy decrements the book's available-copy count. The book
// service refuses the decrement at zero with a 400, surfaced here as
// domain.ErrNoCopies — the count is never clamped.
func (c *BookClient) ReserveCopy(ctx context.Context, id string) (*domain.Book, error) {
	return c.adjustAvailability(ctx, id, opDecrement)
}

// ReleaseCopy increments the book's available-copy count.
func (c *BookClient) ReleaseCopy(ctx context.Context, id string) (*domain.Book, error) {
	return c.adjustAvailability(ctx, id, opIncrement)
}

func (c *BookClient) adjustAvailability(ctx context.Context, id, operation string) (*domain.Book, error) {
	body, err := json.Marshal(map[string]string{"operation": operation})
	if err != nil {
		return nil, fmt.Errorf("encode availability request: %w", err)
	}

	url := c.baseURL + "/" + id + "/availability"
	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build availability request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: book service: %v", domain.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var book domain.Book
		if err := json.NewDecoder(resp.Body).Decode(&book); err != nil {
			return nil, fmt.Errorf("%w: decoding availability response: %v", domain.ErrUnavailable, err)
		}
		return &book, nil
	case http.StatusBadRequest:
		if operation == opDecrement {
			return nil, domain.ErrNoCopies
		}
		return nil, fmt.Errorf("%w: book service rejected %s", domain.ErrUnavailable, operation)
	case http.StatusNotFound:
		return nil, domain.ErrBookNotFound
	default:
		return nil, fmt.Errorf("%w: book service returned %d", domain.ErrUnavailable, resp.StatusCode)
	}
}
