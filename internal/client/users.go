// Package client holds the HTTP clients for the user and book
// services. Both translate transport-level failures (timeouts,
// connection errors, 5xx) into domain.ErrUnavailable so the workflow
// layer never sees raw network errors.
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/punchamoorthee/loanops/internal/domain"
)

// UserClient queries the user service for borrower records.
type UserClient struct {
	baseURL string
	http    *http.Client
}

func NewUserClient(baseURL string, httpClient *http.Client) *UserClient {
	return &UserClient{baseURL: baseURL, http: httpClient}
}

// FetchUser resolves a user by ID. A 404 is domain.ErrUserNotFound;
// anything else that isn't a 200 is domain.ErrUnavailable.
func (c *UserClient) FetchUser(ctx context.Context, id string) (*domain.User, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/"+id, nil)
	if err != nil {
		return nil, fmt.Errorf("build user request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: user service: %v", domain.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var user domain.User
		if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
			return nil, fmt.Errorf("%w: decoding user response: %v", domain.ErrUnavailable, err)
		}
		return &user, nil
	case http.StatusNotFound:
		return nil, domain.ErrUserNotFound
	default:
		return nil, fmt.Errorf("%w: user service returned %d", domain.ErrUnavailable, resp.StatusCode)
	}
}
