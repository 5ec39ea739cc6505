package booking

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	defaultTimeout    = 10 * time.Second
	defaultMaxRetries = 3
	defaultBackoff    = 300 * time.Millisecond
	maxBackoff        = 5 * time.Second
)

// Client talks to the ticketing API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
	timeout    time.Duration
	maxRetries int
	backoff    time.Duration
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithToken sets the bearer token sent on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithTimeout bounds every single attempt.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) { c.timeout = timeout }
}

// WithRetries sets how often failed attempts are retried and the
// initial backoff, doubled after every attempt.
func WithRetries(maxRetries int, backoff time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.backoff = backoff
	}
}

func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
		timeout:    defaultTimeout,
		maxRetries: defaultMaxRetries,
		backoff:    defaultBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BuyTickets submits a checkout. Retries reuse req.IdempotencyKey so the
// server books at most once.
func (c *Client) BuyTickets(ctx context.Context, req *TicketRequest) (*Ticket, error) {
	if req.IdempotencyKey == "" {
		req.IdempotencyKey = uuid.NewString()
	}

	var ticket Ticket
	err := c.do(ctx, http.MethodPost, "/api/tickets", req, req.IdempotencyKey, &ticket)
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) || errors.Is(err, context.Canceled) {
			return nil, err
		}
		return nil, ErrReservationFailed
	}
	return &ticket, nil
}

func (c *Client) GetEvent(ctx context.Context, eventID uuid.UUID) (*Event, error) {
	var event Event
	if err := c.do(ctx, http.MethodGet, "/api/events/"+eventID.String(), nil, "", &event); err != nil {
		return nil, err
	}
	return &event, nil
}

func (c *Client) GetUserTickets(ctx context.Context, userID uuid.UUID) (*TicketList, error) {
	var list TicketList
	if err := c.do(ctx, http.MethodGet, "/api/tickets/"+userID.String(), nil, "", &list); err != nil {
		return nil, err
	}
	return &list, nil
}

func (c *Client) GetTicket(ctx context.Context, userID, ticketID uuid.UUID) (*Ticket, error) {
	var ticket Ticket
	path := fmt.Sprintf("/api/tickets/%s/%s", userID, ticketID)
	if err := c.do(ctx, http.MethodGet, path, nil, "", &ticket); err != nil {
		return nil, err
	}
	return &ticket, nil
}

// HoldSeats reserves the selection on the server for the hold TTL.
func (c *Client) HoldSeats(ctx context.Context, eventID uuid.UUID, keys []string) (*Hold, error) {
	var hold Hold
	body := map[string][]string{"seats": keys}
	if err := c.do(ctx, http.MethodPost, "/api/events/"+eventID.String()+"/holds", body, "", &hold); err != nil {
		return nil, err
	}
	return &hold, nil
}

// do runs the request, retrying transport errors and 5xx answers with
// exponential backoff. 4xx answers are returned as *APIError at once.
func (c *Client) do(ctx context.Context, method, path string, body interface{}, idemKey string, out interface{}) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.backoff * time.Duration(1<<(attempt-1))
			if delay > maxBackoff {
				delay = maxBackoff
			}
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		retry, err := c.attempt(ctx, method, path, payload, idemKey, out)
		if err == nil {
			return nil
		}
		if !retry {
			return err
		}
		lastErr = err
	}

	return fmt.Errorf("%s %s failed after %d attempts: %w", method, path, c.maxRetries+1, lastErr)
}

func (c *Client) attempt(ctx context.Context, method, path string, payload []byte, idemKey string, out interface{}) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if idemKey != "" {
		req.Header.Set("Idempotency-Key", idemKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return true, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return true, fmt.Errorf("failed to read response: %w", err)
	}

	var env envelope
	decodeErr := json.Unmarshal(raw, &env)

	switch {
	case resp.StatusCode >= http.StatusInternalServerError:
		return true, fmt.Errorf("server error: %d", resp.StatusCode)
	case resp.StatusCode >= http.StatusBadRequest:
		if decodeErr != nil {
			return false, newAPIError(resp.StatusCode, nil)
		}
		return false, newAPIError(resp.StatusCode, &env)
	}

	if decodeErr != nil {
		return false, fmt.Errorf("failed to decode response: %w", decodeErr)
	}
	if out == nil || len(env.Data) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return false, fmt.Errorf("failed to decode response data: %w", err)
	}
	return false, nil
}
