package wholesalemarket

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/kilianp07/derval/auth"
	"github.com/kilianp07/derval/connectors"
)

// DefaultBaseURL is the public power exchange price endpoint.
const DefaultBaseURL = "https://digital.iservices.rte-france.com/open_api/wholesale_market/v2/france_power_exchanges"

type Client struct {
	baseURL string
	auth    *auth.ClientCred
	http    *http.Client
}

// NewClient creates a client for the default endpoint.
func NewClient() *Client {
	return &Client{baseURL: DefaultBaseURL, http: &http.Client{Timeout: 30 * time.Second}}
}

// Fetch retrieves the exchange prices between start and end.
//
// Errors:
//   - an option does not apply to this client
//   - the request cannot be built or sent, or the token cannot be obtained
//   - the response status code is not 200 OK
//   - the response body cannot be read or decoded
func (w *Client) Fetch(ctx context.Context, start, end time.Time, opts ...connectors.Option) (connectors.PriceResponse, error) {
	for _, opt := range opts {
		if err := opt(w); err != nil {
			return nil, err
		}
	}
	if !end.After(start) {
		return nil, fmt.Errorf("empty date range %s - %s", start.Format(time.RFC3339), end.Format(time.RFC3339))
	}

	q := url.Values{}
	q.Set("start_date", start.Format(time.RFC3339))
	q.Set("end_date", end.Format(time.RFC3339))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, w.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if w.auth != nil {
		if err := w.auth.SetAuthHeader(req); err != nil {
			return nil, fmt.Errorf("failed to set auth header: %w", err)
		}
	}

	resp, err := w.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, body)
	}
	var marketResponse Response
	if err := json.Unmarshal(body, &marketResponse); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}
	return &marketResponse, nil
}

func WithBaseURL(u string) connectors.Option {
	return func(c connectors.PriceClient) error {
		if w, ok := c.(*Client); ok {
			w.baseURL = u
			return nil
		}
		return fmt.Errorf(connectors.ErrIncompatibleOption, "WithBaseURL", "wholesale_market")
	}
}

func WithAuth(a *auth.ClientCred) connectors.Option {
	return func(c connectors.PriceClient) error {
		if w, ok := c.(*Client); ok {
			w.auth = a
			return nil
		}
		return fmt.Errorf(connectors.ErrIncompatibleOption, "WithAuth", "wholesale_market")
	}
}

func WithHTTPClient(h *http.Client) connectors.Option {
	return func(c connectors.PriceClient) error {
		if w, ok := c.(*Client); ok {
			w.http = h
			return nil
		}
		return fmt.Errorf(connectors.ErrIncompatibleOption, "WithHTTPClient", "wholesale_market")
	}
}
