package acl

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/jsamuelsen/esoteric-daily/internal/adapters/clients"
)

// BaseAdapter holds what every HTTP provider adapter needs. Embed it.
type BaseAdapter struct {
	client   *clients.Client
	provider string
}

// NewBaseAdapter creates a base adapter for the named provider.
func NewBaseAdapter(client *clients.Client, provider string) BaseAdapter {
	return BaseAdapter{client: client, provider: provider}
}

// Provider returns the provider name used in errors and health output.
func (a *BaseAdapter) Provider() string {
	return a.provider
}

// Get sends a GET and returns the 2xx response. The caller closes the body.
// Any failure is a domain.ProviderError.
func (a *BaseAdapter) Get(ctx context.Context, path, operation string) (*http.Response, error) {
	resp, err := a.client.Get(ctx, path)

	return a.check(resp, err, operation)
}

// Post sends a JSON POST of payload and returns the 2xx response.
func (a *BaseAdapter) Post(ctx context.Context, path string, payload any, operation string) (*http.Response, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding %s request: %w", operation, err)
	}

	resp, err := a.client.Post(ctx, path, bytes.NewReader(body))

	return a.check(resp, err, operation)
}

func (a *BaseAdapter) check(resp *http.Response, err error, operation string) (*http.Response, error) {
	if err != nil {
		return nil, MapHTTPError(nil, err, a.provider, operation)
	}

	if resp.StatusCode >= http.StatusMultipleChoices {
		defer func() { _ = resp.Body.Close() }()

		return nil, MapHTTPError(resp, nil, a.provider, operation)
	}

	return resp, nil
}

// DecodeResponse decodes a JSON body into T and closes it.
func DecodeResponse[T any](body io.ReadCloser) (*T, error) {
	if body == nil {
		return nil, errors.New("response body is nil")
	}
	defer func() { _ = body.Close() }()

	var result T
	if err := json.NewDecoder(body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	return &result, nil
}
