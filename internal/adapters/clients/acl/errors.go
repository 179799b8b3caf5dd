package acl

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/jsamuelsen/esoteric-daily/internal/adapters/clients"
	"github.com/jsamuelsen/esoteric-daily/internal/domain"
)

// ErrEmptyResponse is the cause recorded when a provider answers with
// nothing usable.
var ErrEmptyResponse = errors.New("empty response")

// ErrorResponse is the error body of an oracle service. Both the nested
// {"error":{...}} and the flat {"code","message"} shapes are accepted.
type ErrorResponse struct {
	Error   ErrorDetail `json:"error"`
	Code    string      `json:"code,omitempty"`
	Message string      `json:"message,omitempty"`
}

// ErrorDetail is the nested error object.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// GetCode returns the nested code if present, else the flat one.
func (e *ErrorResponse) GetCode() string {
	if e.Error.Code != "" {
		return e.Error.Code
	}

	return e.Code
}

// GetMessage returns the nested message if present, else the flat one.
func (e *ErrorResponse) GetMessage() string {
	if e.Error.Message != "" {
		return e.Error.Message
	}

	return e.Message
}

// ParseErrorResponse decodes an error body. It returns nil for empty or
// unparseable bodies.
func ParseErrorResponse(body io.Reader) *ErrorResponse {
	if body == nil {
		return nil
	}

	var errResp ErrorResponse
	if err := json.NewDecoder(body).Decode(&errResp); err != nil {
		return nil
	}

	if errResp.GetCode() == "" && errResp.GetMessage() == "" {
		return nil
	}

	return &errResp
}

// MapHTTPError turns a failed provider call into a domain.ProviderError.
// clientErr is the transport error, if any; otherwise resp must be a
// non-2xx response. The cause is a domain.UnavailableError when the
// provider could not be reached or is overloaded, so callers can tell
// "try later" apart from "the request was rejected".
func MapHTTPError(resp *http.Response, clientErr error, provider, operation string) error {
	if clientErr != nil {
		return domain.NewProviderError(provider, operation, mapClientError(clientErr, provider))
	}

	if resp == nil {
		return domain.NewProviderError(provider, operation,
			domain.NewUnavailableError(provider, "no response received"))
	}

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		return nil
	}

	return domain.NewProviderError(provider, operation, mapStatusCode(resp, provider))
}

func mapClientError(err error, provider string) error {
	switch {
	case errors.Is(err, clients.ErrCircuitOpen):
		return domain.NewUnavailableError(provider, "circuit breaker open")
	case errors.Is(err, clients.ErrMaxRetriesExceeded):
		return domain.NewUnavailableError(provider, "max retries exceeded")
	default:
		return err
	}
}

func mapStatusCode(resp *http.Response, provider string) error {
	message := fmt.Sprintf("HTTP %d", resp.StatusCode)
	if errResp := ParseErrorResponse(resp.Body); errResp != nil {
		message = fmt.Sprintf("HTTP %d: %s", resp.StatusCode, errResp.GetMessage())
	}

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return domain.NewUnavailableError(provider, "rate limit exceeded")
	case resp.StatusCode >= http.StatusInternalServerError:
		return domain.NewUnavailableError(provider, message)
	default:
		return errors.New(message)
	}
}
