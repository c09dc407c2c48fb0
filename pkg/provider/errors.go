package provider

import (
	"errors"
	"fmt"
	"net/url"
)

var (
	// ErrTransport matches any *TransportError via errors.Is.
	ErrTransport = errors.New("provider transport error")
	// ErrEnvelope matches any *EnvelopeError via errors.Is.
	ErrEnvelope = errors.New("provider response format error")
)

// TransportError reports a network failure or a non-2xx response.
type TransportError struct {
	Provider Name
	// StatusCode is 0 when no response was received.
	StatusCode int
	// Body is the start of the error response, if any.
	Body string
	Err  error
}

func (e *TransportError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s request failed: %v", e.Provider, e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s API error (status %d): %v", e.Provider, e.StatusCode, e.Err)
	}
	if e.Body != "" {
		return fmt.Sprintf("%s API error (status %d): %s", e.Provider, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("%s API error (status %d)", e.Provider, e.StatusCode)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// Is makes errors.Is(err, ErrTransport) work.
func (e *TransportError) Is(target error) bool {
	return target == ErrTransport
}

// EnvelopeError reports a 2xx response without the expected text field.
type EnvelopeError struct {
	Provider Name
	// Path is the field that was expected, e.g. "choices.0.message.content".
	Path   string
	Reason string
}

func (e *EnvelopeError) Error() string {
	return fmt.Sprintf("%s response format error: %s (%s)", e.Provider, e.Reason, e.Path)
}

// Is makes errors.Is(err, ErrEnvelope) work.
func (e *EnvelopeError) Is(target error) bool {
	return target == ErrEnvelope
}

// redactError hides the query-string key in *url.Error values, which embed
// the full request URL in their message.
func redactError(err error) error {
	var ue *url.Error
	if !errors.As(err, &ue) {
		return err
	}
	return &url.Error{Op: ue.Op, URL: redactURL(ue.URL), Err: ue.Err}
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	if q.Has("key") {
		q.Set("key", "REDACTED")
		u.RawQuery = q.Encode()
	}
	return u.String()
}
