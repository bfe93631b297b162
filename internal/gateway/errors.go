package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"syscall"
)

// ErrEmptySymbol is returned for operations called without a symbol.
var ErrEmptySymbol = errors.New("empty symbol")

// Reason classifies a gateway failure.
type Reason int

const (
	ReasonUnknown Reason = iota
	ReasonNetwork
	ReasonRateLimited
	ReasonInvalidSymbol
)

func (r Reason) String() string {
	switch r {
	case ReasonNetwork:
		return "network"
	case ReasonRateLimited:
		return "rate_limited"
	case ReasonInvalidSymbol:
		return "invalid_symbol"
	default:
		return "unknown"
	}
}

// MarshalText encodes the reason by name so JSON payloads stay readable.
func (r Reason) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText decodes a reason name. Unrecognised names map to
// ReasonUnknown.
func (r *Reason) UnmarshalText(b []byte) error {
	switch string(b) {
	case "network":
		*r = ReasonNetwork
	case "rate_limited":
		*r = ReasonRateLimited
	case "invalid_symbol":
		*r = ReasonInvalidSymbol
	default:
		*r = ReasonUnknown
	}
	return nil
}

// Failure is the typed error returned by gateway implementations.
type Failure struct {
	Op     string
	Symbol string
	Reason Reason
	Err    error
}

func (f *Failure) Error() string {
	var b strings.Builder
	b.WriteString(f.Op)
	if f.Symbol != "" {
		b.WriteString(" ")
		b.WriteString(f.Symbol)
	}
	b.WriteString(": ")
	b.WriteString(f.Reason.String())
	if f.Err != nil {
		b.WriteString(": ")
		b.WriteString(f.Err.Error())
	}
	return b.String()
}

func (f *Failure) Unwrap() error { return f.Err }

// Fail builds a *Failure. When reason is ReasonUnknown the reason is derived
// from err.
func Fail(op, symbol string, reason Reason, err error) *Failure {
	if reason == ReasonUnknown {
		reason = ReasonOf(err)
	}
	return &Failure{Op: op, Symbol: symbol, Reason: reason, Err: err}
}

// ReasonOf classifies err. A wrapped *Failure keeps its reason, a wrapped
// *StatusErr is mapped with ReasonFromStatus, and context, network and
// transport errors are ReasonNetwork. Error text is never inspected.
func ReasonOf(err error) Reason {
	if err == nil {
		return ReasonUnknown
	}
	var f *Failure
	if errors.As(err, &f) {
		return f.Reason
	}
	var se *StatusErr
	if errors.As(err, &se) {
		return ReasonFromStatus(se.Code)
	}
	if errors.Is(err, ErrEmptySymbol) {
		return ReasonInvalidSymbol
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return ReasonNetwork
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return ReasonNetwork
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return ReasonNetwork
	}
	return ReasonUnknown
}

// ReasonFromStatus maps an HTTP status code to a Reason.
func ReasonFromStatus(code int) Reason {
	switch {
	case code == http.StatusTooManyRequests:
		return ReasonRateLimited
	case code == http.StatusNotFound, code == http.StatusUnprocessableEntity:
		return ReasonInvalidSymbol
	case code == http.StatusRequestTimeout, code >= 500:
		return ReasonNetwork
	default:
		return ReasonUnknown
	}
}

// StatusErr is a non-2xx upstream response.
type StatusErr struct {
	Code int
	Body string
}

func (e *StatusErr) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("status %d", e.Code)
	}
	return fmt.Sprintf("status %d: %s", e.Code, e.Body)
}

// StatusError builds the error returned for a non-2xx upstream response. The
// body is trimmed to 200 bytes.
func StatusError(code int, body string) error {
	body = strings.TrimSpace(body)
	if len(body) > 200 {
		body = body[:200]
	}
	return &StatusErr{Code: code, Body: body}
}

// IsRetryable reports whether err is worth retrying: only network-class
// failures are.
func IsRetryable(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	return ReasonOf(err) == ReasonNetwork
}
