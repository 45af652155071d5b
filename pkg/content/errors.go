package content

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// ErrorKind classifies a failed provider operation.
type ErrorKind string

const (
	KindParse        ErrorKind = "parse"
	KindShape        ErrorKind = "shape"
	KindQuota        ErrorKind = "quota"
	KindTimeout      ErrorKind = "timeout"
	KindTransport    ErrorKind = "transport"
	KindServerConfig ErrorKind = "server_config"
)

// Retryable reports whether resending the request could succeed. Credential
// problems on the server side cannot be fixed by the player.
func (k ErrorKind) Retryable() bool {
	return k != KindServerConfig
}

// Op names the provider operation that failed.
type Op string

const (
	OpOutline      Op = "outline"
	OpWorld        Op = "world"
	OpSegment      Op = "segment"
	OpCustomAction Op = "custom_action"
	OpFeasibility  Op = "feasibility"
	OpExamine      Op = "examine"
	OpImage        Op = "image"
	OpRepair       Op = "repair"
)

// Error is the typed failure returned by every Client operation.
type Error struct {
	Kind    ErrorKind
	Op      Op
	Message string
	// RawText is the provider output that failed to parse or validate.
	RawText string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	return fmt.Sprintf("%s %s: %s", e.Op, e.Kind, msg)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the kind of a content error, or KindTransport for any
// other non-nil error.
func KindOf(err error) ErrorKind {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Kind
	}
	return KindTransport
}

// Error codes carried by ProviderError. The proxy server sends them in its
// error bodies.
const (
	CodeQuotaExceeded       = "QUOTA_EXCEEDED"
	CodeServerConfiguration = "SERVER_CONFIGURATION"
	CodeTimeout             = "TIMEOUT"
	CodeBadRequest          = "BAD_REQUEST"
	CodeUpstream            = "UPSTREAM_ERROR"
	// CodeRateLimited is the proxy's own per-client throttle. It is a
	// transient failure, not a provider quota.
	CodeRateLimited = "RATE_LIMITED"
)

// ProviderError is a non-success answer from a provider or the proxy.
type ProviderError struct {
	Status  int
	Code    string
	Message string
}

func (e *ProviderError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("provider returned %d (%s): %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("provider returned %d: %s", e.Status, e.Message)
}

// Classify maps a transport or provider error onto the failure taxonomy.
// Errors that are already *Error pass through untouched.
func Classify(op Op, err error) error {
	if err == nil {
		return nil
	}
	var ce *Error
	if errors.As(err, &ce) {
		return err
	}
	return &Error{Kind: classifyKind(err), Op: op, Message: err.Error(), Err: err}
}

func classifyKind(err error) ErrorKind {
	if errors.Is(err, context.DeadlineExceeded) {
		return KindTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return KindTimeout
	}

	var pe *ProviderError
	if errors.As(err, &pe) {
		switch pe.Code {
		case CodeQuotaExceeded:
			return KindQuota
		case CodeServerConfiguration:
			return KindServerConfig
		case CodeTimeout:
			return KindTimeout
		case CodeRateLimited:
			return KindTransport
		}
		switch pe.Status {
		case http.StatusTooManyRequests:
			return KindQuota
		case http.StatusUnauthorized, http.StatusForbidden:
			return KindServerConfig
		case http.StatusGatewayTimeout:
			return KindTimeout
		}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "quota"), strings.Contains(msg, "resource_exhausted"), strings.Contains(msg, "rate limit"):
		return KindQuota
	case strings.Contains(msg, "api key"), strings.Contains(msg, "permission_denied"), strings.Contains(msg, "unauthenticated"):
		return KindServerConfig
	}
	return KindTransport
}
