package model

import (
	"net/http"
	"strings"

	"github.com/m-mizutani/goerr/v2"
)

var (
	ErrTagValidation    = goerr.NewTag("validation")
	ErrTagConfiguration = goerr.NewTag("configuration")
	ErrTagUpstreamAuth  = goerr.NewTag("upstream_auth")
	ErrTagUpstreamQuota = goerr.NewTag("upstream_quota")
)

var (
	ErrEmptyMessage       = goerr.New("message is empty", goerr.T(ErrTagValidation))
	ErrMissingCredential  = goerr.New("model provider credential is not configured", goerr.T(ErrTagConfiguration))
	ErrEmptyModelResponse = goerr.New("model returned empty text")
)

// ErrorKind is the user-facing class of a failed exchange.
type ErrorKind int

const (
	ErrorKindUpstreamUnknown ErrorKind = iota
	ErrorKindValidation
	ErrorKindConfiguration
	ErrorKindUpstreamAuth
	ErrorKindUpstreamQuota
)

func (k ErrorKind) String() string {
	switch k {
	case ErrorKindValidation:
		return "validation"
	case ErrorKindConfiguration:
		return "configuration"
	case ErrorKindUpstreamAuth:
		return "upstream_auth"
	case ErrorKindUpstreamQuota:
		return "upstream_quota"
	default:
		return "upstream_unknown"
	}
}

var tagKinds = []struct {
	has  func(error) bool
	kind ErrorKind
}{
	{func(err error) bool { return goerr.HasTag(err, ErrTagValidation) }, ErrorKindValidation},
	{func(err error) bool { return goerr.HasTag(err, ErrTagConfiguration) }, ErrorKindConfiguration},
	{func(err error) bool { return goerr.HasTag(err, ErrTagUpstreamAuth) }, ErrorKindUpstreamAuth},
	{func(err error) bool { return goerr.HasTag(err, ErrTagUpstreamQuota) }, ErrorKindUpstreamQuota},
}

// Substring rules applied to error messages that carry no tag. Auth markers
// are checked before quota markers.
var (
	authMarkers  = []string{"API_KEY", "401", "403", "PERMISSION_DENIED", "UNAUTHENTICATED"}
	quotaMarkers = []string{"429", "quota", "RATE_LIMIT", "RESOURCE_EXHAUSTED"}
)

// Classify maps an error from an exchange to its ErrorKind. Tags set by the
// provider adapters from structured status codes win; otherwise the message
// is matched against a fixed set of markers.
func Classify(err error) ErrorKind {
	if err == nil {
		return ErrorKindUpstreamUnknown
	}

	for _, tk := range tagKinds {
		if tk.has(err) {
			return tk.kind
		}
	}

	msg := err.Error()
	if containsAny(msg, authMarkers) {
		return ErrorKindUpstreamAuth
	}
	if containsAny(msg, quotaMarkers) {
		return ErrorKindUpstreamQuota
	}

	return ErrorKindUpstreamUnknown
}

// StatusTag returns the goerr option tagging an error with the kind of a
// provider HTTP status code, if any.
func StatusTag(code int) (goerr.Option, bool) {
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return goerr.T(ErrTagUpstreamAuth), true
	case http.StatusTooManyRequests:
		return goerr.T(ErrTagUpstreamQuota), true
	default:
		return nil, false
	}
}

func containsAny(s string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}
