package services

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"google.golang.org/api/googleapi"
)

// ErrEmptyResponse is returned when the provider answers without usable text
var ErrEmptyResponse = errors.New("provider returned no text")

// OutcomeKind tags the result of one provider call
type OutcomeKind int

const (
	OutcomeSuccess OutcomeKind = iota
	OutcomeEmpty
	OutcomeThrottled
	OutcomeQuotaExhausted
	OutcomeFailed
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeSuccess:
		return "success"
	case OutcomeEmpty:
		return "empty"
	case OutcomeThrottled:
		return "throttled"
	case OutcomeQuotaExhausted:
		return "quota_exhausted"
	case OutcomeFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Transient reports whether the provider is expected to recover on its own
func (k OutcomeKind) Transient() bool {
	return k == OutcomeThrottled || k == OutcomeQuotaExhausted
}

// Outcome is the result of one call layer: either usable text or a classified failure
type Outcome struct {
	Kind OutcomeKind
	Text string
	Err  error
}

// OK reports whether the outcome carries usable text
func (o Outcome) OK() bool {
	return o.Kind == OutcomeSuccess
}

// NewOutcome classifies a provider reply
func NewOutcome(text string, err error) Outcome {
	if err != nil {
		return Outcome{Kind: classifyError(err), Err: err}
	}
	if strings.TrimSpace(text) == "" {
		return Outcome{Kind: OutcomeEmpty, Err: ErrEmptyResponse}
	}
	return Outcome{Kind: OutcomeSuccess, Text: text}
}

// StatusError is returned by REST calls that got a non-2xx answer
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("provider API returned status %d: %s", e.StatusCode, e.Body)
}

func classifyError(err error) OutcomeKind {
	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusTooManyRequests {
		return OutcomeThrottled
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
		return OutcomeThrottled
	}

	msg := err.Error()
	if strings.Contains(msg, "429") {
		return OutcomeThrottled
	}
	if strings.Contains(strings.ToLower(msg), "quota") {
		return OutcomeQuotaExhausted
	}
	return OutcomeFailed
}
