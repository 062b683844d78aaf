package domain

import (
	"context"
	"encoding/json"
	"errors"
	"net"
)

// Selector names the model (hosted inference) or endpoint (conversational
// service) an inference call goes to.
type Selector string

// FailureKind is the bounded set of ways an inference call can degrade.
type FailureKind string

const (
	FailureNone        FailureKind = ""
	FailureDisabled    FailureKind = "disabled"
	FailureUnavailable FailureKind = "unavailable"
	FailureTimeout     FailureKind = "timeout"
	FailureNetwork     FailureKind = "network"
	FailureMalformed   FailureKind = "malformed"
)

// EmptyReply is returned when a backend answered without any usable text.
const EmptyReply = "…"

// InferenceResult is either Text (Failure == FailureNone) or a failure kind.
type InferenceResult struct {
	Text    string
	Failure FailureKind
}

// OK reports whether the call produced text.
func (r InferenceResult) OK() bool {
	return r.Failure == FailureNone
}

// Failed builds a failed InferenceResult.
func Failed(kind FailureKind) InferenceResult {
	return InferenceResult{Failure: kind}
}

type httpStatusCoder interface {
	HTTPStatusCode() int
}

// ClassifyFailure maps a transport or upstream error onto a FailureKind.
func ClassifyFailure(err error) FailureKind {
	if err == nil {
		return FailureNone
	}
	var statusErr httpStatusCoder
	if errors.As(err, &statusErr) {
		return FailureUnavailable
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return FailureMalformed
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return FailureTimeout
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return FailureTimeout
	}
	return FailureNetwork
}
