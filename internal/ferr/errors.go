// Package ferr defines the error taxonomy shared across fnord's core
// components. Each kind is a sentinel wrapped with fmt.Errorf("%w: ...") at
// the call site, so callers use errors.Is/errors.As against the sentinels
// below rather than string matching.
package ferr

import "errors"

// Sentinel kinds. Wrap with fmt.Errorf("%w: detail", KindX) at the call site.
var (
	// ConfigError: missing/invalid settings, missing API key, invalid
	// transport for a remote tool server.
	ConfigError = errors.New("config error")

	// LockError: settings lock timeout or corrupt lock.
	LockError = errors.New("lock error")

	// IndexError: per-entry derivatives failure, embedding failure.
	IndexError = errors.New("index error")

	// ToolArgError: validation failure in read_args. Surfaced to the model
	// as a tool message so it can self-correct.
	ToolArgError = errors.New("tool argument error")

	// ToolCallError: runtime failure during call (I/O, timeout, non-zero
	// exit). Surfaced to the model.
	ToolCallError = errors.New("tool call error")

	// ApprovalDenied: human or policy-level denial.
	ApprovalDenied = errors.New("approval denied")

	// TransportError: connection closed, DNS failure, timeout against an
	// LLM or remote tool server.
	TransportError = errors.New("transport error")

	// ModelError: the model returned a parse-incompatible response.
	ModelError = errors.New("model error")

	// Fatal: an uncaught panic in a worker, recovered and surfaced.
	Fatal = errors.New("fatal error")
)

// Is reports whether err wraps kind, via errors.Is.
func Is(err, kind error) bool {
	return errors.Is(err, kind)
}

// Retryable classifies a TransportError/ModelError as retryable. Kinds other
// than those two are never retryable.
func Retryable(err error) bool {
	if errors.Is(err, TransportError) {
		var te *TransportFailure
		if errors.As(err, &te) {
			return te.Fatal == false
		}
		return true
	}
	if errors.Is(err, ModelError) {
		return true
	}
	return false
}

// TransportFailure carries richer detail for a TransportError, distinguishing
// retryable connection hiccups from fatal ones (e.g. auth failures).
type TransportFailure struct {
	Server string
	Fatal  bool
	Cause  error
}

func (e *TransportFailure) Error() string {
	if e.Server != "" {
		return "transport error (" + e.Server + "): " + e.Cause.Error()
	}
	return "transport error: " + e.Cause.Error()
}

func (e *TransportFailure) Unwrap() error {
	return TransportError
}

// ApprovalDenial carries the reason a shell pipeline or edit was denied,
// either a canned policy reason or free-form user feedback.
type ApprovalDenial struct {
	Reason   string
	Feedback string
}

func (e *ApprovalDenial) Error() string {
	if e.Feedback != "" {
		return "approval denied: " + e.Reason + " (" + e.Feedback + ")"
	}
	return "approval denied: " + e.Reason
}

func (e *ApprovalDenial) Unwrap() error {
	return ApprovalDenied
}
