package assistant

import (
	"errors"

	"github.com/glancelabs/glance/pkg/capture"
)

// Failure kinds surfaced to the UI layers. Everything Ask and the Runner
// return wraps one of these so callers can classify with errors.Is.
var (
	// ErrCaptureUnavailable aliases capture.ErrUnavailable so UI code can
	// classify capture failures without importing the capture package.
	ErrCaptureUnavailable = capture.ErrUnavailable

	// ErrCredentialMissing means no API key could be resolved for a provider
	// that requires one. Nothing was sent over the network.
	ErrCredentialMissing = errors.New("no API credential configured")

	// ErrCredentialInvalid means the provider rejected the API key.
	ErrCredentialInvalid = errors.New("API credential rejected")

	// ErrQuotaExceeded means the provider rate-limited the call or the
	// account is out of quota.
	ErrQuotaExceeded = errors.New("provider quota exceeded")

	// ErrTransport covers network failures, timeouts, and provider errors
	// that indicate neither a credential nor a quota problem.
	ErrTransport = errors.New("transport failure")

	// ErrBusy is returned by Runner.Submit while a request is in flight.
	ErrBusy = errors.New("a request is already in flight")
)
