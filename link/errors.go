package link

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrorKind is the closed taxonomy of classified connection failures.
type ErrorKind int

const (
	// KindUnknown is any failure without a specific classification rule.
	KindUnknown ErrorKind = iota
	// KindInterfaceClaimed means another session holds exclusive access to
	// the device.
	KindInterfaceClaimed
)

func (k ErrorKind) String() string {
	if k == KindInterfaceClaimed {
		return "interface claimed"
	}
	return "unknown"
}

// rawInterfaceClaimed is the exact message the transport produces when the
// device interface is held by another session.
const rawInterfaceClaimed = "Unable to claim interface."

const msgInterfaceClaimed = "Another application is connected to the device. " +
	"Close other programs or browser tabs using it and try again."

// ConnError is a classified connection failure. Every error that crosses
// the transport boundary is surfaced as exactly one of these.
type ConnError struct {
	Kind    ErrorKind
	Message string
	cause   error
}

func (e *ConnError) Error() string { return e.Message }

func (e *ConnError) Unwrap() error { return e.cause }

// NotSupportedError means the host has no USB access capability. It is a
// distinct type from ConnError: there is no transport to classify.
type NotSupportedError struct{}

func (*NotSupportedError) Error() string {
	return "USB access is not supported on this host"
}

// DataSourceError wraps a failure to retrieve the firmware payload.
type DataSourceError struct {
	cause error
}

func (e *DataSourceError) Error() string {
	return fmt.Sprintf("could not retrieve firmware payload: %v", e.cause)
}

func (e *DataSourceError) Unwrap() error { return e.cause }

// FlashError wraps a driver-level flashing failure.
type FlashError struct {
	Partial bool
	cause   error
}

func (e *FlashError) Error() string {
	op := "full flash"
	if e.Partial {
		op = "partial flash"
	}
	return fmt.Sprintf("%s failed: %v", op, e.cause)
}

func (e *FlashError) Unwrap() error { return e.cause }

// Classify maps a raw transport or driver failure onto the closed error
// taxonomy. Already-classified errors pass through untouched so a failure
// is never classified twice. Unmatched messages keep their original text
// under KindUnknown.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var ce *ConnError
	if errors.As(err, &ce) {
		return ce
	}
	var nse *NotSupportedError
	if errors.As(err, &nse) {
		return nse
	}
	if errors.Cause(err).Error() == rawInterfaceClaimed {
		return &ConnError{
			Kind:    KindInterfaceClaimed,
			Message: msgInterfaceClaimed,
			cause:   err,
		}
	}
	return &ConnError{
		Kind:    KindUnknown,
		Message: err.Error(),
		cause:   err,
	}
}
