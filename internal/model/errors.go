package model

import "errors"

// Kind names a class of enrollment failure. Every error returned by the
// enrollment core maps to exactly one Kind.
type Kind string

const (
	KindEventNotFound       Kind = "EventNotFound"
	KindRegistrationClosed  Kind = "RegistrationClosed"
	KindDuplicateEnrollment Kind = "DuplicateEnrollment"
	KindEventFull           Kind = "EventFull"
	KindInvalidTransition   Kind = "InvalidTransition"
	KindBusy                Kind = "Busy"
	KindStorageUnavailable  Kind = "StorageUnavailable"
	KindNotFound            Kind = "NotFound"
	KindInvalidInput        Kind = "InvalidInput"
)

var (
	ErrEventNotFound       = errors.New("event not found")
	ErrRegistrationClosed  = errors.New("registration is closed for this event")
	ErrDuplicateEnrollment = errors.New("email already enrolled for this event")
	ErrEventFull           = errors.New("event is full")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrBusy                = errors.New("event is busy, try again")
	ErrStorageUnavailable  = errors.New("storage unavailable")
	ErrNotFound            = errors.New("enrollment not found")
	ErrInvalidInput        = errors.New("invalid input")
)

var kinds = []struct {
	err  error
	kind Kind
}{
	{ErrEventNotFound, KindEventNotFound},
	{ErrRegistrationClosed, KindRegistrationClosed},
	{ErrDuplicateEnrollment, KindDuplicateEnrollment},
	{ErrEventFull, KindEventFull},
	{ErrInvalidTransition, KindInvalidTransition},
	{ErrBusy, KindBusy},
	{ErrNotFound, KindNotFound},
	{ErrInvalidInput, KindInvalidInput},
	{ErrStorageUnavailable, KindStorageUnavailable},
}

// KindOf classifies err. Errors that match no known sentinel are reported as
// StorageUnavailable. KindOf(nil) returns "".
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindStorageUnavailable
}

// Retryable reports whether the caller may safely retry the failed operation.
func Retryable(err error) bool {
	return KindOf(err) == KindBusy
}
