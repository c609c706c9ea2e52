package domain

import "errors"

// BookingErrorKind classifies why a booking attempt did not produce a ticket.
type BookingErrorKind string

const (
	KindProfileMissing     BookingErrorKind = "profile_missing"
	KindCaptchaExhausted   BookingErrorKind = "captcha_exhausted"
	KindRouteUnavailable   BookingErrorKind = "route_unavailable"
	KindServiceSoldOut     BookingErrorKind = "service_sold_out"
	KindPortalLayoutDrift  BookingErrorKind = "portal_layout_drift"
	KindNetworkOrDriver    BookingErrorKind = "network_or_driver"
	KindPortalRejected     BookingErrorKind = "portal_rejected"
	KindInteractiveExpired BookingErrorKind = "session_expired"
	KindTooManySessions    BookingErrorKind = "too_many_sessions"
)

// BookingError is the single error shape that leaves a booking attempt.
type BookingError struct {
	Kind BookingErrorKind
	Msg  string
	Err  error
}

func (e *BookingError) Error() string {
	msg := string(e.Kind)
	if e.Msg != "" {
		msg += ": " + e.Msg
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *BookingError) Unwrap() error { return e.Err }

// Fatal reports whether retrying can never help.
func (e *BookingError) Fatal() bool {
	return e.Kind == KindProfileMissing
}

func NewBookingError(kind BookingErrorKind, msg string, err error) *BookingError {
	return &BookingError{Kind: kind, Msg: msg, Err: err}
}

// BookingKind extracts the kind of a booking error, or "" when err is not one.
func BookingKind(err error) BookingErrorKind {
	var be *BookingError
	if errors.As(err, &be) {
		return be.Kind
	}
	return ""
}

// IsFatalBooking reports whether err carries a non-retryable booking kind.
func IsFatalBooking(err error) bool {
	var be *BookingError
	return errors.As(err, &be) && be.Fatal()
}
