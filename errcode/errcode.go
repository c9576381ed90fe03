package errcode

import (
	"context"
	"errors"

	"lsm9ds1-go/drivers/lsm9ds1"
	"lsm9ds1-go/drivers/lsm9ds1/hostbus"
)

// Code is a stable, wire-facing error identifier.
// It is a string newtype, comparable, allocation-free, and implements error.
type Code string

func (c Code) Error() string { return string(c) }

// Canonical codes (short, stable).
const (
	OK             Code = "ok"
	InvalidParams  Code = "invalid_params"
	InvalidPayload Code = "invalid_payload"
	UnknownAction  Code = "unknown_action"
	UnknownField   Code = "unknown_field"
	OutOfRange     Code = "out_of_range"
	NotReady       Code = "not_ready"

	UnknownBus  Code = "unknown_bus"
	UnknownPin  Code = "unknown_pin"
	Transport   Code = "transport"
	TransferLen Code = "transfer_too_long"
	Timeout     Code = "timeout"

	Error Code = "error" // generic fallback
)

// Optional wrapper when we want to keep context and a cause.
type E struct {
	C   Code
	Op  string
	Msg string
	Err error
}

func (e *E) Error() string {
	s := string(e.C)
	if e.Msg != "" {
		s += ": " + e.Msg
	}
	if e.Op != "" {
		s = e.Op + ": " + s
	}
	return s
}
func (e *E) Unwrap() error { return e.Err }
func (e *E) Code() Code    { return e.C }

// Of extracts a Code from an error, defaulting to Error.
func Of(err error) Code {
	if err == nil {
		return OK
	}
	if c, ok := err.(Code); ok {
		return c
	}
	type coder interface{ Code() Code }
	if x, ok := err.(coder); ok {
		return x.Code()
	}
	return Error
}

// MapDriverErr maps driver and host-bus errors to a Code. Anything the
// driver does not recognise came from the transport.
func MapDriverErr(err error) Code {
	switch {
	case err == nil:
		return OK
	case errors.Is(err, lsm9ds1.ErrBurstTooLong):
		return TransferLen
	case errors.Is(err, hostbus.ErrUnknownInterface):
		return UnknownBus
	case errors.Is(err, hostbus.ErrPinNotFound):
		return UnknownPin
	case errors.Is(err, context.DeadlineExceeded):
		return Timeout
	}
	if c := Of(err); c != Error {
		return c
	}
	return Transport
}
