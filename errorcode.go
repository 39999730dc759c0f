package http2

import (
	"errors"
	"fmt"
)

// ErrorCode defines the error codes a RST_STREAM or GOAWAY frame can carry.
//
// https://tools.ietf.org/html/rfc7540#section-7
type ErrorCode uint32

const (
	NoError              ErrorCode = 0x0
	ProtocolError        ErrorCode = 0x1
	InternalError        ErrorCode = 0x2
	FlowControlError     ErrorCode = 0x3
	SettingsTimeoutError ErrorCode = 0x4
	StreamClosedError    ErrorCode = 0x5
	FrameSizeError       ErrorCode = 0x6
	RefusedStreamError   ErrorCode = 0x7
	StreamCanceled       ErrorCode = 0x8
	CompressionError     ErrorCode = 0x9
	ConnectionError      ErrorCode = 0xa
	EnhanceYourCalm      ErrorCode = 0xb
	InadequateSecurity   ErrorCode = 0xc
	HTTP11Required       ErrorCode = 0xd
)

func (ec ErrorCode) String() string {
	switch ec {
	case NoError:
		return "NoError"
	case ProtocolError:
		return "ProtocolError"
	case InternalError:
		return "InternalError"
	case FlowControlError:
		return "FlowControlError"
	case SettingsTimeoutError:
		return "SettingsTimeout"
	case StreamClosedError:
		return "StreamClosed"
	case FrameSizeError:
		return "FrameSizeError"
	case RefusedStreamError:
		return "RefusedStream"
	case StreamCanceled:
		return "StreamCanceled"
	case CompressionError:
		return "CompressionError"
	case ConnectionError:
		return "ConnectionError"
	case EnhanceYourCalm:
		return "EnhanceYourCalm"
	case InadequateSecurity:
		return "InadequateSecurity"
	case HTTP11Required:
		return "HTTP11Required"
	}

	return "Unknown"
}

// Error is the error type the stream layer returns. It pairs an ErrorCode
// with optional debug data the same way RST_STREAM and GOAWAY do on the wire.
type Error struct {
	code  ErrorCode
	debug string
}

// NewError creates a new Error.
func NewError(code ErrorCode, debug string) Error {
	return Error{
		code:  code,
		debug: debug,
	}
}

// Code returns the error code.
func (e Error) Code() ErrorCode {
	return e.code
}

// Debug returns the debug data attached to the error, if any.
func (e Error) Debug() string {
	return e.debug
}

func (e Error) Error() string {
	if e.debug == "" {
		return e.code.String()
	}

	return fmt.Sprintf("%s: %s", e.code, e.debug)
}

// Is makes two Errors match on their code regardless of the debug data,
// so callers can do errors.Is(err, NewError(ProtocolError, "")).
func (e Error) Is(target error) bool {
	var other Error
	if !errors.As(target, &other) {
		return false
	}

	return e.code == other.code
}

var (
	ErrUnknowFrameType = errors.New("unknown frame type")
	ErrMissingBytes    = errors.New("missing payload bytes")
	ErrPayloadExceeds  = errors.New("frame payload exceeds the negotiated maximum size")
	ErrPadLength       = errors.New("padding greater than the payload length")
)
