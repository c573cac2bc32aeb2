package stream

import "errors"

// Transport outcomes. Transports wrap these so the reducer can classify them.
var (
	// ErrConnect means the stream was never established.
	ErrConnect = errors.New("stream: connection not established")
	// ErrInterrupted means the stream closed abnormally after it was open.
	ErrInterrupted = errors.New("stream: connection interrupted")
	// ErrClosed means the stream closed normally.
	ErrClosed = errors.New("stream: closed")
)

// User-visible messages for the error slot.
const (
	MsgConnectFailed   = "Failed to establish connection"
	MsgConnectionError = "Connection error occurred"
	MsgCancelled       = "Request was cancelled"
)
