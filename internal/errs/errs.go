// Package errs defines the server's error taxonomy: one wrapper type per
// pipeline stage (lexing, parsing, type-checking, execution, conversion,
// transport, WAL), each capturing a stack trace at construction time so
// that a log line or pgwire error response can report where a failure
// actually originated rather than just where it surfaced.
package errs

import (
	"fmt"
	"runtime/debug"
)

// Kind identifies which stage produced an error, independent of its Go
// type — useful for request-channel payloads that can't carry a typed
// error across a goroutine boundary cheaply.
type Kind int

const (
	KindLexing Kind = iota
	KindParsing
	KindType
	KindExecute
	KindInto
	KindServer
	KindWAL
)

func (k Kind) String() string {
	switch k {
	case KindLexing:
		return "LexingError"
	case KindParsing:
		return "ParsingError"
	case KindType:
		return "TypeError"
	case KindExecute:
		return "ExecuteError"
	case KindInto:
		return "IntoError"
	case KindServer:
		return "ServerError"
	case KindWAL:
		return "WALError"
	default:
		return "Error"
	}
}

// StageError wraps an inner error with the stage that raised it and the
// stack trace captured at the moment it was raised.
type StageError struct {
	Kind    Kind
	Message string
	Inner   error
	Stack   string
}

func newStageError(k Kind, message string, inner error) *StageError {
	return &StageError{
		Kind:    k,
		Message: message,
		Inner:   inner,
		Stack:   string(debug.Stack()),
	}
}

func (e *StageError) Error() string {
	if e.Inner != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Inner)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *StageError) Unwrap() error { return e.Inner }

func NewLexingError(message string, inner error) *StageError {
	return newStageError(KindLexing, message, inner)
}

func NewParsingError(message string, inner error) *StageError {
	return newStageError(KindParsing, message, inner)
}

func NewTypeError(message string, inner error) *StageError {
	return newStageError(KindType, message, inner)
}

func NewExecuteError(message string, inner error) *StageError {
	return newStageError(KindExecute, message, inner)
}

func NewIntoError(message string, inner error) *StageError {
	return newStageError(KindInto, message, inner)
}

func NewServerError(message string, inner error) *StageError {
	return newStageError(KindServer, message, inner)
}

func NewWALError(message string, inner error) *StageError {
	return newStageError(KindWAL, message, inner)
}

// RequestError is the minimal {Kind,Message} payload a frontend request
// channel carries across the executor-goroutine boundary: cheap to copy,
// no stack trace, reconstructed into a StageError at the caller if needed.
type RequestError struct {
	Kind    Kind
	Message string
}

func (e RequestError) Error() string { return fmt.Sprintf("%s: %s", e.Kind, e.Message) }

// ToRequestError strips a StageError down to its wire-cheap form.
func ToRequestError(err error) RequestError {
	if se, ok := err.(*StageError); ok {
		return RequestError{Kind: se.Kind, Message: se.Message}
	}
	return RequestError{Kind: KindServer, Message: err.Error()}
}
