package orchestrator

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed Run per spec.md §7's taxonomy, so transport
// adapters can map it to an exit code (400/404/500) without string-matching.
type ErrorKind string

const (
	KindFormat      ErrorKind = "format"      // bad event envelope, unknown content_type, invalid memory key
	KindRouting     ErrorKind = "routing"     // no default flow, no flow matched (only when no fallback applies)
	KindStorage     ErrorKind = "storage"     // backend-surfaced, includes storage.PartialError
	KindCrypto      ErrorKind = "crypto"      // seal/open failure
	KindInterpreter ErrorKind = "interpreter" // surfaced from the interpreter collaborator
)

// Error is the orchestrator's wrapped error type; Unwrap exposes the
// underlying cause for errors.Is/As against storage/crypto/router sentinels.
type Error struct {
	Kind ErrorKind
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("orchestrator: %s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func wrap(kind ErrorKind, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Err: err}
}

// ErrUnknownContentType is a FormatError: the event names a content_type the
// core doesn't recognize.
var ErrUnknownContentType = errors.New("orchestrator: unknown content_type")

// ErrInvalidMemoryKey is a FormatError: a Remember message named a key
// failing spec.md §7's `[A-Za-z0-9_]{1,255}` (or pure-numeric) rule.
var ErrInvalidMemoryKey = errors.New("orchestrator: invalid memory key")
