package cmn

import (
	"net/http"

	"github.com/pkg/errors"
)

// Kind enumerates the error taxonomy from the orchestrator's error-handling
// design: a fixed, small set of kinds, each with exactly one HTTP mapping.
type Kind int

const (
	KindAuthMissing Kind = iota
	KindAuthRefused
	KindMalformedIdentifier
	KindUnsupportedMedia
	KindMissingEntity
	KindInvalidRequest
	KindNotImplementedPolicy
	KindTransient
	KindInternal
)

var statusByKind = map[Kind]int{
	KindAuthMissing:         http.StatusUnauthorized,
	KindAuthRefused:         http.StatusForbidden,
	KindMalformedIdentifier: http.StatusUnsupportedMediaType,
	KindUnsupportedMedia:    http.StatusUnsupportedMediaType,
	KindMissingEntity:       http.StatusNotFound,
	KindInvalidRequest:      http.StatusBadRequest,
	KindNotImplementedPolicy: http.StatusNotImplemented,
	KindTransient:           http.StatusBadRequest,
	KindInternal:            http.StatusInternalServerError,
}

// Error is the one typed error every domain layer raises; the REST layer
// holds the single kind->status mapping table (statusByKind above) and never
// inspects error strings to decide a response code.
type Error struct {
	Kind  Kind
	Msg   string
	Field string // set for duplicate-unique-key errors, names the conflicting field
	cause error
}

func (e *Error) Error() string {
	if e.Field != "" {
		return e.Msg + ": " + e.Field
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.cause }

// HTTPStatus maps err to a status code; unrecognized errors (never expected
// from domain code but defensively handled for third-party surprises) map to
// 500 per the Internal kind.
func HTTPStatus(err error) int {
	var e *Error
	if errors.As(err, &e) {
		if s, ok := statusByKind[e.Kind]; ok {
			return s
		}
	}
	return http.StatusInternalServerError
}

func newErr(kind Kind, msg string) *Error { return &Error{Kind: kind, Msg: msg} }

func NewAuthMissing(msg string) error     { return newErr(KindAuthMissing, msg) }
func NewAuthRefused(msg string) error     { return newErr(KindAuthRefused, msg) }
func NewMalformedID(msg string) error     { return newErr(KindMalformedIdentifier, msg) }
func NewUnsupportedMedia(msg string) error { return newErr(KindUnsupportedMedia, msg) }
func NewMissingEntity(msg string) error { return newErr(KindMissingEntity, msg) }

// NewMissingEntityRef is NewMissingEntity specialized for "no such <kind>
// with id <id>", the common case across store lookups, queue resolution,
// and blob addressing (spec §7: "MissingEntity (user/media/profile/task/queue) -> 404").
func NewMissingEntityRef(kind, id string) error {
	return newErr(KindMissingEntity, "no such "+kind+": "+id)
}
func NewInvalidRequest(msg string) error  { return newErr(KindInvalidRequest, msg) }
func NewNotImplemented(msg string) error  { return newErr(KindNotImplementedPolicy, msg) }
func NewTransient(msg string) error       { return newErr(KindTransient, msg) }
func NewInternal(msg string) error        { return newErr(KindInternal, msg) }

// NewDuplicateKey is an InvalidRequest naming the conflicting unique field,
// per spec: "duplicate unique key -> BAD_REQUEST with the conflicting field named".
func NewDuplicateKey(field string) error {
	return &Error{Kind: KindInvalidRequest, Msg: "duplicate value for unique field", Field: field}
}

// Wrap annotates cause with a stack-carrying pkg/errors wrapper (the
// teacher's own error-wrapping dependency) while preserving Kind for
// HTTPStatus's lookup.
func Wrap(cause error, kind Kind, msg string) error {
	return &Error{Kind: kind, Msg: msg, cause: errors.Wrap(cause, msg)}
}

func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}
