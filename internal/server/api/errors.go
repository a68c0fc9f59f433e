package api

import (
	"errors"

	"github.com/dmitrijs2005/teamflow/internal/common"
)

// ErrorKind is the machine-readable failure class carried in responses.
type ErrorKind string

const (
	KindValidation       ErrorKind = "validation"
	KindInvalidProject   ErrorKind = "invalid_project"
	KindAlreadyRunning   ErrorKind = "already_running"
	KindNotFound         ErrorKind = "not_found"
	KindInvalidState     ErrorKind = "invalid_state"
	KindPermissionDenied ErrorKind = "permission_denied"
	KindUnauthorized     ErrorKind = "unauthorized"
	KindUnknownOperation ErrorKind = "unknown_operation"
	KindInternal         ErrorKind = "internal"
)

// ErrUnknownOperation is returned for operation names missing from the table.
var ErrUnknownOperation = errors.New("unknown operation")

var kinds = []struct {
	err  error
	kind ErrorKind
}{
	{common.ErrValidation, KindValidation},
	{common.ErrInvalidProject, KindInvalidProject},
	{common.ErrAlreadyRunning, KindAlreadyRunning},
	{common.ErrorNotFound, KindNotFound},
	{common.ErrInvalidState, KindInvalidState},
	{common.ErrPermissionDenied, KindPermissionDenied},
	{common.ErrorUnauthorized, KindUnauthorized},
	{common.ErrInvalidToken, KindUnauthorized},
	{common.ErrTokenExpired, KindUnauthorized},
	{ErrUnknownOperation, KindUnknownOperation},
}

// KindOf classifies err; unrecognised errors are internal.
func KindOf(err error) ErrorKind {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}

// ErrorBody is the error half of a Response.
type ErrorBody struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	EntryID *int64    `json:"entry_id,omitempty"`
}

// NewErrorBody renders err for clients. Internal errors get a fixed message.
func NewErrorBody(err error) *ErrorBody {
	kind := KindOf(err)
	body := &ErrorBody{Kind: kind, Message: err.Error()}

	switch kind {
	case KindInternal:
		body.Message = "internal error"
	case KindAlreadyRunning:
		var running *common.AlreadyRunningError
		if errors.As(err, &running) && running.EntryID != 0 {
			id := running.EntryID
			body.EntryID = &id
		}
	}
	return body
}
