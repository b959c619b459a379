package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Op names the client operation that failed.
type Op string

const (
	OpList   Op = "list"
	OpGet    Op = "get"
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Kind classifies a failed call.
type Kind int

const (
	KindTransport Kind = iota + 1
	KindNotFound
	KindValidation
	KindServer
)

func (k Kind) String() string {
	switch k {
	case KindTransport:
		return "transport"
	case KindNotFound:
		return "not found"
	case KindValidation:
		return "validation"
	case KindServer:
		return "server"
	}
	return "unknown"
}

var (
	ErrTransport  = errors.New("product service unreachable or response unusable")
	ErrClient     = errors.New("request rejected by product service")
	ErrNotFound   = errors.New("product not found")
	ErrValidation = errors.New("product rejected by validation")
	ErrServer     = errors.New("product service failed")
)

// Error is returned by every Client method. Use errors.Is with the package
// sentinels to branch on it; ErrServer errors also match ErrTransport.
type Error struct {
	Op         Op
	Kind       Kind
	StatusCode int
	// Fields holds per-field validation messages sent back by the service.
	Fields  map[string]string
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("%s product: %s", e.Op, e.Kind)
	if e.StatusCode != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.StatusCode)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	switch target {
	case ErrTransport:
		return e.Kind == KindTransport || e.Kind == KindServer
	case ErrServer:
		return e.Kind == KindServer
	case ErrClient:
		return e.Kind == KindNotFound || e.Kind == KindValidation
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrValidation:
		return e.Kind == KindValidation
	}
	return false
}

func transportError(op Op, err error) *Error {
	return &Error{Op: op, Kind: KindTransport, Err: err}
}

// statusError maps a non-2xx response to the failure modes each operation
// exposes: list only ever fails with a transport error, not-found is reported
// by get/update/delete, validation by create/update.
func statusError(op Op, status int, body []byte) *Error {
	e := &Error{Op: op, StatusCode: status, Kind: KindTransport}

	var payload struct {
		Message string            `json:"message"`
		Errors  map[string]string `json:"errors"`
	}
	if json.Unmarshal(body, &payload) == nil {
		e.Message = payload.Message
		e.Fields = payload.Errors
	}

	switch {
	case status >= http.StatusInternalServerError:
		e.Kind = KindServer
	case op == OpList:
	case status == http.StatusNotFound && op != OpCreate:
		e.Kind = KindNotFound
	case status >= http.StatusBadRequest && (op == OpCreate || op == OpUpdate):
		e.Kind = KindValidation
	}
	return e
}
