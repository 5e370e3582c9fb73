package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"strings"
)

// Kind classifies a failed call.
type Kind int

const (
	// KindTransport covers network failures, timeouts and cancelled contexts.
	KindTransport Kind = iota
	// KindValidation is a 400/422 answer; Fields holds per-field messages when the backend sent them.
	KindValidation
	// KindUnauthorized means the credential is missing, expired or wrong.
	KindUnauthorized
	// KindForbidden means the caller lacks the capability or the transition is not allowed.
	KindForbidden
	// KindNotFound is a 404 answer, usually a stale id.
	KindNotFound
	// KindConflict is a 409 answer: the entity changed or is sold out.
	KindConflict
	// KindRateLimited is a 429 answer.
	KindRateLimited
	// KindServer is a 5xx answer or a body that could not be decoded.
	KindServer
	// KindOther is any other non-2xx answer.
	KindOther
)

var kindMessages = map[Kind]string{
	KindTransport:    "backend is unreachable",
	KindValidation:   "invalid input",
	KindUnauthorized: "not authorized",
	KindForbidden:    "operation not permitted",
	KindNotFound:     "not found",
	KindConflict:     "conflicts with the current state",
	KindRateLimited:  "too many requests, try again later",
	KindServer:       "backend error",
	KindOther:        "request failed",
}

// String returns the human-readable message associated with k.
func (k Kind) String() string {
	if m, ok := kindMessages[k]; ok {
		return m
	}
	return "unknown error"
}

// Error is returned by every Client method that fails.
//
// Message is safe to show to an end user. Detail keeps the raw response body
// or transport error text for logs and is never part of Error().
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Reason  string
	Detail  string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Message)
	if e.Reason != "" {
		b.WriteString(": ")
		b.WriteString(e.Reason)
	}
	if len(e.Fields) > 0 {
		keys := make([]string, 0, len(e.Fields))
		for k := range e.Fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			parts = append(parts, k+": "+e.Fields[k])
		}
		b.WriteString(" (")
		b.WriteString(strings.Join(parts, "; "))
		b.WriteString(")")
	}
	return b.String()
}

func (e *Error) Unwrap() error { return e.Err }

func kindOf(status int) Kind {
	switch {
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return KindValidation
	case status == http.StatusUnauthorized:
		return KindUnauthorized
	case status == http.StatusForbidden:
		return KindForbidden
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusConflict:
		return KindConflict
	case status == http.StatusTooManyRequests:
		return KindRateLimited
	case status >= 500:
		return KindServer
	}
	return KindOther
}

// fieldError is one entry of a validation detail list.
type fieldError struct {
	Loc  []any  `json:"loc"`
	Msg  string `json:"msg"`
	Type string `json:"type"`
}

// newStatusError builds an Error from a non-2xx response body. The backend
// answers with {"detail": "text"} or {"detail": [{"loc": [...], "msg": ...}]}.
func newStatusError(status int, body []byte) *Error {
	kind := kindOf(status)
	e := &Error{
		Kind:    kind,
		Status:  status,
		Message: kind.String(),
		Detail:  strings.TrimSpace(string(body)),
	}

	var envelope struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Detail) == 0 {
		return e
	}

	var text string
	if err := json.Unmarshal(envelope.Detail, &text); err == nil {
		e.Reason = text
		return e
	}

	var list []fieldError
	if err := json.Unmarshal(envelope.Detail, &list); err == nil {
		for _, fe := range list {
			name := fieldName(fe.Loc)
			if name == "" {
				if e.Reason == "" {
					e.Reason = fe.Msg
				}
				continue
			}
			if e.Fields == nil {
				e.Fields = make(map[string]string)
			}
			e.Fields[name] = fe.Msg
		}
	}
	return e
}

// fieldName drops the request section prefix ("body", "query", "path") from a loc path.
func fieldName(loc []any) string {
	parts := make([]string, 0, len(loc))
	for i, p := range loc {
		s := fmt.Sprint(p)
		if i == 0 && (s == "body" || s == "query" || s == "path") {
			continue
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, ".")
}

func transportError(err error) *Error {
	return &Error{
		Kind:    KindTransport,
		Message: KindTransport.String(),
		Detail:  err.Error(),
		Err:     err,
	}
}

// KindOf returns the Kind of err, or false when err is not an *Error.
func KindOf(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return 0, false
}

func isKind(err error, k Kind) bool {
	got, ok := KindOf(err)
	return ok && got == k
}

// IsUnauthorized reports whether err is a 401 answer.
func IsUnauthorized(err error) bool { return isKind(err, KindUnauthorized) }

// IsForbidden reports whether err is a 403 answer.
func IsForbidden(err error) bool { return isKind(err, KindForbidden) }

// IsNotFound reports whether err is a 404 answer.
func IsNotFound(err error) bool { return isKind(err, KindNotFound) }

// IsConflict reports whether err is a 409 answer.
func IsConflict(err error) bool { return isKind(err, KindConflict) }

// IsValidation reports whether err is a 400/422 answer.
func IsValidation(err error) bool { return isKind(err, KindValidation) }

// IsTransport reports whether err never reached the backend or got no answer.
func IsTransport(err error) bool { return isKind(err, KindTransport) }
