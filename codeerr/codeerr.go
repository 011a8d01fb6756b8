// Package codeerr defines the structured error type used across
// tokenchain's modules: a numeric code, a message template, and the
// argument map substituted into it.
//
// Negative codes are protocol-level (decode, signature, replay).
// Positive codes are module-local; each module owns its own code
// space.
package codeerr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Error is a structured, templated error.
type Error struct {
	Code     int32
	Template string
	Args     map[string]string
	Fatal    bool
}

func (e *Error) Error() string {
	msg := e.Template
	for k, v := range e.Args {
		msg = strings.ReplaceAll(msg, "{"+k+"}", v)
	}
	return msg
}

// Is makes codeerr.Error comparable by code with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// New builds an Error from a template and an ordered list of key/value
// pairs, following the convention of a small constructor per
// distinguished error.
func New(code int32, template string, kv ...string) *Error {
	args := make(map[string]string, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		args[kv[i]] = kv[i+1]
	}
	return &Error{Code: code, Template: template, Args: args}
}

// Fatal marks err as a fatal error — storage corruption, migration
// registry mismatch, anything that must abort the process rather than
// surface to a caller.
func Fatal(code int32, template string, kv ...string) *Error {
	e := New(code, template, kv...)
	e.Fatal = true
	return e
}

// ArgsSorted returns the argument map as a deterministic, sorted slice of
// key/value pairs — used when an Error's arguments need to be serialized
// (e.g. in a StateQueryResult.Info string or an event attribute) and must
// not depend on Go's randomized map iteration order.
func (e *Error) ArgsSorted() [][2]string {
	keys := make([]string, 0, len(e.Args))
	for k := range e.Args {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([][2]string, 0, len(keys))
	for _, k := range keys {
		out = append(out, [2]string{k, e.Args[k]})
	}
	return out
}

func (e *Error) String() string {
	return fmt.Sprintf("[%d] %s", e.Code, e.Error())
}

// Is reports whether err is a *Error carrying the given code, looking
// through any wrapping via errors.As.
func Is(err error, code int32) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Code == code
}
