// Package state turns gateway operations and listeners into observable
// tri-state streams (loading, success, error) and combines them.
package state

import (
	"errors"
	"fmt"
	"reflect"

	jsoniter "github.com/json-iterator/go"
	pkgerrors "github.com/pkg/errors"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Kind tags which variant a State holds.
type Kind int

const (
	KindUninitialized Kind = iota
	KindLoading
	KindSuccess
	KindError
)

func (k Kind) String() string {
	switch k {
	case KindLoading:
		return "loading"
	case KindSuccess:
		return "success"
	case KindError:
		return "error"
	default:
		return "uninitialized"
	}
}

// MarshalText lets the kind appear as its name in JSON payloads.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// State is the tagged union published for every query. Data is only
// meaningful for KindSuccess and Message only for KindError.
type State[T any] struct {
	Kind    Kind   `json:"status"`
	Data    T      `json:"data"`
	Message string `json:"message,omitempty"`
}

type successJSON[T any] struct {
	Kind Kind `json:"status"`
	Data T    `json:"data"`
}

type stateJSON struct {
	Kind    Kind   `json:"status"`
	Message string `json:"message,omitempty"`
}

// MarshalJSON always writes data for a success, so an empty list stays [] and
// a zero value stays visible. Other kinds carry no data.
func (s State[T]) MarshalJSON() ([]byte, error) {
	if s.Kind == KindSuccess {
		data := s.Data
		if v := reflect.ValueOf(&data).Elem(); v.Kind() == reflect.Slice && v.IsNil() {
			v.Set(reflect.MakeSlice(v.Type(), 0, 0))
		}
		return json.Marshal(successJSON[T]{Kind: s.Kind, Data: data})
	}
	return json.Marshal(stateJSON{Kind: s.Kind, Message: s.Message})
}

// Loading returns the in-flight state.
func Loading[T any]() State[T] {
	return State[T]{Kind: KindLoading}
}

// Success wraps a value.
func Success[T any](v T) State[T] {
	return State[T]{Kind: KindSuccess, Data: v}
}

// Error wraps a failure description.
func Error[T any](msg string) State[T] {
	return State[T]{Kind: KindError, Message: msg}
}

func (s State[T]) IsLoading() bool { return s.Kind == KindLoading }
func (s State[T]) IsSuccess() bool { return s.Kind == KindSuccess }
func (s State[T]) IsError() bool   { return s.Kind == KindError }

// IsTerminal reports whether a one-shot stream would stop after this state.
func (s State[T]) IsTerminal() bool {
	return s.Kind == KindSuccess || s.Kind == KindError
}

func (s State[T]) String() string {
	switch s.Kind {
	case KindSuccess:
		return fmt.Sprintf("Success(%v)", s.Data)
	case KindError:
		return fmt.Sprintf("Error(%s)", s.Message)
	case KindLoading:
		return "Loading"
	default:
		return "Uninitialized"
	}
}

// Describer is implemented by errors whose text is shown to the user verbatim,
// such as validation failures and domain not-found messages.
type Describer interface {
	Description() string
}

type messageError struct {
	msg string
}

func (e *messageError) Error() string       { return e.msg }
func (e *messageError) Description() string { return e.msg }

// Message returns an error that Describe renders as exactly msg.
func Message(msg string) error {
	return &messageError{msg: msg}
}

type stackTracer interface {
	StackTrace() pkgerrors.StackTrace
}

// withStack records a stack on err unless one is already recorded.
func withStack(err error) error {
	var st stackTracer
	if errors.As(err, &st) {
		return err
	}
	return pkgerrors.WithStack(err)
}

// rootCause follows both Unwrap and pkg/errors Cause chains to the innermost error.
func rootCause(err error) error {
	for {
		var next error
		if c, ok := err.(interface{ Cause() error }); ok {
			next = c.Cause()
		} else {
			next = errors.Unwrap(err)
		}
		if next == nil {
			return err
		}
		err = next
	}
}

// Describe renders an error for an Error state. Describer errors keep their
// own text; every other error is treated as a remote fault and reported with
// its message, root cause and the outermost recorded stack.
func Describe(err error) string {
	if err == nil {
		return ""
	}
	var d Describer
	if errors.As(err, &d) {
		return d.Description()
	}
	var trace string
	var st stackTracer
	if errors.As(err, &st) {
		trace = fmt.Sprintf("%+v", st.StackTrace())
	}
	return fmt.Sprintf("Error Message : %s\nError Cause : %v\nError StackTrace : %s",
		err.Error(), rootCause(err), trace)
}
