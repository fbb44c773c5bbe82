// Copyright 2025 The packetd Authors
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package amqperr implements the client's error taxonomy: every
// fallible core operation returns exactly one Kind, optionally carrying
// an AMQP condition symbol (e.g. "amqp:link:detach-forced") and a
// human-readable message, wrapped with pkg/errors the way a sentinel
// connection-pool error gets wrapped and compared by Kind rather than
// by message text.
package amqperr

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind categorizes an error into a closed, comparable taxonomy.
type Kind string

const (
	KindConnection    Kind = "connection"
	KindSession       Kind = "session"
	KindLink          Kind = "link"
	KindTransport     Kind = "transport"
	KindEncoding      Kind = "encoding"
	KindDecoding      Kind = "decoding"
	KindProtocol      Kind = "protocol"
	KindTimeout       Kind = "timeout"
	KindInvalidState  Kind = "invalid-state"
	KindNotImplemented Kind = "not-implemented"
)

// Well-known AMQP condition symbols, used verbatim on the wire.
const (
	CondFramingError        = "amqp:connection:framing-error"
	CondResourceLimitExceeded = "amqp:resource-limit-exceeded"
	CondDecodeError         = "amqp:decode-error"
	CondInternalError       = "amqp:internal-error"
	CondDetachForced        = "amqp:link:detach-forced"
	CondNotAttached         = "amqp:link:not-attached"
	CondTransferLimitExceeded = "amqp:link:transfer-limit-exceeded"
)

// Error is the concrete error type returned by every core operation.
type Error struct {
	Kind      Kind
	Condition string // AMQP condition symbol, empty if not applicable
	Message   string
	cause     error
}

func (e *Error) Error() string {
	if e.Condition != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Kind, e.Message, e.Condition)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Cause lets errors.Cause (pkg/errors) walk past the *Error to its cause.
func (e *Error) Cause() error { return e.cause }

// New builds an Error with no condition symbol.
func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// NewCondition builds an Error carrying an AMQP condition symbol.
func NewCondition(kind Kind, condition, format string, args ...any) *Error {
	return &Error{Kind: kind, Condition: condition, Message: fmt.Sprintf(format, args...)}
}

// Wrap attaches kind/condition to an underlying cause, preserving it for
// errors.Is/errors.As via Unwrap and for errors.Cause (pkg/errors).
func Wrap(kind Kind, condition string, cause error, format string, args ...any) *Error {
	return &Error{
		Kind:      kind,
		Condition: condition,
		Message:   fmt.Sprintf(format, args...),
		cause:     errors.WithStack(cause),
	}
}

// Is reports whether err is an *Error of the given Kind.
func Is(err error, kind Kind) bool {
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Kind == kind
}
