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

package performative

import (
	"github.com/amqpgo/amqp10/amqperr"
	"github.com/amqpgo/amqp10/types"
)

// ErrorInfo is the wire shape of an AMQP error composite: condition
// symbol, description, and an opaque info map. CLOSE, END and DETACH
// all carry an optional ErrorInfo.
type ErrorInfo struct {
	Condition   string
	Description string
	Info        *types.Map
}

func (e *ErrorInfo) encode() types.Value {
	if e == nil {
		return types.Null()
	}
	desc := types.Null()
	if e.Description != "" {
		desc = types.String(e.Description)
	}
	list := types.NewList(types.Symbol(e.Condition), desc, mapOrNull(e.Info))
	return types.NewDescribed(descriptorValue(descError), list)
}

func decodeErrorInfo(v types.Value) *ErrorInfo {
	if v.IsNull() {
		return nil
	}
	d, ok := v.Described()
	if !ok {
		return nil
	}
	list, ok := d.Value.List()
	if !ok {
		return nil
	}
	return &ErrorInfo{
		Condition:   optString(field(list, 0)),
		Description: optString(field(list, 1)),
		Info:        optMap(field(list, 2)),
	}
}

// AsError converts an ErrorInfo into the core's amqperr taxonomy,
// classifying by the kind passed by the caller (connection/session/link
// scope is known from which performative carried the error).
func (e *ErrorInfo) AsError(kind amqperr.Kind) *amqperr.Error {
	if e == nil {
		return nil
	}
	return amqperr.NewCondition(kind, e.Condition, "%s", e.Description)
}
