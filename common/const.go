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

package common

const (
	// App is the metrics/log namespace shared by every collaborator package.
	App = "amqp10"

	// DefaultPort is the AMQP 1.0 plaintext well-known port.
	DefaultPort = 5672

	// DefaultTLSPort is the AMQP 1.0 TLS well-known port. TLS itself is out
	// of core scope; the port constant is kept for configuration defaults.
	DefaultTLSPort = 5671

	// ReadWriteBlockSize is a general read chunk size. The frame layer
	// does not use it: frame.Read reads exact sizes via io.ReadFull.
	ReadWriteBlockSize = 4096

	// MinMaxFrameSize is the smallest legal negotiated max-frame-size.
	MinMaxFrameSize = 512

	// DefaultMaxFrameSize is used when Configuration.MaxFrameSize is unset.
	DefaultMaxFrameSize = 65536

	// DefaultChannelMax is used when Configuration.ChannelMax is unset.
	DefaultChannelMax = 65535
)
