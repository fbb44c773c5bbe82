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

// Package config holds the core's typed configuration. Parsing
// human-readable configuration-file formats (YAML/JSON) is out of
// scope, see DESIGN.md; this package is the typed struct and
// functional-option surface that survives regardless, with an opaque
// Options map for the handful of settings not worth a dedicated field.
package config

import (
	"time"

	"github.com/amqpgo/amqp10/common"
)

// Configuration is the set of values a Connection is opened with.
type Configuration struct {
	Hostname         string
	Port             uint16
	OperationTimeout time.Duration
	MaxFrameSize     uint32
	ChannelMax       uint16
	IdleTimeout      time.Duration
	ContainerID      string
	Properties       map[string]any
}

// Option mutates a Configuration under construction.
type Option func(*Configuration)

// New builds a Configuration from sane protocol defaults, overridden
// in order by opts.
func New(containerID string, opts ...Option) *Configuration {
	c := &Configuration{
		Port:             common.DefaultPort,
		OperationTimeout: 30 * time.Second,
		MaxFrameSize:     common.DefaultMaxFrameSize,
		ChannelMax:       common.DefaultChannelMax,
		IdleTimeout:      60 * time.Second,
		ContainerID:      containerID,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithContainerID overrides the container-id New was given.
func WithContainerID(id string) Option { return func(c *Configuration) { c.ContainerID = id } }

func WithHostname(h string) Option { return func(c *Configuration) { c.Hostname = h } }
func WithPort(p uint16) Option     { return func(c *Configuration) { c.Port = p } }

func WithOperationTimeout(d time.Duration) Option {
	return func(c *Configuration) { c.OperationTimeout = d }
}

// WithMaxFrameSize sets the locally advertised max-frame-size, clamped
// up to common.MinMaxFrameSize.
func WithMaxFrameSize(n uint32) Option {
	return func(c *Configuration) {
		if n < common.MinMaxFrameSize {
			n = common.MinMaxFrameSize
		}
		c.MaxFrameSize = n
	}
}

func WithChannelMax(n uint16) Option { return func(c *Configuration) { c.ChannelMax = n } }

// WithIdleTimeout sets the locally advertised idle-timeout; zero
// disables idle-timeout enforcement.
func WithIdleTimeout(d time.Duration) Option {
	return func(c *Configuration) { c.IdleTimeout = d }
}

func WithProperty(key string, value any) Option {
	return func(c *Configuration) {
		if c.Properties == nil {
			c.Properties = make(map[string]any)
		}
		c.Properties[key] = value
	}
}
