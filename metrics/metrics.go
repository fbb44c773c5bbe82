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

// Package metrics is the core's optional instrumentation hook, backed
// by prometheus client_golang via promauto the same way the panic
// recovery path counts recovered panics. A Recorder is never required:
// conn.New falls back to Noop when given a nil Recorder, and sessions
// and links take none, so metrics are purely additive.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/amqpgo/amqp10/common"
)

// Recorder observes the flow-control and framing counters a deployment
// typically wants dashboards for.
type Recorder interface {
	FrameSent(typ string)
	FrameReceived(typ string)
	TransferSent()
	TransferReceived()
	CreditGauge(linkName string, credit float64)
	WindowGauge(sessionChannel uint16, window float64)
}

type noopRecorder struct{}

func (noopRecorder) FrameSent(string)               {}
func (noopRecorder) FrameReceived(string)            {}
func (noopRecorder) TransferSent()                   {}
func (noopRecorder) TransferReceived()               {}
func (noopRecorder) CreditGauge(string, float64)     {}
func (noopRecorder) WindowGauge(uint16, float64)     {}

// Noop is the default Recorder: every observation is discarded.
var Noop Recorder = noopRecorder{}

// Prometheus is a Recorder backed by client_golang counters/gauges,
// registered under the package's namespace on construction.
type Prometheus struct {
	framesSent     *prometheus.CounterVec
	framesReceived *prometheus.CounterVec
	transfersSent  prometheus.Counter
	transfersRecv  prometheus.Counter
	credit         *prometheus.GaugeVec
	window         *prometheus.GaugeVec
}

// NewPrometheus registers the core's counters/gauges against reg (pass
// prometheus.DefaultRegisterer for the global registry).
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	factory := promauto.With(reg)
	return &Prometheus{
		framesSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: common.App, Name: "frames_sent_total",
			Help: "Frames written to the transport, by performative type.",
		}, []string{"type"}),
		framesReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: common.App, Name: "frames_received_total",
			Help: "Frames read from the transport, by performative type.",
		}, []string{"type"}),
		transfersSent: factory.NewCounter(prometheus.CounterOpts{
			Namespace: common.App, Name: "transfers_sent_total",
			Help: "TRANSFER frames emitted by senders.",
		}),
		transfersRecv: factory.NewCounter(prometheus.CounterOpts{
			Namespace: common.App, Name: "transfers_received_total",
			Help: "TRANSFER frames accepted by receivers.",
		}),
		credit: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: common.App, Name: "link_credit",
			Help: "Current link-credit, by link name.",
		}, []string{"link"}),
		window: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: common.App, Name: "session_incoming_window",
			Help: "Current session incoming-window, by channel.",
		}, []string{"channel"}),
	}
}

func (p *Prometheus) FrameSent(typ string)    { p.framesSent.WithLabelValues(typ).Inc() }
func (p *Prometheus) FrameReceived(typ string) { p.framesReceived.WithLabelValues(typ).Inc() }
func (p *Prometheus) TransferSent()           { p.transfersSent.Inc() }
func (p *Prometheus) TransferReceived()       { p.transfersRecv.Inc() }

func (p *Prometheus) CreditGauge(linkName string, credit float64) {
	p.credit.WithLabelValues(linkName).Set(credit)
}

func (p *Prometheus) WindowGauge(sessionChannel uint16, window float64) {
	p.window.WithLabelValues(channelLabel(sessionChannel)).Set(window)
}

func channelLabel(ch uint16) string { return strconv.Itoa(int(ch)) }
