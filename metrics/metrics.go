// Package metrics exposes counters for the playback pipeline. A nil
// *Pipeline is valid and records nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "playcdda"

type Pipeline struct {
	SectorsRead  prometheus.Counter
	ReadRuns     prometheus.Counter
	Buffers      prometheus.Counter
	Frames       prometheus.Counter
	Underruns    prometheus.Counter
	DeviceErrors *prometheus.CounterVec
	Rejected     prometheus.Counter
	State        prometheus.Gauge
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Pipeline {
	p := &Pipeline{
		SectorsRead: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "sectors_read_total",
			Help: "CDDA sectors transferred from the drive.",
		}),
		ReadRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "read_runs_total",
			Help: "Disc read commands issued.",
		}),
		Buffers: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "output_buffers_total",
			Help: "Output buffers submitted to the audio device.",
		}),
		Frames: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "frames_played_total",
			Help: "Stereo sample frames submitted to the audio device.",
		}),
		Underruns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "underruns_total",
			Help: "Buffers linked after the previous buffer had already finished playing.",
		}),
		DeviceErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Name: "device_errors_total",
			Help: "Failed device requests by direction.",
		}, []string{"direction"}),
		Rejected: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace, Name: "rejected_commands_total",
			Help: "Commands answered with a failure reply.",
		}),
		State: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Name: "player_state",
			Help: "Playback task state: 0 idle, 1 active, 2 draining, 3 terminated.",
		}),
	}
	if reg != nil {
		reg.MustRegister(p.SectorsRead, p.ReadRuns, p.Buffers, p.Frames, p.Underruns, p.DeviceErrors, p.Rejected, p.State)
	}
	return p
}

func (p *Pipeline) Read(sectors int) {
	if p == nil {
		return
	}
	p.ReadRuns.Inc()
	p.SectorsRead.Add(float64(sectors))
}

func (p *Pipeline) Submit(frames int, underrun bool) {
	if p == nil {
		return
	}
	p.Buffers.Inc()
	p.Frames.Add(float64(frames))
	if underrun {
		p.Underruns.Inc()
	}
}

func (p *Pipeline) ReadError() {
	if p != nil {
		p.DeviceErrors.WithLabelValues("read").Inc()
	}
}

func (p *Pipeline) WriteError() {
	if p != nil {
		p.DeviceErrors.WithLabelValues("write").Inc()
	}
}

func (p *Pipeline) Reject() {
	if p != nil {
		p.Rejected.Inc()
	}
}

func (p *Pipeline) SetState(s int) {
	if p != nil {
		p.State.Set(float64(s))
	}
}

// Handler serves the metrics in g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
