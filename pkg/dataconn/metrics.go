package dataconn

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/zkwire/zkwire/pkg/types"
)

const (
	metricsNamespace = "zkwire"
	metricsSubsystem = "dataconn"

	frameKindHandshake    = "handshake"
	frameKindReply        = "reply"
	frameKindNotification = "notification"
)

// Metrics records engine activity. A nil *Metrics records nothing, and one
// Metrics may be shared by many packetizers.
type Metrics struct {
	framesSent          *prometheus.CounterVec
	framesReceived      *prometheus.CounterVec
	bytesWritten        prometheus.Counter
	bytesRead           prometheus.Counter
	pendingRequests     prometheus.Gauge
	sessionsEstablished prometheus.Counter
	sessionTeardowns    *prometheus.CounterVec
	requestDuration     *prometheus.HistogramVec
}

// NewMetrics registers the engine metrics with reg, or with the default
// registerer when reg is nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		framesSent: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "frames_sent_total",
			Help:      "Frames enqueued for the server, by opcode",
		}, []string{"op"}),
		framesReceived: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "frames_received_total",
			Help:      "Frames decoded from the server, by kind",
		}, []string{"kind"}),
		bytesWritten: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "bytes_written_total",
			Help:      "Bytes flushed to the transport",
		}),
		bytesRead: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "bytes_read_total",
			Help:      "Bytes read from the transport",
		}),
		pendingRequests: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "pending_requests",
			Help:      "Requests waiting for a reply",
		}),
		sessionsEstablished: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "sessions_established_total",
			Help:      "Handshakes confirmed by the server",
		}),
		sessionTeardowns: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "session_teardowns_total",
			Help:      "Sessions shut down, by cause",
		}, []string{"cause"}),
		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: metricsSubsystem,
			Name:      "request_duration_seconds",
			Help:      "Time from submit to reply, by opcode",
			Buckets:   prometheus.DefBuckets,
		}, []string{"op"}),
	}
}

func (m *Metrics) frameSent(op types.OpCode) {
	if m == nil {
		return
	}
	m.framesSent.WithLabelValues(op.String()).Inc()
}

func (m *Metrics) frameReceived(kind string) {
	if m == nil {
		return
	}
	m.framesReceived.WithLabelValues(kind).Inc()
}

func (m *Metrics) written(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.bytesWritten.Add(float64(n))
}

func (m *Metrics) read(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.bytesRead.Add(float64(n))
}

func (m *Metrics) requestRegistered() {
	if m == nil {
		return
	}
	m.pendingRequests.Inc()
}

func (m *Metrics) requestSettled(f *Future, replied bool) {
	if m == nil {
		return
	}
	m.pendingRequests.Dec()
	if replied {
		m.requestDuration.WithLabelValues(f.op.String()).Observe(time.Since(f.submitted).Seconds())
	}
}

func (m *Metrics) sessionEstablished() {
	if m == nil {
		return
	}
	m.sessionsEstablished.Inc()
}

func (m *Metrics) sessionTeardown(cause string) {
	if m == nil {
		return
	}
	m.sessionTeardowns.WithLabelValues(cause).Inc()
}
