package dataconn

import (
	"math"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/zkwire/zkwire/pkg/proto"
	"github.com/zkwire/zkwire/pkg/wirebuf"
)

const (
	DefaultReadBufferSize = 64 << 10
	DefaultSessionTimeout = 30 * time.Second
	DefaultPollSlice      = time.Millisecond

	// MaxSessionTimeout is the longest timeout the i32 millisecond field of
	// the connect request can carry.
	MaxSessionTimeout = time.Duration(math.MaxInt32) * time.Millisecond

	// ProtocolVersion is the only handshake protocol version understood.
	ProtocolVersion = int32(0)
)

type DriveOutcome int

const (
	// DriveProgress means bytes moved or frames were routed; drive again.
	DriveProgress = DriveOutcome(iota)
	// DriveWouldBlock means the transport had nothing to offer in either
	// direction; drive again once it is ready.
	DriveWouldBlock
	// DriveClosed means the session is gone.
	DriveClosed
)

func (o DriveOutcome) String() string {
	switch o {
	case DriveProgress:
		return "progress"
	case DriveWouldBlock:
		return "would-block"
	case DriveClosed:
		return "closed"
	}
	return "unknown"
}

// NotificationHandler receives every reply carrying the notification xid.
// It runs inside Drive and must not call back into the Packetizer.
type NotificationHandler func(resp proto.Response)

type Options struct {
	MaxFrameSize     int
	CompactThreshold int
	ReadBufferSize   int

	ProtocolVersion int32
	SessionTimeout  time.Duration
	SessionID       int64
	SessionPasswd   []byte
	LastZxidSeen    int64
	ReadOnly        bool

	NotificationHandler NotificationHandler
	Metrics             *Metrics
	Logger              logrus.FieldLogger

	// ServerAddr only labels log lines.
	ServerAddr string
}

func (o Options) withDefaults() Options {
	if o.MaxFrameSize <= 0 {
		o.MaxFrameSize = proto.DefaultMaxFrameSize
	}
	if o.CompactThreshold <= 0 {
		o.CompactThreshold = wirebuf.DefaultCompactThreshold
	}
	if o.ReadBufferSize <= 0 {
		o.ReadBufferSize = DefaultReadBufferSize
	}
	if o.SessionTimeout <= 0 {
		o.SessionTimeout = DefaultSessionTimeout
	}
	if o.SessionTimeout > MaxSessionTimeout {
		o.SessionTimeout = MaxSessionTimeout
	}
	if o.Logger == nil {
		o.Logger = logrus.StandardLogger()
	}
	return o
}
