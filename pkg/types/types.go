package types

import (
	"fmt"

	"github.com/pkg/errors"
)

var ErrUnknownOpCode = errors.New("unknown opcode")

type OpCode int32

const (
	OpNotification  = OpCode(0)
	OpCreate        = OpCode(1)
	OpDelete        = OpCode(2)
	OpExists        = OpCode(3)
	OpGetData       = OpCode(4)
	OpSetData       = OpCode(5)
	OpGetACL        = OpCode(6)
	OpSetACL        = OpCode(7)
	OpGetChildren   = OpCode(8)
	OpSynchronize   = OpCode(9)
	OpPing          = OpCode(11)
	OpGetChildren2  = OpCode(12)
	OpCheck         = OpCode(13)
	OpMulti         = OpCode(14)
	OpAuth          = OpCode(100)
	OpSetWatches    = OpCode(101)
	OpSasl          = OpCode(102)
	OpCreateSession = OpCode(-10)
	OpCloseSession  = OpCode(-11)
	OpError         = OpCode(-1)
)

var opCodeNames = map[OpCode]string{
	OpNotification:  "notification",
	OpCreate:        "create",
	OpDelete:        "delete",
	OpExists:        "exists",
	OpGetData:       "getData",
	OpSetData:       "setData",
	OpGetACL:        "getACL",
	OpSetACL:        "setACL",
	OpGetChildren:   "getChildren",
	OpSynchronize:   "sync",
	OpPing:          "ping",
	OpGetChildren2:  "getChildren2",
	OpCheck:         "check",
	OpMulti:         "multi",
	OpAuth:          "auth",
	OpSetWatches:    "setWatches",
	OpSasl:          "sasl",
	OpCreateSession: "createSession",
	OpCloseSession:  "closeSession",
	OpError:         "error",
}

// ParseOpCode maps a wire value onto the closed set of opcodes.
func ParseOpCode(v int32) (OpCode, error) {
	op := OpCode(v)
	if _, ok := opCodeNames[op]; !ok {
		return 0, errors.Wrapf(ErrUnknownOpCode, "wire value %d", v)
	}
	return op, nil
}

func (op OpCode) Valid() bool {
	_, ok := opCodeNames[op]
	return ok
}

func (op OpCode) String() string {
	if name, ok := opCodeNames[op]; ok {
		return name
	}
	return fmt.Sprintf("opcode(%d)", int32(op))
}

// Reserved xids. The server answers requests sent with one of these using
// the same xid, and pushes watch events with NotificationXid.
const (
	NotificationXid = int32(-1)
	PingXid         = int32(-2)
	AuthXid         = int32(-4)
	SetWatchesXid   = int32(-8)
)

// ReservedXid returns the fixed xid used for op, if it has one.
func ReservedXid(op OpCode) (int32, bool) {
	switch op {
	case OpPing:
		return PingXid, true
	case OpAuth:
		return AuthXid, true
	case OpSetWatches:
		return SetWatchesXid, true
	}
	return 0, false
}

func IsReservedXid(xid int32) bool {
	switch xid {
	case PingXid, AuthXid, SetWatchesXid:
		return true
	}
	return false
}

type SessionState string

const (
	SessionStateDisconnected = SessionState("disconnected")
	SessionStateHandshaking  = SessionState("handshaking")
	SessionStateEstablished  = SessionState("established")
	SessionStateClosed       = SessionState("closed")
)

type HandshakeState string

const (
	HandshakeStateNotStarted = HandshakeState("not-started")
	HandshakeStateSent       = HandshakeState("sent")
	HandshakeStateConfirmed  = HandshakeState("confirmed")
	HandshakeStateFailed     = HandshakeState("failed")
)
