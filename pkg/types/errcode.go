package types

import "fmt"

// ErrCode is the err field of a reply header.
type ErrCode int32

const (
	ErrCodeOK                      = ErrCode(0)
	ErrCodeSystemError             = ErrCode(-1)
	ErrCodeRuntimeInconsistency    = ErrCode(-2)
	ErrCodeDataInconsistency       = ErrCode(-3)
	ErrCodeConnectionLoss          = ErrCode(-4)
	ErrCodeMarshallingError        = ErrCode(-5)
	ErrCodeUnimplemented           = ErrCode(-6)
	ErrCodeOperationTimeout        = ErrCode(-7)
	ErrCodeBadArguments            = ErrCode(-8)
	ErrCodeNewConfigNoQuorum       = ErrCode(-13)
	ErrCodeReconfigInProgress      = ErrCode(-14)
	ErrCodeAPIError                = ErrCode(-100)
	ErrCodeNoNode                  = ErrCode(-101)
	ErrCodeNoAuth                  = ErrCode(-102)
	ErrCodeBadVersion              = ErrCode(-103)
	ErrCodeNoChildrenForEphemerals = ErrCode(-108)
	ErrCodeNodeExists              = ErrCode(-110)
	ErrCodeNotEmpty                = ErrCode(-111)
	ErrCodeSessionExpired          = ErrCode(-112)
	ErrCodeInvalidCallback         = ErrCode(-113)
	ErrCodeInvalidACL              = ErrCode(-114)
	ErrCodeAuthFailed              = ErrCode(-115)
	ErrCodeClosing                 = ErrCode(-116)
	ErrCodeNothing                 = ErrCode(-117)
	ErrCodeSessionMoved            = ErrCode(-118)
)

var errCodeNames = map[ErrCode]string{
	ErrCodeOK:                      "ok",
	ErrCodeSystemError:             "system error",
	ErrCodeRuntimeInconsistency:    "runtime inconsistency",
	ErrCodeDataInconsistency:       "data inconsistency",
	ErrCodeConnectionLoss:          "connection loss",
	ErrCodeMarshallingError:        "marshalling error",
	ErrCodeUnimplemented:           "unimplemented",
	ErrCodeOperationTimeout:        "operation timeout",
	ErrCodeBadArguments:            "bad arguments",
	ErrCodeNewConfigNoQuorum:       "new config no quorum",
	ErrCodeReconfigInProgress:      "reconfig in progress",
	ErrCodeAPIError:                "api error",
	ErrCodeNoNode:                  "node does not exist",
	ErrCodeNoAuth:                  "not authenticated",
	ErrCodeBadVersion:              "version conflict",
	ErrCodeNoChildrenForEphemerals: "ephemeral nodes may not have children",
	ErrCodeNodeExists:              "node already exists",
	ErrCodeNotEmpty:                "node has children",
	ErrCodeSessionExpired:          "session has been expired by the server",
	ErrCodeInvalidCallback:         "invalid callback specified",
	ErrCodeInvalidACL:              "invalid ACL specified",
	ErrCodeAuthFailed:              "client authentication failed",
	ErrCodeClosing:                 "zookeeper is closing",
	ErrCodeNothing:                 "no server responses to process",
	ErrCodeSessionMoved:            "session moved to another server",
}

func (c ErrCode) Error() string {
	if name, ok := errCodeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("unknown error code %d", int32(c))
}

func (c ErrCode) OK() bool {
	return c == ErrCodeOK
}

type EventType int32

const (
	EventNone                = EventType(-1)
	EventNodeCreated         = EventType(1)
	EventNodeDeleted         = EventType(2)
	EventNodeDataChanged     = EventType(3)
	EventNodeChildrenChanged = EventType(4)
)

func (t EventType) String() string {
	switch t {
	case EventNone:
		return "None"
	case EventNodeCreated:
		return "NodeCreated"
	case EventNodeDeleted:
		return "NodeDeleted"
	case EventNodeDataChanged:
		return "NodeDataChanged"
	case EventNodeChildrenChanged:
		return "NodeChildrenChanged"
	}
	return fmt.Sprintf("EventType(%d)", int32(t))
}

// KeeperState is the session state reported inside a watch event.
type KeeperState int32

const (
	KeeperStateDisconnected      = KeeperState(0)
	KeeperStateSyncConnected     = KeeperState(3)
	KeeperStateAuthFailed        = KeeperState(4)
	KeeperStateConnectedReadOnly = KeeperState(5)
	KeeperStateSaslAuthenticated = KeeperState(6)
	KeeperStateExpired           = KeeperState(-112)
)

func (s KeeperState) String() string {
	switch s {
	case KeeperStateDisconnected:
		return "Disconnected"
	case KeeperStateSyncConnected:
		return "SyncConnected"
	case KeeperStateAuthFailed:
		return "AuthFailed"
	case KeeperStateConnectedReadOnly:
		return "ConnectedReadOnly"
	case KeeperStateSaslAuthenticated:
		return "SaslAuthenticated"
	case KeeperStateExpired:
		return "Expired"
	}
	return fmt.Sprintf("KeeperState(%d)", int32(s))
}
