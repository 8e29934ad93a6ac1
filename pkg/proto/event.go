package proto

import (
	"github.com/zkwire/zkwire/pkg/jute"
	"github.com/zkwire/zkwire/pkg/types"
)

// WatcherEvent is the payload of a reply carrying types.NotificationXid.
type WatcherEvent struct {
	Type  types.EventType
	State types.KeeperState
	Path  string
}

func (ev WatcherEvent) Encode() []byte {
	e := jute.NewEncoder(nil)
	e.WriteInt32(int32(ev.Type))
	e.WriteInt32(int32(ev.State))
	e.WriteString(ev.Path)
	return e.Bytes()
}

func DecodeWatcherEvent(payload []byte) (WatcherEvent, error) {
	var ev WatcherEvent
	d := jute.NewDecoder(payload)
	t, err := d.ReadInt32()
	if err != nil {
		return WatcherEvent{}, malformed(err, "event type")
	}
	state, err := d.ReadInt32()
	if err != nil {
		return WatcherEvent{}, malformed(err, "event state")
	}
	if ev.Path, err = d.ReadString(); err != nil {
		return WatcherEvent{}, malformed(err, "event path")
	}
	ev.Type = types.EventType(t)
	ev.State = types.KeeperState(state)
	return ev, nil
}
