package proto

import (
	"github.com/pkg/errors"

	"github.com/zkwire/zkwire/pkg/jute"
	"github.com/zkwire/zkwire/pkg/types"
)

// Request is a general request frame. Payload is the already serialized
// operation body and is carried opaquely.
type Request struct {
	Xid     int32
	OpCode  types.OpCode
	Payload []byte
}

// ConnectRequest is the handshake frame. It carries no xid or opcode.
type ConnectRequest struct {
	ProtocolVersion int32
	LastZxidSeen    int64
	TimeoutMs       int32
	SessionID       int64
	Passwd          []byte
	ReadOnly        bool
}

// EncodeRequest produces [i32 length][i32 xid][i32 opcode][payload].
func EncodeRequest(req Request, maxFrameSize int) ([]byte, error) {
	if !req.OpCode.Valid() {
		return nil, errors.Wrapf(types.ErrUnknownOpCode, "cannot encode %v", req.OpCode)
	}
	bodyLen := requestHeaderSize + len(req.Payload)
	if err := checkBodySize(bodyLen, maxFrameSize); err != nil {
		return nil, err
	}

	e := jute.NewEncoder(make([]byte, 0, LengthPrefixSize+bodyLen))
	e.WriteInt32(int32(bodyLen))
	e.WriteInt32(req.Xid)
	e.WriteInt32(int32(req.OpCode))
	e.WriteRaw(req.Payload)
	return e.Bytes(), nil
}

// DecodeRequest reads the first frame of buf as a general request and
// returns it with the number of bytes consumed. An empty payload decodes as
// nil.
func DecodeRequest(buf []byte, maxFrameSize int) (Request, int, error) {
	body, n, err := frameBody(buf, maxFrameSize)
	if err != nil {
		return Request{}, 0, err
	}
	if len(body) < requestHeaderSize {
		return Request{}, 0, errors.Wrapf(ErrMalformedBody, "request body of %d bytes", len(body))
	}

	d := jute.NewDecoder(body)
	xid, _ := d.ReadInt32()
	rawOp, _ := d.ReadInt32()
	op, err := types.ParseOpCode(rawOp)
	if err != nil {
		return Request{}, 0, err
	}
	return Request{Xid: xid, OpCode: op, Payload: copyPayload(body[d.Offset():])}, n, nil
}

// EncodeConnectRequest produces [i32 length][i32 protocol_version]
// [i64 last_zxid_seen][i32 timeout][i64 session_id][i32 passwd_len][passwd]
// [u8 read_only].
func EncodeConnectRequest(req ConnectRequest, maxFrameSize int) ([]byte, error) {
	bodyLen := 4 + 8 + 4 + 8 + 4 + len(req.Passwd) + 1
	if err := checkBodySize(bodyLen, maxFrameSize); err != nil {
		return nil, err
	}

	e := jute.NewEncoder(make([]byte, 0, LengthPrefixSize+bodyLen))
	e.WriteInt32(int32(bodyLen))
	e.WriteInt32(req.ProtocolVersion)
	e.WriteInt64(req.LastZxidSeen)
	e.WriteInt32(req.TimeoutMs)
	e.WriteInt64(req.SessionID)
	// an absent password is sent as zero length, never as -1
	e.WriteInt32(int32(len(req.Passwd)))
	e.WriteRaw(req.Passwd)
	e.WriteBool(req.ReadOnly)
	return e.Bytes(), nil
}

func DecodeConnectRequest(buf []byte, maxFrameSize int) (ConnectRequest, int, error) {
	body, n, err := frameBody(buf, maxFrameSize)
	if err != nil {
		return ConnectRequest{}, 0, err
	}

	var req ConnectRequest
	d := jute.NewDecoder(body)
	if req.ProtocolVersion, err = d.ReadInt32(); err != nil {
		return ConnectRequest{}, 0, malformed(err, "protocol version")
	}
	if req.LastZxidSeen, err = d.ReadInt64(); err != nil {
		return ConnectRequest{}, 0, malformed(err, "last zxid seen")
	}
	if req.TimeoutMs, err = d.ReadInt32(); err != nil {
		return ConnectRequest{}, 0, malformed(err, "timeout")
	}
	if req.SessionID, err = d.ReadInt64(); err != nil {
		return ConnectRequest{}, 0, malformed(err, "session id")
	}
	if req.Passwd, err = d.ReadBuffer(); err != nil {
		return ConnectRequest{}, 0, malformed(err, "passwd")
	}
	if req.ReadOnly, err = d.ReadBool(); err != nil {
		return ConnectRequest{}, 0, malformed(err, "read only")
	}
	if d.Remaining() != 0 {
		return ConnectRequest{}, 0, errors.Wrapf(ErrMalformedBody, "%d trailing bytes in connect request", d.Remaining())
	}
	return req, n, nil
}

// copyPayload detaches p from the frame buffer. Empty stays nil.
func copyPayload(p []byte) []byte {
	if len(p) == 0 {
		return nil
	}
	payload := make([]byte, len(p))
	copy(payload, p)
	return payload
}

func malformed(err error, field string) error {
	return errors.Wrapf(ErrMalformedBody, "%s: %v", field, err)
}
