package proto

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/zkwire/zkwire/pkg/jute"
	"github.com/zkwire/zkwire/pkg/types"
)

type ReplyHeader struct {
	Xid  int32
	Zxid int64
	Code types.ErrCode
}

// Response is a decoded reply frame. OpCode is not on the wire: the
// packetizer fills it in from the request the reply answers.
type Response struct {
	ReplyHeader
	OpCode  types.OpCode
	Payload []byte
}

// ServerError returns a *ServerError when the reply header carries a non-zero
// error code.
func (r Response) ServerError() error {
	if r.Code.OK() {
		return nil
	}
	return &ServerError{Xid: r.Xid, OpCode: r.OpCode, Code: r.Code}
}

type ServerError struct {
	Xid    int32
	OpCode types.OpCode
	Code   types.ErrCode
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("%v (xid %d) failed: %v", e.OpCode, e.Xid, e.Code)
}

func (e *ServerError) Unwrap() error {
	return e.Code
}

type ConnectResponse struct {
	ProtocolVersion int32
	TimeoutMs       int32
	SessionID       int64
	Passwd          []byte
	ReadOnly        bool
}

// EncodeResponse produces [i32 length][i32 xid][i64 zxid][i32 err][payload].
func EncodeResponse(resp Response, maxFrameSize int) ([]byte, error) {
	bodyLen := replyHeaderSize + len(resp.Payload)
	if err := checkBodySize(bodyLen, maxFrameSize); err != nil {
		return nil, err
	}

	e := jute.NewEncoder(make([]byte, 0, LengthPrefixSize+bodyLen))
	e.WriteInt32(int32(bodyLen))
	e.WriteInt32(resp.Xid)
	e.WriteInt64(resp.Zxid)
	e.WriteInt32(int32(resp.Code))
	e.WriteRaw(resp.Payload)
	return e.Bytes(), nil
}

// DecodeResponse reads the first reply frame of buf. An empty payload
// decodes as nil.
func DecodeResponse(buf []byte, maxFrameSize int) (Response, int, error) {
	body, n, err := frameBody(buf, maxFrameSize)
	if err != nil {
		return Response{}, 0, err
	}
	if len(body) < replyHeaderSize {
		return Response{}, 0, errors.Wrapf(ErrMalformedBody, "reply body of %d bytes", len(body))
	}

	var resp Response
	d := jute.NewDecoder(body)
	resp.Xid, _ = d.ReadInt32()
	resp.Zxid, _ = d.ReadInt64()
	code, _ := d.ReadInt32()
	resp.Code = types.ErrCode(code)
	resp.Payload = copyPayload(body[d.Offset():])
	return resp, n, nil
}

// EncodeConnectResponse produces [i32 length][i32 protocol_version]
// [i32 timeout][i64 session_id][i32 passwd_len][passwd][u8 read_only].
func EncodeConnectResponse(resp ConnectResponse, maxFrameSize int) ([]byte, error) {
	bodyLen := 4 + 4 + 8 + 4 + len(resp.Passwd) + 1
	if err := checkBodySize(bodyLen, maxFrameSize); err != nil {
		return nil, err
	}

	e := jute.NewEncoder(make([]byte, 0, LengthPrefixSize+bodyLen))
	e.WriteInt32(int32(bodyLen))
	e.WriteInt32(resp.ProtocolVersion)
	e.WriteInt32(resp.TimeoutMs)
	e.WriteInt64(resp.SessionID)
	e.WriteInt32(int32(len(resp.Passwd)))
	e.WriteRaw(resp.Passwd)
	e.WriteBool(resp.ReadOnly)
	return e.Bytes(), nil
}

// DecodeConnectResponse accepts the body with or without the trailing
// read_only byte, which servers older than 3.4 do not send.
func DecodeConnectResponse(buf []byte, maxFrameSize int) (ConnectResponse, int, error) {
	body, n, err := frameBody(buf, maxFrameSize)
	if err != nil {
		return ConnectResponse{}, 0, err
	}

	var resp ConnectResponse
	d := jute.NewDecoder(body)
	if resp.ProtocolVersion, err = d.ReadInt32(); err != nil {
		return ConnectResponse{}, 0, malformed(err, "protocol version")
	}
	if resp.TimeoutMs, err = d.ReadInt32(); err != nil {
		return ConnectResponse{}, 0, malformed(err, "timeout")
	}
	if resp.SessionID, err = d.ReadInt64(); err != nil {
		return ConnectResponse{}, 0, malformed(err, "session id")
	}
	if resp.Passwd, err = d.ReadBuffer(); err != nil {
		return ConnectResponse{}, 0, malformed(err, "passwd")
	}
	switch d.Remaining() {
	case 0:
	case 1:
		resp.ReadOnly, _ = d.ReadBool()
	default:
		return ConnectResponse{}, 0, errors.Wrapf(ErrMalformedBody, "%d trailing bytes in connect response", d.Remaining())
	}
	return resp, n, nil
}
