package dataconn

import (
	"github.com/pkg/errors"

	"github.com/zkwire/zkwire/pkg/proto"
	"github.com/zkwire/zkwire/pkg/types"
	"github.com/zkwire/zkwire/pkg/wirebuf"
)

// handshake sequences the Connect exchange. The reply carries no xid; it is
// recognised by being the first frame on the connection.
type handshake struct {
	state        types.HandshakeState
	request      proto.ConnectRequest
	maxFrameSize int
}

func newHandshake(req proto.ConnectRequest, maxFrameSize int) *handshake {
	return &handshake{
		state:        types.HandshakeStateNotStarted,
		request:      req,
		maxFrameSize: maxFrameSize,
	}
}

func (h *handshake) start(out *wirebuf.Outbox) error {
	if h.state != types.HandshakeStateNotStarted {
		return errors.Errorf("handshake already %s", h.state)
	}
	frame, err := proto.EncodeConnectRequest(h.request, h.maxFrameSize)
	if err != nil {
		h.state = types.HandshakeStateFailed
		return newError(ErrHandshakeFailed, err)
	}
	out.Enqueue(frame)
	h.state = types.HandshakeStateSent
	return nil
}

func (h *handshake) receive(frame []byte) (proto.ConnectResponse, error) {
	if h.state != types.HandshakeStateSent {
		return proto.ConnectResponse{}, errors.Errorf("handshake reply received while %s", h.state)
	}
	resp, _, err := proto.DecodeConnectResponse(frame, h.maxFrameSize)
	if err != nil {
		h.state = types.HandshakeStateFailed
		return proto.ConnectResponse{}, newError(ErrHandshakeFailed, err)
	}
	if err := h.validate(resp); err != nil {
		h.state = types.HandshakeStateFailed
		return proto.ConnectResponse{}, newError(ErrHandshakeFailed, err)
	}
	h.state = types.HandshakeStateConfirmed
	return resp, nil
}

func (h *handshake) validate(resp proto.ConnectResponse) error {
	if resp.ProtocolVersion != h.request.ProtocolVersion {
		return errors.Wrapf(ErrUnsupportedProtocol, "server answered with version %d, sent %d",
			resp.ProtocolVersion, h.request.ProtocolVersion)
	}
	// the server answers a resume of an expired session with zeroes
	if resp.TimeoutMs <= 0 || resp.SessionID == 0 {
		return errors.Wrapf(ErrSessionExpired, "session 0x%x negotiated timeout %dms",
			resp.SessionID, resp.TimeoutMs)
	}
	return nil
}

// fail is called when the connection dies before the reply arrives.
func (h *handshake) fail() {
	if h.state != types.HandshakeStateConfirmed {
		h.state = types.HandshakeStateFailed
	}
}
