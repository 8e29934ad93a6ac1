package dataconn

import (
	"crypto/rand"
	"path"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/zkwire/zkwire/pkg/proto"
	"github.com/zkwire/zkwire/pkg/types"
)

type treeNode struct {
	data []byte
	stat proto.Stat
}

// TreeHandler is a ServerHandler answering read requests from an in-memory
// node tree. Nodes are added with Set.
type TreeHandler struct {
	lock      sync.Mutex
	nodes     map[string]*treeNode
	zxid      int64
	sessionID int64
}

func NewTreeHandler() *TreeHandler {
	h := &TreeHandler{
		nodes:     map[string]*treeNode{},
		sessionID: 0x100,
	}
	h.nodes["/"] = &treeNode{}
	return h
}

// Set creates or updates the node at p, creating missing parents.
func (h *TreeHandler) Set(p string, data []byte) {
	h.lock.Lock()
	defer h.lock.Unlock()

	p = path.Clean("/" + p)
	h.zxid++
	now := time.Now().UnixMilli()
	if n, ok := h.nodes[p]; ok {
		n.data = data
		n.stat.Version++
		n.stat.Mzxid = h.zxid
		n.stat.Mtime = now
		n.stat.DataLength = int32(len(data))
		return
	}

	for cur := p; cur != "/"; cur = path.Dir(cur) {
		if _, ok := h.nodes[cur]; ok {
			break
		}
		n := &treeNode{stat: proto.Stat{
			Czxid: h.zxid, Mzxid: h.zxid, Pzxid: h.zxid,
			Ctime: now, Mtime: now,
		}}
		if cur == p {
			n.data = data
			n.stat.DataLength = int32(len(data))
		}
		h.nodes[cur] = n
	}
	h.recount()
}

func (h *TreeHandler) recount() {
	for p, n := range h.nodes {
		n.stat.NumChildren = int32(len(h.children(p)))
	}
}

func (h *TreeHandler) children(p string) []string {
	prefix := p
	if prefix != "/" {
		prefix += "/"
	}
	var children []string
	for cp := range h.nodes {
		if cp == p || !strings.HasPrefix(cp, prefix) {
			continue
		}
		if rest := cp[len(prefix):]; !strings.Contains(rest, "/") {
			children = append(children, rest)
		}
	}
	sort.Strings(children)
	return children
}

func (h *TreeHandler) Connect(req proto.ConnectRequest) proto.ConnectResponse {
	h.lock.Lock()
	defer h.lock.Unlock()

	sessionID := req.SessionID
	if sessionID == 0 {
		h.sessionID++
		sessionID = h.sessionID
	}
	timeout := req.TimeoutMs
	if timeout <= 0 {
		timeout = int32(DefaultSessionTimeout / time.Millisecond)
	}
	passwd := make([]byte, 16)
	// crypto/rand.Read cannot fail since Go 1.24.
	_, _ = rand.Read(passwd)
	return proto.ConnectResponse{
		ProtocolVersion: req.ProtocolVersion,
		TimeoutMs:       timeout,
		SessionID:       sessionID,
		Passwd:          passwd,
		ReadOnly:        req.ReadOnly,
	}
}

func (h *TreeHandler) Request(req proto.Request) *proto.Response {
	h.lock.Lock()
	defer h.lock.Unlock()

	resp := &proto.Response{ReplyHeader: proto.ReplyHeader{Zxid: h.zxid}}
	switch req.OpCode {
	case types.OpPing, types.OpCloseSession, types.OpSetWatches:
		return resp
	case types.OpExists, types.OpGetData, types.OpGetChildren:
	default:
		resp.Code = types.ErrCodeUnimplemented
		return resp
	}

	r, err := proto.DecodePathWatchRequest(req.Payload)
	if err != nil {
		resp.Code = types.ErrCodeMarshallingError
		return resp
	}
	n, ok := h.nodes[path.Clean(r.Path)]
	if !ok {
		resp.Code = types.ErrCodeNoNode
		return resp
	}

	switch req.OpCode {
	case types.OpExists:
		resp.Payload = proto.ExistsResponse{Stat: n.stat}.Encode()
	case types.OpGetData:
		resp.Payload = proto.GetDataResponse{Data: n.data, Stat: n.stat}.Encode()
	case types.OpGetChildren:
		resp.Payload = proto.GetChildrenResponse{Children: h.children(path.Clean(r.Path))}.Encode()
	}
	return resp
}
