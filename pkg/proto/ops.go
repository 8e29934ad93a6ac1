package proto

import (
	"github.com/pkg/errors"

	"github.com/zkwire/zkwire/pkg/jute"
)

// The helpers below build and read the bodies of the read-only operations
// used by the command line tools. Every other body is left to the caller.

type PathWatchRequest struct {
	Path  string
	Watch bool
}

func (r PathWatchRequest) Encode() []byte {
	e := jute.NewEncoder(nil)
	e.WriteString(r.Path)
	e.WriteBool(r.Watch)
	return e.Bytes()
}

func DecodePathWatchRequest(payload []byte) (PathWatchRequest, error) {
	var (
		r   PathWatchRequest
		err error
	)
	d := jute.NewDecoder(payload)
	if r.Path, err = d.ReadString(); err != nil {
		return PathWatchRequest{}, malformed(err, "path")
	}
	if r.Watch, err = d.ReadBool(); err != nil {
		return PathWatchRequest{}, malformed(err, "watch")
	}
	return r, finish(d)
}

type PathRequest struct {
	Path string
}

func (r PathRequest) Encode() []byte {
	e := jute.NewEncoder(nil)
	e.WriteString(r.Path)
	return e.Bytes()
}

func DecodePathRequest(payload []byte) (PathRequest, error) {
	d := jute.NewDecoder(payload)
	path, err := d.ReadString()
	if err != nil {
		return PathRequest{}, malformed(err, "path")
	}
	return PathRequest{Path: path}, finish(d)
}

type Stat struct {
	Czxid          int64 `json:"czxid"`
	Mzxid          int64 `json:"mzxid"`
	Ctime          int64 `json:"ctime"`
	Mtime          int64 `json:"mtime"`
	Version        int32 `json:"version"`
	Cversion       int32 `json:"cversion"`
	Aversion       int32 `json:"aversion"`
	EphemeralOwner int64 `json:"ephemeralOwner"`
	DataLength     int32 `json:"dataLength"`
	NumChildren    int32 `json:"numChildren"`
	Pzxid          int64 `json:"pzxid"`
}

func (s Stat) encode(e *jute.Encoder) {
	e.WriteInt64(s.Czxid)
	e.WriteInt64(s.Mzxid)
	e.WriteInt64(s.Ctime)
	e.WriteInt64(s.Mtime)
	e.WriteInt32(s.Version)
	e.WriteInt32(s.Cversion)
	e.WriteInt32(s.Aversion)
	e.WriteInt64(s.EphemeralOwner)
	e.WriteInt32(s.DataLength)
	e.WriteInt32(s.NumChildren)
	e.WriteInt64(s.Pzxid)
}

func decodeStat(d *jute.Decoder) (Stat, error) {
	var (
		s   Stat
		err error
	)
	for _, f := range []*int64{&s.Czxid, &s.Mzxid, &s.Ctime, &s.Mtime} {
		if *f, err = d.ReadInt64(); err != nil {
			return Stat{}, malformed(err, "stat")
		}
	}
	for _, f := range []*int32{&s.Version, &s.Cversion, &s.Aversion} {
		if *f, err = d.ReadInt32(); err != nil {
			return Stat{}, malformed(err, "stat")
		}
	}
	if s.EphemeralOwner, err = d.ReadInt64(); err != nil {
		return Stat{}, malformed(err, "stat")
	}
	for _, f := range []*int32{&s.DataLength, &s.NumChildren} {
		if *f, err = d.ReadInt32(); err != nil {
			return Stat{}, malformed(err, "stat")
		}
	}
	if s.Pzxid, err = d.ReadInt64(); err != nil {
		return Stat{}, malformed(err, "stat")
	}
	return s, nil
}

type GetDataResponse struct {
	Data []byte `json:"data"`
	Stat Stat   `json:"stat"`
}

func (r GetDataResponse) Encode() []byte {
	e := jute.NewEncoder(nil)
	e.WriteBuffer(r.Data)
	r.Stat.encode(e)
	return e.Bytes()
}

func DecodeGetDataResponse(payload []byte) (GetDataResponse, error) {
	var (
		r   GetDataResponse
		err error
	)
	d := jute.NewDecoder(payload)
	if r.Data, err = d.ReadBuffer(); err != nil {
		return GetDataResponse{}, malformed(err, "data")
	}
	if r.Stat, err = decodeStat(d); err != nil {
		return GetDataResponse{}, err
	}
	return r, finish(d)
}

type ExistsResponse struct {
	Stat Stat `json:"stat"`
}

func (r ExistsResponse) Encode() []byte {
	e := jute.NewEncoder(nil)
	r.Stat.encode(e)
	return e.Bytes()
}

func DecodeExistsResponse(payload []byte) (ExistsResponse, error) {
	d := jute.NewDecoder(payload)
	stat, err := decodeStat(d)
	if err != nil {
		return ExistsResponse{}, err
	}
	return ExistsResponse{Stat: stat}, finish(d)
}

type GetChildrenResponse struct {
	Children []string `json:"children"`
}

func (r GetChildrenResponse) Encode() []byte {
	e := jute.NewEncoder(nil)
	e.WriteStrings(r.Children)
	return e.Bytes()
}

func DecodeGetChildrenResponse(payload []byte) (GetChildrenResponse, error) {
	d := jute.NewDecoder(payload)
	children, err := d.ReadStrings()
	if err != nil {
		return GetChildrenResponse{}, malformed(err, "children")
	}
	return GetChildrenResponse{Children: children}, finish(d)
}

func finish(d *jute.Decoder) error {
	if d.Remaining() != 0 {
		return errors.Wrapf(ErrMalformedBody, "%d trailing bytes", d.Remaining())
	}
	return nil
}
