package proto

import "github.com/pkg/errors"

var (
	ErrMalformedLength = errors.New("proto: malformed frame length")
	ErrFrameTooLarge   = errors.New("proto: frame too large")
	ErrIncomplete      = errors.New("proto: incomplete frame")
	ErrMalformedBody   = errors.New("proto: malformed frame body")
)
