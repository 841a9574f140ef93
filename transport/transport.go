// Package transport defines the wire-level boundary spec.md §6
// specifies but leaves framed-stream transport out of scope for: a
// Conn/Dialer pair plus an in-memory pipe implementation, so the
// envelope-level protocol (package message) can be driven end-to-end
// in tests without a real socket underneath it.
package transport

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"net"
)

// Conn is a framed, bidirectional message stream: each Send/Recv moves
// exactly one length-prefixed frame, the way the teacher's peer
// connections frame each gossip message.
type Conn interface {
	Send(ctx context.Context, frame []byte) error
	Recv(ctx context.Context) ([]byte, error)
	Close() error
}

// Dialer opens a Conn to addr. The production implementation (TLS +
// TCP) is excluded; only the interface and the in-memory pipe below
// ship in this module.
type Dialer interface {
	Dial(ctx context.Context, addr string) (Conn, error)
}

const maxFrameSize = 16 << 20 // 16MiB, matching config.BlockBytesMax's order of magnitude

// pipeConn frames reads/writes over a net.Conn half of an in-memory
// net.Pipe, using a 4-byte big-endian length prefix per frame.
type pipeConn struct {
	c net.Conn
}

func (p *pipeConn) Send(ctx context.Context, frame []byte) error {
	if dl, ok := ctx.Deadline(); ok {
		_ = p.c.SetWriteDeadline(dl)
	}
	var hdr [4]byte
	binary.BigEndian.PutUint32(hdr[:], uint32(len(frame)))
	if _, err := p.c.Write(hdr[:]); err != nil {
		return err
	}
	_, err := p.c.Write(frame)
	return err
}

func (p *pipeConn) Recv(ctx context.Context) ([]byte, error) {
	if dl, ok := ctx.Deadline(); ok {
		_ = p.c.SetReadDeadline(dl)
	}
	var hdr [4]byte
	if _, err := io.ReadFull(p.c, hdr[:]); err != nil {
		return nil, err
	}
	n := binary.BigEndian.Uint32(hdr[:])
	if n > maxFrameSize {
		return nil, fmt.Errorf("transport: frame of %d bytes exceeds the %d byte limit", n, maxFrameSize)
	}
	buf := make([]byte, n)
	if _, err := io.ReadFull(p.c, buf); err != nil {
		return nil, err
	}
	return buf, nil
}

func (p *pipeConn) Close() error { return p.c.Close() }

// NewPipe returns two connected Conns, as if one had dialed the other,
// for in-process tests of the envelope protocol (package message).
func NewPipe() (Conn, Conn) {
	a, b := net.Pipe()
	return &pipeConn{c: a}, &pipeConn{c: b}
}
