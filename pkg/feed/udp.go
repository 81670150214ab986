package feed

import (
	"context"
	"errors"
	"net"

	"github.com/gwillem/waypointer/pkg/joy"
	"github.com/gwillem/waypointer/pkg/pose"
)

const defaultReadBuffer = 2048

// PoseSubmitter accepts pose updates.
type PoseSubmitter interface {
	SubmitPose(pose.Pose)
}

// InputSubmitter accepts controller samples.
type InputSubmitter interface {
	SubmitInput(joy.Input)
}

// Logger receives feed errors.
type Logger interface {
	Logf(format string, args ...any)
}

// ListenUDP opens a UDP socket on addr.
func ListenUDP(addr string) (net.PacketConn, error) {
	return net.ListenPacket("udp", addr)
}

// ServePackets reads datagrams from conn until ctx is done and passes each
// one to handle. It closes conn on return.
func ServePackets(ctx context.Context, conn net.PacketConn, bufSize int, handle func([]byte)) error {
	if bufSize <= 0 {
		bufSize = defaultReadBuffer
	}

	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()
	defer conn.Close()

	buf := make([]byte, bufSize)
	for {
		n, _, err := conn.ReadFrom(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			continue
		}
		handle(buf[:n])
	}
}

// PoseHandler parses pose datagrams into dst. Bad datagrams are logged and
// dropped.
func PoseHandler(dst PoseSubmitter, log Logger) func([]byte) {
	return func(b []byte) {
		p, err := ParsePose(b)
		if err != nil {
			log.Logf("Bad pose packet: %v", err)
			return
		}
		dst.SubmitPose(p)
	}
}

// InputHandler parses controller lines or datagrams into dst. Bad input is
// logged and dropped.
func InputHandler(dst InputSubmitter, log Logger) func([]byte) {
	return func(b []byte) {
		in, err := ParseInput(b)
		if err != nil {
			log.Logf("Bad controller packet: %v", err)
			return
		}
		dst.SubmitInput(in)
	}
}

// RunPoseUDP serves the pose feed on addr until ctx is done.
func RunPoseUDP(ctx context.Context, addr string, bufSize int, dst PoseSubmitter, log Logger) error {
	conn, err := ListenUDP(addr)
	if err != nil {
		return err
	}
	return ServePackets(ctx, conn, bufSize, PoseHandler(dst, log))
}

// RunInputUDP serves the controller feed on addr until ctx is done.
func RunInputUDP(ctx context.Context, addr string, dst InputSubmitter, log Logger) error {
	conn, err := ListenUDP(addr)
	if err != nil {
		return err
	}
	return ServePackets(ctx, conn, 0, InputHandler(dst, log))
}
