package feed

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"go.bug.st/serial"
)

// RunInputSerial reads newline-framed controller samples from a serial
// port until ctx is done. The line format matches the UDP feed.
func RunInputSerial(ctx context.Context, port string, baudRate int, dst InputSubmitter, log Logger) error {
	if baudRate <= 0 {
		baudRate = 115200
	}
	p, err := serial.Open(port, &serial.Mode{BaudRate: baudRate})
	if err != nil {
		return fmt.Errorf("open serial %s: %w", port, err)
	}

	stop := context.AfterFunc(ctx, func() { p.Close() })
	defer stop()
	defer p.Close()

	err = ScanInputs(p, InputHandler(dst, log))
	if ctx.Err() != nil {
		return nil
	}
	return err
}

// ScanInputs feeds each non-empty line of r to handle until EOF or a read
// error.
func ScanInputs(r io.Reader, handle func([]byte)) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := sc.Bytes()
		if len(line) == 0 {
			continue
		}
		handle(line)
	}
	if err := sc.Err(); err != nil {
		return fmt.Errorf("read controller: %w", err)
	}
	return nil
}
