package feed

import (
	"context"
	"time"

	"github.com/gwillem/waypointer/pkg/joy"
)

// InputReader produces controller samples on demand, e.g. a leader arm.
type InputReader interface {
	ReadInput(ctx context.Context) (joy.Input, error)
}

// PollInputs samples r at hz until ctx is done. Read errors are logged and
// the sample skipped.
func PollInputs(ctx context.Context, r InputReader, hz int, dst InputSubmitter, log Logger) error {
	if hz <= 0 {
		hz = 10
	}
	ticker := time.NewTicker(time.Second / time.Duration(hz))
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			in, err := r.ReadInput(ctx)
			if err != nil {
				log.Logf("Controller read error: %v", err)
				continue
			}
			dst.SubmitInput(in)
		}
	}
}
