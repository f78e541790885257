// SPDX-License-Identifier: EPL-2.0

package receiver

import (
	"context"
	"time"
)

// Transport delivers frames to the producer.
//
// Capture waits up to timeout for the next frame. A nil frame with a nil
// error means nothing arrived in time; io.EOF means the stream has ended
// and no more frames will come. Every returned frame must be passed back
// to Release once it has been ingested.
type Transport interface {
	Capture(ctx context.Context, timeout time.Duration) (*Frame, error)
	Release(f *Frame)
	Close() error
}

// Dialer opens a Transport. The producer calls it again after a transport
// fails.
type Dialer func(ctx context.Context) (Transport, error)
