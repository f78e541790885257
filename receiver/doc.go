// SPDX-License-Identifier: EPL-2.0

// Package receiver buffers audio frames arriving from a network or file
// transport and hands them to a real-time consumer in fixed-size blocks.
//
// A producer goroutine captures frames, copies them into pooled planar
// buffers and appends them to a pending queue. Once per output cycle the
// consumer promotes pending frames into the active queue, which runs a small
// state machine:
//
//   - waiting for fill: nothing is played until the active queue holds more
//     than two frames and at least MinBufferSamples per channel;
//   - playing: blocks are extracted per channel (virtual speakers) or
//     interleaved for the device (passthrough);
//   - underrun: the queue ran dry, levels are zeroed and the buffer goes
//     back to waiting.
//
// When the queue grows beyond MaxBufferSamples the oldest frames are
// discarded down to MinBufferSamples, bounding latency.
//
// # Concurrency
//
// The buffer, statistics, received metadata and VU levels are each guarded
// by their own mutex and no two of them are held at once. Consumers are
// serialized among themselves. The consumer entry points do not allocate
// once the frame pool has warmed up.
//
// # Usage
//
//	r, _ := receiver.New(receiver.DefaultConfig(48000), dial,
//		receiver.WithFactory(endpoints))
//	_ = r.Start(ctx)
//	defer r.Close()
//
//	// audio callback
//	r.PullPassthroughBlock(out, 2)
package receiver
