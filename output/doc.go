// SPDX-License-Identifier: EPL-2.0

// Package output turns a receiver into device-ready interleaved audio.
//
// A Driver holds one of three providers and can switch between them while
// the device is running:
//
//   - Passthrough copies the source channels straight to the device.
//   - Channel renders every active virtual speaker as a mono signal panned
//     onto the device channels by its position.
//   - Listener plays audio pushed into it with Write, bypassing the
//     receiver buffer.
//
// Device wires a Driver to a miniaudio playback device through malgo.
package output
