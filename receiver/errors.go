// SPDX-License-Identifier: EPL-2.0

package receiver

import "errors"

var (
	// ErrInvalidConfig is wrapped by every Config validation failure.
	ErrInvalidConfig = errors.New("invalid receiver config")

	// ErrInvalidFrame is returned for frames with no channels, no samples or
	// a short data slice.
	ErrInvalidFrame = errors.New("invalid audio frame")

	ErrNoDialer = errors.New("no transport dialer")
	ErrRunning  = errors.New("receiver already running")
)
