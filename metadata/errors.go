// SPDX-License-Identifier: EPL-2.0

package metadata

import "errors"

var (
	ErrMalformed    = errors.New("metadata: malformed speaker geometry")
	ErrMissingCoord = errors.New("metadata: speaker is missing a coordinate")
	ErrGainMismatch = errors.New("metadata: gains do not match positions")
)
