// SPDX-License-Identifier: EPL-2.0

package output

import "errors"

var (
	ErrUnsupportedMode = errors.New("unsupported output mode")
	ErrInvalidChannels = errors.New("invalid channel count")
	ErrNoListener      = errors.New("listener provider not configured")
)
