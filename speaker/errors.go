// SPDX-License-Identifier: EPL-2.0

package speaker

import "errors"

var (
	ErrNoFactory = errors.New("speaker: no endpoint factory configured")
	ErrClosed    = errors.New("speaker: manager closed")
)
