// SPDX-License-Identifier: EPL-2.0

package output

import (
	"fmt"
	"strings"
)

// Mode selects the provider used by a Driver.
type Mode int

const (
	// ModeAuto follows the receiver: passthrough while the source matches
	// the device, virtual speakers otherwise.
	ModeAuto Mode = iota
	ModePassthrough
	ModeChannel
	ModeListener
)

func (m Mode) String() string {
	switch m {
	case ModeAuto:
		return "auto"
	case ModePassthrough:
		return "passthrough"
	case ModeChannel:
		return "channel"
	case ModeListener:
		return "listener"
	default:
		return fmt.Sprintf("Mode(%d)", int(m))
	}
}

// ParseMode parses the names returned by Mode.String.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "auto":
		return ModeAuto, nil
	case "passthrough":
		return ModePassthrough, nil
	case "channel", "speakers":
		return ModeChannel, nil
	case "listener":
		return ModeListener, nil
	default:
		return ModeAuto, fmt.Errorf("%w: %q", ErrUnsupportedMode, s)
	}
}
