// SPDX-License-Identifier: EPL-2.0

package audio

// UpMixMode selects how a single source channel is written into an
// interleaved block with more than one output slot.
type UpMixMode int

const (
	// UpMixDuplicate copies the sample into every output slot of the frame.
	UpMixDuplicate UpMixMode = iota
	// UpMixSpatial writes the sample only into slot channel%outChannels and
	// leaves the other slots untouched.
	UpMixSpatial
)

func (m UpMixMode) String() string {
	switch m {
	case UpMixDuplicate:
		return "duplicate"
	case UpMixSpatial:
		return "spatial"
	default:
		return "unknown"
	}
}
