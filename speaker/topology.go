// SPDX-License-Identifier: EPL-2.0

package speaker

// Topology identifies how the active endpoints were laid out.
type Topology int

const (
	None Topology = iota
	Quad
	Surround51
	Surround71
	MetadataDefined
	Circular
)

func (t Topology) String() string {
	switch t {
	case None:
		return "none"
	case Quad:
		return "quad"
	case Surround51:
		return "5.1"
	case Surround71:
		return "7.1"
	case MetadataDefined:
		return "metadata"
	case Circular:
		return "circular"
	default:
		return "unknown"
	}
}

// ForChannels picks the automatic topology for a channel count with no
// metadata.
func ForChannels(channels int) Topology {
	switch {
	case channels <= 0:
		return None
	case channels == 4:
		return Quad
	case channels == 6:
		return Surround51
	case channels == 8:
		return Surround71
	default:
		return Circular
	}
}
