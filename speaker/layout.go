// SPDX-License-Identifier: EPL-2.0

package speaker

import (
	"fmt"
	"math"
)

// Vec3 is a position in listener space. X is right, Y is up, Z is forward.
type Vec3 struct {
	X, Y, Z float32
}

func (v Vec3) String() string {
	return fmt.Sprintf("(%g, %g, %g)", v.X, v.Y, v.Z)
}

// Layout is the speaker geometry declared by a frame's metadata.
type Layout struct {
	Positions []Vec3
	// Gains parallels Positions; a missing entry means unity gain.
	Gains       []float32
	ObjectBased bool
}

// Len is the number of declared speakers.
func (l Layout) Len() int { return len(l.Positions) }

// Gain returns the gain of speaker i, defaulting to 1.
func (l Layout) Gain(i int) float32 {
	if i < 0 || i >= len(l.Gains) {
		return 1
	}

	return l.Gains[i]
}

// Clone returns a deep copy.
func (l Layout) Clone() Layout {
	out := Layout{ObjectBased: l.ObjectBased}
	if l.Positions != nil {
		out.Positions = append([]Vec3(nil), l.Positions...)
	}
	if l.Gains != nil {
		out.Gains = append([]float32(nil), l.Gains...)
	}

	return out
}

// Template returns the canonical positions for topology t at distance d.
// Circular needs a count, so it and the metadata/none topologies return nil.
func Template(t Topology, d float32) []Vec3 {
	switch t {
	case Quad:
		return []Vec3{{-d, 0, d}, {d, 0, d}, {-d, 0, -d}, {d, 0, -d}}
	case Surround51:
		return []Vec3{{-d, 0, d}, {d, 0, d}, {0, 0, d}, {0, 0, 0}, {-d, 0, -d}, {d, 0, -d}}
	case Surround71:
		return []Vec3{
			{-d, 0, d}, {d, 0, d}, {0, 0, d}, {0, 0, 0},
			{-d, 0, 0}, {d, 0, 0}, {-d, 0, -d}, {d, 0, -d},
		}
	default:
		return nil
	}
}

// Circle places n speakers evenly on the XZ plane at radius d; speaker i sits
// at angle 2πi/n.
func Circle(n int, d float32) []Vec3 {
	if n <= 0 {
		return nil
	}

	out := make([]Vec3, n)
	for i := range n {
		angle := float64(i) * 2 * math.Pi / float64(n)
		out[i] = Vec3{
			X: float32(math.Cos(angle)) * d,
			Z: float32(math.Sin(angle)) * d,
		}
	}

	return out
}
