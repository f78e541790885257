// SPDX-License-Identifier: EPL-2.0

package output

import (
	"math"

	"github.com/ik5/audrx/speaker"
)

// deviceDirections places the device channels around the listener using the
// same conventions as the virtual speakers. Mono has no direction.
func deviceDirections(channels int) []speaker.Vec3 {
	switch {
	case channels <= 1:
		return nil
	case channels == 2:
		return []speaker.Vec3{{X: -1, Z: 1}, {X: 1, Z: 1}}
	}

	if dirs := speaker.Template(speaker.ForChannels(channels), 1); dirs != nil {
		return dirs
	}

	return speaker.Circle(channels, 1)
}

func normalize(v speaker.Vec3) (speaker.Vec3, bool) {
	l := float32(math.Sqrt(float64(v.X*v.X + v.Y*v.Y + v.Z*v.Z)))
	if l == 0 {
		return v, false
	}

	return speaker.Vec3{X: v.X / l, Y: v.Y / l, Z: v.Z / l}, true
}

// panGains returns constant-power gains for a source at pos over the device
// channel directions. Each channel gets the cosine between its direction
// and the source, clamped at zero. A source at the origin, or one no channel
// faces, is spread evenly over the directional channels.
func panGains(pos speaker.Vec3, dirs []speaker.Vec3) []float32 {
	if len(dirs) == 0 {
		return []float32{1}
	}

	gains := make([]float32, len(dirs))
	src, ok := normalize(pos)

	var power float32
	if ok {
		for i, d := range dirs {
			u, ok := normalize(d)
			if !ok {
				continue
			}
			if c := src.X*u.X + src.Y*u.Y + src.Z*u.Z; c > 0 {
				gains[i] = c
				power += c * c
			}
		}
	}

	if power == 0 {
		for i, d := range dirs {
			if _, ok := normalize(d); ok {
				gains[i] = 1
				power++
			}
		}
	}

	if power == 0 {
		return gains
	}

	scale := float32(1 / math.Sqrt(float64(power)))
	for i := range gains {
		gains[i] *= scale
	}

	return gains
}
