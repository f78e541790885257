// SPDX-License-Identifier: EPL-2.0

package utils

// Lerp returns a + (b-a)*t.
func Lerp(a, b, t float32) float32 {
	return a + (b-a)*t
}
