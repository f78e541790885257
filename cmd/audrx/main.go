// SPDX-License-Identifier: EPL-2.0

// Command audrx plays, renders and inspects audio through the receiver.
package main

import (
	"os"
)

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}
