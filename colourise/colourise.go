// Package colourise colours terminal output deterministically: the same
// string gets the same colour on every run, which makes related log
// lines easy to spot.
package colourise

import (
	"fmt"
	"hash/crc32"
)

// ansi 256-colour starting points that read well on dark terminals
var palette = []uint8{33, 39, 45, 69, 75, 81, 111, 117, 141, 147, 177, 183, 208, 214, 220}

// ApplyColour wraps value in ANSI escape sequences, picking the colour
// by hash of the value. The returned string ends with the reset
// sequence.
func ApplyColour(value string) string {
	i := crc32.ChecksumIEEE([]byte(value)) % uint32(len(palette))
	return fmt.Sprintf("\033[1;38;5;%dm%s\033[0m", palette[i], value)
}

// ErrorHighlight renders s as a highlighted error, white on red.
func ErrorHighlight(s string) string {
	return fmt.Sprintf("\033[1;37;41m%s\033[0m", s)
}
