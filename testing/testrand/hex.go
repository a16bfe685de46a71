// Package testrand generates throwaway random identifiers for tests.
package testrand

import "math/rand"

const hexDigits = "0123456789abcdef"

// Hex returns n random hex characters. The randomness is deliberately
// insecure, it only keeps test fixtures from colliding.
func Hex(n int) string {
	b := make([]byte, n)
	for i := range b {
		//#nosec:G404 // collision avoidance, not security
		b[i] = hexDigits[rand.Intn(len(hexDigits))]
	}
	return string(b)
}
