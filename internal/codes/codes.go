// README: One-time security code generation for handoff verification.
package codes

import "crypto/rand"

// Alphabet excludes lookalike symbols (0/O, 1/I/L); codes are relayed over
// the phone or read off a label by the driver.
const alphabet = "23456789ABCDEFGHJKMNPQRSTUVWXYZ"

// DefaultLength gives a code space of 31^6 (~890M), plenty for codes that
// live only as long as one mission-parcel link.
const DefaultLength = 6

// Generate returns a random alphanumeric code of length n (DefaultLength if
// n <= 0). Each call draws independently from crypto/rand, so concurrent
// callers share no mutable state.
func Generate(n int) string {
	if n <= 0 {
		n = DefaultLength
	}
	buf := make([]byte, n)
	_, _ = rand.Read(buf)
	for i, b := range buf {
		buf[i] = alphabet[int(b)%len(alphabet)]
	}
	return string(buf)
}
