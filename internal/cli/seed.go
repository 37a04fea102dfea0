package cli

import (
	"crypto/rand"
	"encoding/binary"
)

// randomSeed draws an 8-byte seed from OS entropy for runs that don't
// pass -S (spec.md §6: "-S SEED -- u64 seed; optional").
func randomSeed() uint64 {
	var buf [8]byte

	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand reading from the OS source failing is not a case
		// fsx can usefully recover from or report cleanly; fall back to a
		// fixed seed rather than leaving Seed at zero silently.
		return 0xA5A5A5A5A5A5A5A5
	}

	return binary.LittleEndian.Uint64(buf[:])
}
