// Package auth derives stable voter labels for callers that do not name
// themselves.
package auth

import (
	"encoding/hex"
	"strings"

	"golang.org/x/crypto/sha3"
)

const AnonymousPrefix = "anon-"

// Fingerprinter turns a client address into an opaque voter label. The
// label is keyed by a server secret so addresses cannot be recovered by
// hashing candidates.
type Fingerprinter struct {
	secret []byte
}

func NewFingerprinter(secret string) *Fingerprinter {
	return &Fingerprinter{secret: []byte(secret)}
}

// Voter returns "anon-" followed by 16 hex digits. Equal addresses give
// equal labels for the same secret.
func (f *Fingerprinter) Voter(addr string) string {
	h := sha3.New256()
	h.Write(f.secret)
	h.Write([]byte{0})
	h.Write([]byte(strings.ToLower(strings.TrimSpace(addr))))
	sum := h.Sum(nil)
	return AnonymousPrefix + hex.EncodeToString(sum[:8])
}

// IsAnonymous reports whether label was produced by Voter.
func IsAnonymous(label string) bool {
	return strings.HasPrefix(label, AnonymousPrefix)
}
