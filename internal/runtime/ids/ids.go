package ids

import (
	"crypto/rand"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
)

var (
	entropyMu sync.Mutex
	entropy   = ulid.Monotonic(rand.Reader, 0)
)

// CreateULID returns a time-sortable ULID encoded as a 26-character string.
func CreateULID() string {
	entropyMu.Lock()
	defer entropyMu.Unlock()

	id := ulid.MustNew(ulid.Timestamp(time.Now()), entropy)
	return id.String()
}

const suffixAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// RandomSuffix returns n characters drawn uniformly from [a-zA-Z0-9] using
// crypto/rand. Rejection sampling keeps the distribution unbiased.
func RandomSuffix(n int) string {
	out := make([]byte, 0, n)
	buf := make([]byte, n)
	// 248 is the largest multiple of len(suffixAlphabet) below 256.
	const limit = 248
	for len(out) < n {
		if _, err := rand.Read(buf); err != nil {
			panic("beamline: reading random bytes failed: " + err.Error())
		}
		for _, b := range buf {
			if b >= limit {
				continue
			}
			out = append(out, suffixAlphabet[int(b)%len(suffixAlphabet)])
			if len(out) == n {
				break
			}
		}
	}
	return string(out)
}
