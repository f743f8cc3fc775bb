package security

import (
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/crypto/bcrypt"
)

// MaxPasswordBytes is the longest plaintext bcrypt accepts.
const MaxPasswordBytes = 72

// ErrPasswordTooLong is returned by Hash for plaintexts bcrypt would reject.
var ErrPasswordTooLong = errors.New("password is too long")

// Hasher produces and checks bcrypt digests. With a non-empty pepper the
// plaintext is first run through HMAC-SHA256 keyed by the pepper. With an
// empty pepper digests are plain bcrypt, which keeps digests written by
// other bcrypt implementations verifiable.
type Hasher struct {
	pepper []byte
	cost   int

	dummyOnce sync.Once
	dummy     []byte
}

// NewHasher returns a Hasher. Costs outside bcrypt's range fall back to
// bcrypt.DefaultCost.
func NewHasher(pepper string, cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return &Hasher{pepper: []byte(pepper), cost: cost}
}

func (h *Hasher) prepare(plaintext string) []byte {
	if len(h.pepper) == 0 {
		return []byte(plaintext)
	}
	mac := hmac.New(sha256.New, h.pepper)
	mac.Write([]byte(plaintext))
	return mac.Sum(nil)
}

// Hash returns a salted bcrypt digest of plaintext. Two calls with the same
// input return different digests.
func (h *Hasher) Hash(plaintext string) (string, error) {
	if len(h.pepper) == 0 && len(plaintext) > MaxPasswordBytes {
		return "", ErrPasswordTooLong
	}
	digest, err := bcrypt.GenerateFromPassword(h.prepare(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(digest), nil
}

// Verify reports whether plaintext matches digest. Malformed digests and
// any other failure yield false.
func (h *Hasher) Verify(plaintext, digest string) bool {
	if digest == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(digest), h.prepare(plaintext)) == nil
}

// VerifyDummy burns the same time as a real Verify. It is called when the
// account does not exist so response timing does not reveal that.
func (h *Hasher) VerifyDummy(plaintext string) {
	h.dummyOnce.Do(func() {
		h.dummy, _ = bcrypt.GenerateFromPassword([]byte("dummy-password"), h.cost)
	})
	_ = bcrypt.CompareHashAndPassword(h.dummy, h.prepare(plaintext))
}
