// Package submissionid generates correlation identifiers for accepted contact
// submissions in the form CONTACT_<unixMillis>_<9 base36 characters>.
//
// Identifiers are unique with overwhelming probability at the request rates a
// contact form sees; they are meant for correlation and debugging, not as a
// collision-free primary key.
package submissionid

import (
	"crypto/rand"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	prefix       = "CONTACT"
	suffixLength = 9
	alphabet     = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// ErrMalformed is returned by Parse for strings that are not submission identifiers.
var ErrMalformed = errors.New("submissionid: malformed identifier")

// Generator produces submission identifiers.
type Generator struct {
	now func() time.Time
}

// New creates a Generator. A nil clock uses time.Now.
func New(now func() time.Time) *Generator {
	if now == nil {
		now = time.Now
	}
	return &Generator{now: now}
}

// Generate returns a new identifier.
func (g *Generator) Generate() string {
	return fmt.Sprintf("%s_%d_%s", prefix, g.now().UnixMilli(), randomSuffix())
}

func randomSuffix() string {
	buf := make([]byte, suffixLength)
	// crypto/rand.Read never returns an error on supported platforms.
	_, _ = rand.Read(buf)
	out := make([]byte, suffixLength)
	for i, b := range buf {
		// 252 = 7*36 keeps the distribution uniform.
		for b >= 252 {
			var one [1]byte
			_, _ = rand.Read(one[:])
			b = one[0]
		}
		out[i] = alphabet[int(b)%len(alphabet)]
	}
	return string(out)
}

// Parse returns the timestamp embedded in id.
func Parse(id string) (time.Time, error) {
	parts := strings.Split(id, "_")
	if len(parts) != 3 || parts[0] != prefix || len(parts[2]) != suffixLength {
		return time.Time{}, ErrMalformed
	}
	ms, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil || ms < 0 {
		return time.Time{}, ErrMalformed
	}
	for _, c := range parts[2] {
		if !strings.ContainsRune(alphabet, c) {
			return time.Time{}, ErrMalformed
		}
	}
	return time.UnixMilli(ms).UTC(), nil
}
