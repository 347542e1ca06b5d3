// internal/pkg/deviceid/deviceid.go
package deviceid

import (
	"strings"

	"github.com/oklog/ulid/v2"
)

// Identity is the opaque per-device value threaded explicitly through every
// call that needs anti-abuse correlation. Generated once, persisted by the
// client, never treated as a secret.
type Identity string

const maxLen = 64

// New mints a fresh device identity.
func New() Identity {
	return Identity(ulid.Make().String())
}

// Normalize validates a client-supplied identity, minting a new one when the
// supplied value is absent or unusable.
func Normalize(raw string) (Identity, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" || len(raw) > maxLen {
		return New(), true
	}
	for _, r := range raw {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		case r == '-' || r == '_':
		default:
			return New(), true
		}
	}
	return Identity(raw), false
}

func (id Identity) String() string {
	return string(id)
}
