package app

import (
	"crypto/rand"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

func newID() string {
	return uuid.NewString()
}

// newTicketCode returns a random 16-hex-char uppercase code. Uniqueness is
// enforced at issuance by checking the registry and retrying.
func newTicketCode() string {
	b := make([]byte, 8)
	if _, err := rand.Read(b); err != nil {
		// Fall back to a UUID-derived code; rand failing here means the
		// process is in far deeper trouble than ticket minting.
		return strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	}
	return strings.ToUpper(hex.EncodeToString(b))
}
