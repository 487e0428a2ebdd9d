package telemetry

import (
	"crypto/md5"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
)

// NewSessionID returns a 12-character hexadecimal token used to key an
// upload when the caller does not supply its own session id. The token is
// a hash of a fresh UUID and the current UTC timestamp; it is an opaque
// identifier, not a credential.
func NewSessionID() string {
	seed := uuid.NewString() + time.Now().UTC().Format(time.RFC3339Nano)
	sum := md5.Sum([]byte(seed))
	return hex.EncodeToString(sum[:])[:12]
}
