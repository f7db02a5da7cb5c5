// Package uid provides unique identifier generation for folderstore.
package uid

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// New generates a 24-character hex string used for temp file names and other
// short-lived identifiers.
func New() string {
	b := make([]byte, 12)
	if _, err := rand.Read(b); err != nil {
		// crypto/rand never fails in practice; fall back to a timestamp
		// rather than panicking.
		return fmt.Sprintf("%024x", time.Now().UnixNano())
	}
	return hex.EncodeToString(b)
}
