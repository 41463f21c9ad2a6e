package lockmgr

import (
	"crypto/rand"
)

const (
	ownerIDLength = 256
)

// generateOwnerID creates a new unique owner ID
// The owner ID is a random byte slice of length 256.
func generateOwnerID() ([]byte, error) {
	randomBytes := make([]byte, ownerIDLength)
	_, err := rand.Read(randomBytes)
	return randomBytes, err
}
