package uid

import (
	"crypto/rand"
	"encoding/hex"
)

// GenerateGameID returns 32 random hex characters identifying one game in
// the history table.
func GenerateGameID() string {
	bytes := make([]byte, 16)
	// crypto/rand.Read never returns an error on supported platforms
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}
