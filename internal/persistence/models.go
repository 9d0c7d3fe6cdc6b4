package persistence

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Wipe is a recorded server wipe. The latest wipe drives the wipe cooldown.
type Wipe struct {
	ID         string
	At         time.Time
	Reason     string
	RecordedAt time.Time
}

// RuleSet is a stored raid rules document. Documents are kept verbatim so
// the exact YAML that was applied can be reloaded on restart.
type RuleSet struct {
	ID        string
	Document  []byte
	Checksum  string
	CreatedAt time.Time
}

// Checksum returns the hex sha256 of a rules document.
func Checksum(document []byte) string {
	sum := sha256.Sum256(document)
	return hex.EncodeToString(sum[:])
}
