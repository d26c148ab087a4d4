package logger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
)

var hashSalt string

// InitHashSalt loads the log hash salt from the environment.
// In production, set LOG_HASH_SALT.
func InitHashSalt() {
	hashSalt = os.Getenv("LOG_HASH_SALT")
	if hashSalt == "" {
		hashSalt = "default-salt-change-in-production"
	}
}

func init() {
	InitHashSalt()
}

// HashChatID creates a privacy-preserving hash of a chat ID.
// This allows correlating a chat's conversation flow in logs without
// exposing the actual Telegram identifier.
func HashChatID(chatID int64) string {
	data := fmt.Sprintf("%d:%s", chatID, hashSalt)
	hash := sha256.Sum256([]byte(data))
	// First 8 characters are enough for correlation.
	return hex.EncodeToString(hash[:])[:8]
}

// SanitizeText redacts user-provided message text while preserving
// length information for debugging.
func SanitizeText(text string) string {
	if text == "" {
		return "<empty>"
	}

	if len(text) <= 10 {
		return fmt.Sprintf("<%d chars>", len(text))
	}

	return fmt.Sprintf("%s...<%d chars>", text[:3], len(text))
}
