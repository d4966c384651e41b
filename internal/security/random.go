package security

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
)

// GenerateSecret returns a hex-encoded random secret of n bytes.
func GenerateSecret(n int) (string, error) {
	if n <= 0 {
		n = 32
	}
	secret := make([]byte, n)
	if _, err := io.ReadFull(rand.Reader, secret); err != nil {
		return "", fmt.Errorf("generate secret: %w", err)
	}
	return hex.EncodeToString(secret), nil
}
