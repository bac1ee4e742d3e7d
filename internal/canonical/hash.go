package canonical

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Hash domains. The version suffix allows changing the hashed shape later.
const (
	DomainResult   = "datapipe/result/v1"
	DomainSnapshot = "datapipe/snapshot/v1"
)

// Hash computes SHA-256 over domain, a 0x00 separator, then data.
func Hash(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// HashValue hashes the canonical JSON of v.
func HashValue(domain string, v any) (string, error) {
	data, err := Marshal(v)
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", domain, err)
	}
	return Hash(domain, data), nil
}
