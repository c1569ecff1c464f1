package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainDefinition separates definition hashes from any other hashed content.
const DomainDefinition = "choreo/definition/v1"

// hashWithDomain computes SHA256(domain + 0x00 + data).
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// DefinitionHash returns the content hash of a definition's canonical form.
// Two definitions that differ only in key order or name normalization hash
// identically.
func DefinitionHash(def *Definition) (string, error) {
	canonical, err := MarshalCanonical(def)
	if err != nil {
		return "", fmt.Errorf("DefinitionHash: %w", err)
	}
	return hashWithDomain(DomainDefinition, canonical), nil
}
