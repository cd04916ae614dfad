// Package canonical provides the digest and deterministic-encoding primitives
// shared by the audit chain and the snapshot freeze chain.
//
// Encode produces RFC 8785 (JSON Canonicalization Scheme) output, so two
// semantically equal values serialize to identical bytes regardless of map
// key order. Every digest that an independent verifier must be able to
// reproduce is computed over canonical bytes.
package canonical

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"
)

// Digest returns the hex-encoded SHA-256 digest of data.
func Digest(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// DigestString returns the hex-encoded SHA-256 digest of s.
func DigestString(s string) string {
	return Digest([]byte(s))
}

// Encode serializes v to RFC 8785 canonical JSON: keys sorted by UTF-16 code
// units, sequence order preserved, ES6 number formatting.
func Encode(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonical encode: %w", err)
	}
	out, err := jcs.Transform(raw)
	if err != nil {
		return nil, fmt.Errorf("canonical transform: %w", err)
	}
	return out, nil
}

// DigestValue returns the digest of the canonical encoding of v.
func DigestValue(v any) (string, error) {
	b, err := Encode(v)
	if err != nil {
		return "", err
	}
	return Digest(b), nil
}
