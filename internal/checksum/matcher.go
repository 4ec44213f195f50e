package checksum

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
)

// FileHash returns the SHA256 hex digest of an uploaded file, used to spot
// byte-identical re-uploads in the upload log.
func FileHash(r io.Reader) (string, error) {
	h := sha256.New()
	if _, err := io.Copy(h, r); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// Sum hashes an in-memory payload.
func Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

// Matches reports whether data hashes to the expected digest.
func Matches(data []byte, expected string) bool {
	return expected != "" && Sum(data) == expected
}
