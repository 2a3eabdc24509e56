// Package crypto implements the certificate signature used by the
// conduit.connect handshake.
package crypto

import (
	"crypto/sha1"
	"encoding/hex"
	"strconv"
)

// AuthToken formats a handshake timestamp the way the server reproduces it
// when checking the signature.
func AuthToken(unix int64) string {
	return strconv.FormatInt(unix, 10)
}

// SignAuthToken returns the hex SHA-1 of token concatenated with cert.
//
// The server recomputes the same digest from the stored certificate, so the
// bytes must match exactly: no separator, no trimming.
func SignAuthToken(token, cert string) string {
	sum := sha1.Sum([]byte(token + cert))
	return hex.EncodeToString(sum[:])
}
