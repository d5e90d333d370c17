package hash

import (
	"crypto/sha256"
	"encoding/hex"
)

// SHA256Hex returns the hex-encoded SHA256 hash of the input string.
func SHA256Hex(input string) string {
	h := sha256.Sum256([]byte(input))
	return hex.EncodeToString(h[:])
}

// IteratedSHA256 applies SHA256 iteratively n times to produce a derived hash.
func IteratedSHA256(input string, iterations int) string {
	data := []byte(input)
	for range iterations {
		h := sha256.Sum256(data)
		data = h[:]
	}
	return hex.EncodeToString(data)
}

// DeviceIterations is the work factor for deriving the wire identifier from
// the locally persisted device secret.
const DeviceIterations = 5000

// HashDeviceSecret derives the public device identifier sent to the server
// from the locally stored secret. The server only ever sees the digest, so
// the ledger cannot be joined against anything a browser leaks elsewhere.
func HashDeviceSecret(secret string) string {
	return IteratedSHA256(secret, DeviceIterations)
}

// HashIP hashes an IP address with a salt for abuse correlation in logs.
func HashIP(ip, salt string) string {
	return SHA256Hex(salt + ip)
}
