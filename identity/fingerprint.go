package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
)

const externalKeyLen = 16

// ExternalKey is the stable building dedup key: the first 16 hex chars of
// sha256(normalized address + normalized name).
func ExternalKey(name, address string) string {
	hash := sha256.Sum256([]byte(NormalizeName(address) + NormalizeName(name)))
	return hex.EncodeToString(hash[:])[:externalKeyLen]
}

var (
	jncCodeRegex     = regexp.MustCompile(`jnc_[0-9A-Za-z]+`)
	genericCodeRegex = regexp.MustCompile(`(?:^|/)([A-Za-z]+_\d+)(?:/|$|\?|#)`)
)

// RoomCode extracts the portal room code from a detail URL. A jnc_<alnum>
// segment wins, else any <word>_<digits> path segment; "" when neither exists.
func RoomCode(detailURL string) string {
	if detailURL == "" {
		return ""
	}
	if code := jncCodeRegex.FindString(detailURL); code != "" {
		return code
	}
	if m := genericCodeRegex.FindStringSubmatch(detailURL); m != nil {
		return m[1]
	}
	return ""
}
