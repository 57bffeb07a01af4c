package core

import (
	"crypto/sha256"
	"encoding/hex"
	"net/url"
	"strings"
)

func trimInput(s string) string {
	return strings.TrimSpace(s)
}

func looksLikeURL(lower string) bool {
	return strings.HasPrefix(lower, "http") || strings.Contains(lower, "://")
}

// Classify decides whether raw is a URL, an on-chain address or a name.
func Classify(raw string) InputKind {
	lower := strings.ToLower(trimInput(raw))
	switch {
	case looksLikeURL(lower):
		return InputKindURL
	case isHexAddress(lower):
		return InputKindAddress
	default:
		return InputKindName
	}
}

func isHexAddress(s string) bool {
	hexPart, ok := strings.CutPrefix(s, "0x")
	if !ok || hexPart == "" {
		return false
	}
	for _, r := range hexPart {
		if !strings.ContainsRune("0123456789abcdef", r) {
			return false
		}
	}
	return true
}

// Normalize canonicalizes an input into a stable key. URLs lose their scheme,
// a leading "www.", the query and any trailing slash; everything is trimmed
// and lower-cased. Normalize(Normalize(x)) == Normalize(x).
func Normalize(raw string) string {
	s := strings.ToLower(trimInput(raw))
	if !looksLikeURL(s) {
		return s
	}

	parsed, err := url.Parse(s)
	if err != nil || parsed.Host == "" {
		return strings.TrimRight(s, "/")
	}
	host := strings.TrimPrefix(parsed.Host, "www.")
	return strings.TrimRight(host+parsed.Path, "/")
}

// Fingerprint is the hex SHA-256 of Normalize(raw) + "|" + extra.
func Fingerprint(raw, extra string) string {
	sum := sha256.Sum256([]byte(Normalize(raw) + "|" + extra))
	return hex.EncodeToString(sum[:])
}
