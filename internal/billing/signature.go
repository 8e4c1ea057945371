package billing

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
)

// ComputeSignature returns the hex HMAC-SHA512 of the raw, unparsed request
// body. The body must be captured before any JSON decoding so the hash covers
// exactly the bytes the provider signed.
func ComputeSignature(secret string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func VerifySignature(secret string, body []byte, header string) bool {
	if header == "" {
		return false
	}
	expected := ComputeSignature(secret, body)
	return hmac.Equal([]byte(expected), []byte(header))
}
