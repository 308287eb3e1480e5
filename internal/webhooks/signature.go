package webhooks

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

const signaturePrefix = "sha256="

func digest(secret string, body []byte) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return mac.Sum(nil)
}

// SignHMAC returns the X-Signature header value for body:
// "sha256=" followed by the lowercase hex HMAC-SHA256.
func SignHMAC(secret string, body []byte) string {
	return signaturePrefix + hex.EncodeToString(digest(secret, body))
}

// VerifyHMAC checks an X-Signature header against the raw body.
func VerifyHMAC(secret string, body []byte, header string) bool {
	sig, ok := strings.CutPrefix(header, signaturePrefix)
	if !ok {
		return false
	}
	b, err := hex.DecodeString(sig)
	if err != nil {
		return false
	}
	return hmac.Equal(digest(secret, body), b)
}
