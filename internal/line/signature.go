package line

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
)

// SignatureHeader carries the base64 HMAC-SHA256 digest of the webhook body.
const SignatureHeader = "X-Line-Signature"

// VerifySignature reports whether claimed is the base64-encoded HMAC-SHA256
// of body keyed by the channel secret. Malformed or missing input is a plain
// mismatch, never an error; comparison is constant time.
func VerifySignature(secret, body []byte, claimed string) bool {
	if len(secret) == 0 || claimed == "" {
		return false
	}
	want, err := base64.StdEncoding.DecodeString(claimed)
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return hmac.Equal(mac.Sum(nil), want)
}

// Sign computes the signature value the platform would send for body.
// Used by tests and local tooling to forge valid webhook calls.
func Sign(secret, body []byte) string {
	mac := hmac.New(sha256.New, secret)
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}
