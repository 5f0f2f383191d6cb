package webhook

import (
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"log/slog"
)

// dummySignature is the development fallback used when no shared secret is
// configured. Config validation rejects an empty secret in production, so
// this only ever matches against a local payment-service stub.
const dummySignature = "dummy_signature"

// SignatureVerifier checks the HMAC-SHA-256 hex digest the payment service
// sends in X-Webhook-Signature. The digest is computed over the exact raw
// bytes received on the wire, not a re-serialized form, so canonicalization
// never diverges between the two services.
type SignatureVerifier struct {
	secret string
	logger *slog.Logger
}

func NewSignatureVerifier(secret string, logger *slog.Logger) *SignatureVerifier {
	return &SignatureVerifier{
		secret: secret,
		logger: logger,
	}
}

// Sign returns the hex HMAC-SHA-256 of body under the shared secret.
func (v *SignatureVerifier) Sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(v.secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// Verify reports whether received matches the digest of body. Comparison is
// constant time over the decoded byte buffers; anything missing or not
// hex-decodable is simply invalid, no error surfaces.
func (v *SignatureVerifier) Verify(body []byte, received string) bool {
	if received == "" {
		return false
	}

	if v.secret == "" {
		v.logger.Warn("webhook secret not configured, using development fallback signature")
		return subtle.ConstantTimeCompare([]byte(received), []byte(dummySignature)) == 1
	}

	receivedBytes, err := hex.DecodeString(received)
	if err != nil {
		return false
	}

	mac := hmac.New(sha256.New, []byte(v.secret))
	mac.Write(body)
	expected := mac.Sum(nil)

	return hmac.Equal(receivedBytes, expected)
}
