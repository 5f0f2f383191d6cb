package webhook_test

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"os"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	webhookpkg "github.com/planora/core-service/internal/webhook"
)

var _ = Describe("SignatureVerifier", func() {
	var (
		verifier *webhookpkg.SignatureVerifier
		logger   *slog.Logger
		secret   string
		body     []byte
	)

	BeforeEach(func() {
		secret = "shared-test-secret"
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
		verifier = webhookpkg.NewSignatureVerifier(secret, logger)
		body = []byte(`{"eventType":"payment.completed","paymentIntentId":"pi_1","status":"succeeded"}`)
	})

	sign := func(key string, payload []byte) string {
		mac := hmac.New(sha256.New, []byte(key))
		mac.Write(payload)
		return hex.EncodeToString(mac.Sum(nil))
	}

	Describe("Verify", func() {
		Context("when the signature matches the raw body", func() {
			It("should accept it", func() {
				Expect(verifier.Verify(body, sign(secret, body))).To(BeTrue())
			})

			It("should agree with Sign", func() {
				Expect(verifier.Verify(body, verifier.Sign(body))).To(BeTrue())
			})
		})

		Context("when the body was tampered with", func() {
			It("should reject a mutation of the first byte", func() {
				signature := sign(secret, body)
				tampered := append([]byte{}, body...)
				tampered[0] ^= 0x01
				Expect(verifier.Verify(tampered, signature)).To(BeFalse())
			})

			It("should reject a mutation of the last byte", func() {
				signature := sign(secret, body)
				tampered := append([]byte{}, body...)
				tampered[len(tampered)-1] ^= 0x01
				Expect(verifier.Verify(tampered, signature)).To(BeFalse())
			})

			It("should reject every single-byte mutation", func() {
				signature := sign(secret, body)
				for i := range body {
					tampered := append([]byte{}, body...)
					tampered[i] ^= 0xFF
					Expect(verifier.Verify(tampered, signature)).To(BeFalse(),
						"mutation at byte %d must invalidate the signature", i)
				}
			})
		})

		Context("when the signature is wrong for the secret", func() {
			It("should reject it", func() {
				Expect(verifier.Verify(body, sign("other-secret", body))).To(BeFalse())
			})
		})

		Context("when the signature is missing or undecodable", func() {
			It("should reject an empty signature", func() {
				Expect(verifier.Verify(body, "")).To(BeFalse())
			})

			It("should reject a non-hex signature without panicking", func() {
				Expect(verifier.Verify(body, "not-a-hex-digest")).To(BeFalse())
			})

			It("should reject a truncated hex signature", func() {
				signature := sign(secret, body)
				Expect(verifier.Verify(body, signature[:32])).To(BeFalse())
			})
		})

		Context("when no secret is configured", func() {
			BeforeEach(func() {
				verifier = webhookpkg.NewSignatureVerifier("", logger)
			})

			It("should accept the development fallback literal", func() {
				Expect(verifier.Verify(body, "dummy_signature")).To(BeTrue())
			})

			It("should reject anything else", func() {
				Expect(verifier.Verify(body, sign("", body))).To(BeFalse())
			})
		})
	})
})
