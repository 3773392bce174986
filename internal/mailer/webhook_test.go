package mailer

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func signedWebhook(key string, at time.Time) WebhookSignature {
	timestamp := strconv.FormatInt(at.Unix(), 10)
	token := "c1d2e3f4a5b6"
	mac := hmac.New(sha256.New, []byte(key))
	mac.Write([]byte(timestamp + token))
	return WebhookSignature{
		Timestamp: timestamp,
		Token:     token,
		Signature: hex.EncodeToString(mac.Sum(nil)),
	}
}

func TestVerifyWebhookSignature(t *testing.T) {
	const key = "whsec-test"
	now := time.Now()

	t.Run("valid signature accepted", func(t *testing.T) {
		assert.True(t, VerifyWebhookSignature(key, signedWebhook(key, now), now))
	})

	t.Run("wrong key rejected", func(t *testing.T) {
		assert.False(t, VerifyWebhookSignature(key, signedWebhook("other-key", now), now))
	})

	t.Run("tampered token rejected", func(t *testing.T) {
		sig := signedWebhook(key, now)
		sig.Token = "tampered"
		assert.False(t, VerifyWebhookSignature(key, sig, now))
	})

	t.Run("stale timestamp rejected", func(t *testing.T) {
		old := now.Add(-time.Hour)
		assert.False(t, VerifyWebhookSignature(key, signedWebhook(key, old), now))
	})

	t.Run("missing key rejected", func(t *testing.T) {
		assert.False(t, VerifyWebhookSignature("", signedWebhook(key, now), now))
	})

	t.Run("non-hex signature rejected", func(t *testing.T) {
		sig := signedWebhook(key, now)
		sig.Signature = "not-hex"
		assert.False(t, VerifyWebhookSignature(key, sig, now))
	})
}
