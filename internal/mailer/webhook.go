package mailer

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"time"
)

// maxWebhookAge bounds how old a delivery-event signature may be before
// it is rejected as a possible replay.
const maxWebhookAge = 15 * time.Minute

// WebhookSignature carries the signed fields of a delivery-provider
// event callback: an HMAC-SHA256 of timestamp concatenated with token,
// keyed by the shared signing key.
type WebhookSignature struct {
	Timestamp string `json:"timestamp"`
	Token     string `json:"token"`
	Signature string `json:"signature"`
}

// VerifyWebhookSignature checks the HMAC and the timestamp freshness
// window. It compares in constant time.
func VerifyWebhookSignature(signingKey string, sig WebhookSignature, now time.Time) bool {
	if signingKey == "" || sig.Timestamp == "" || sig.Token == "" || sig.Signature == "" {
		return false
	}

	unix, err := strconv.ParseInt(sig.Timestamp, 10, 64)
	if err != nil {
		return false
	}
	age := now.Sub(time.Unix(unix, 0))
	if age < -maxWebhookAge || age > maxWebhookAge {
		return false
	}

	mac := hmac.New(sha256.New, []byte(signingKey))
	mac.Write([]byte(sig.Timestamp + sig.Token))
	expected := hex.EncodeToString(mac.Sum(nil))

	provided, err := hex.DecodeString(sig.Signature)
	if err != nil {
		return false
	}
	expectedRaw, _ := hex.DecodeString(expected)
	return hmac.Equal(provided, expectedRaw)
}
