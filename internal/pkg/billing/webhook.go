package billing

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// placeholderWebhookSecret is the value infra seeds before the real signing
// secret exists. Treated the same as an unset secret.
const placeholderWebhookSecret = "whsec_placeholder"

// WebhookSecretConfigured reports whether signature verification can run.
// An unset or placeholder secret puts the webhook handler into its degraded
// accept-unverified mode.
func WebhookSecretConfigured(secret string) bool {
	s := strings.TrimSpace(secret)
	return s != "" && s != placeholderWebhookSecret
}

// FallbackEventID derives a deterministic event ID from the payload for
// deliveries that carry none, so deduplication still works.
func FallbackEventID(payload []byte) string {
	sum := sha256.Sum256(payload)
	return "hash:" + hex.EncodeToString(sum[:])
}
