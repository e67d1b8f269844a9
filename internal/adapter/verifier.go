package adapter

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"

	"github.com/google/uuid"

	"github.com/glowbook/service-reservation/internal/domain"
)

// VerifiedEvent is a provider completion event whose signature has checked
// out. Only verified events reach the confirmation routine.
type VerifiedEvent struct {
	ProviderSessionID string
	EventType         string
	BookingIDs        []uuid.UUID
	AccountID         *uuid.UUID
	DiscountCode      string
	PreTotalCents     int64
	PostTotalCents    int64
}

// EventVerifier authenticates raw webhook deliveries.
type EventVerifier interface {
	Verify(payload []byte, signatureHeader string) (*VerifiedEvent, error)
}

// webhookEnvelope is the provider's wire format. Booking ids travel in the
// event metadata, matching the session created at checkout.
type webhookEnvelope struct {
	Type      string `json:"type"`
	SessionID string `json:"session_id"`
	Metadata  struct {
		BookingIDs     []uuid.UUID `json:"booking_ids"`
		AccountID      *uuid.UUID  `json:"account_id,omitempty"`
		DiscountCode   string      `json:"discount_code,omitempty"`
		PreTotalCents  int64       `json:"pre_total_cents"`
		PostTotalCents int64       `json:"post_total_cents"`
	} `json:"metadata"`
}

// HMACVerifier validates deliveries signed with HMAC-SHA256 over the raw
// payload, hex-encoded in the signature header.
type HMACVerifier struct {
	secret []byte
}

// NewHMACVerifier creates a verifier for the shared webhook secret.
func NewHMACVerifier(secret string) *HMACVerifier {
	return &HMACVerifier{secret: []byte(secret)}
}

// Verify checks the signature and decodes the event. A failed check is
// rejected before any side effect.
func (v *HMACVerifier) Verify(payload []byte, signatureHeader string) (*VerifiedEvent, error) {
	if signatureHeader == "" {
		return nil, domain.NewVerificationError("missing signature header")
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))
	if !hmac.Equal([]byte(expected), []byte(signatureHeader)) {
		return nil, domain.NewVerificationError("signature mismatch")
	}

	var env webhookEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return nil, domain.NewVerificationError("malformed event payload")
	}
	if env.SessionID == "" || len(env.Metadata.BookingIDs) == 0 {
		return nil, domain.NewVerificationError("event missing session id or booking ids")
	}

	return &VerifiedEvent{
		ProviderSessionID: env.SessionID,
		EventType:         env.Type,
		BookingIDs:        env.Metadata.BookingIDs,
		AccountID:         env.Metadata.AccountID,
		DiscountCode:      env.Metadata.DiscountCode,
		PreTotalCents:     env.Metadata.PreTotalCents,
		PostTotalCents:    env.Metadata.PostTotalCents,
	}, nil
}

// Sign computes the signature the provider would attach to payload. Used by
// tests and the mock provider tooling.
func (v *HMACVerifier) Sign(payload []byte) string {
	mac := hmac.New(sha256.New, v.secret)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}
