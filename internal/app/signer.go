package app

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"safepass-compliance/internal/domain"
)

// Signer computes and checks compliance record signatures with a per-deployment key.
type Signer struct {
	key []byte
}

// NewSigner returns ErrMissingSigningKey for an empty secret.
func NewSigner(secret string) (*Signer, error) {
	if secret == "" {
		return nil, domain.ErrMissingSigningKey
	}
	return &Signer{key: []byte(secret)}, nil
}

// Sign returns the hex HMAC-SHA256 of the record's canonical form. The stored signature is ignored.
func (s *Signer) Sign(record domain.ComplianceRecord) (string, error) {
	payload, err := canonicalRecord(record)
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, s.key)
	mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil)), nil
}

// Verify recomputes the signature and compares it in constant time.
func (s *Signer) Verify(record domain.ComplianceRecord) bool {
	want, err := s.Sign(record)
	if err != nil {
		return false
	}
	got, err := hex.DecodeString(record.Signature)
	if err != nil {
		return false
	}
	expected, _ := hex.DecodeString(want)
	return hmac.Equal(got, expected)
}

// canonicalRecord serializes every field but the signature as a sorted-key JSON object.
// encoding/json writes map keys in sorted order, which makes the form independent of struct layout.
func canonicalRecord(r domain.ComplianceRecord) ([]byte, error) {
	fields := map[string]any{
		"driverId":    r.DriverID,
		"weekNumber":  r.WeekNumber,
		"year":        r.Year,
		"status":      string(r.Status),
		"score":       nil,
		"completedAt": nil,
	}
	if r.Score != nil {
		fields["score"] = *r.Score
	}
	if r.CompletedAt != nil {
		fields["completedAt"] = r.CompletedAt.Unix()
	}
	out, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("canonical record: %w", err)
	}
	return out, nil
}
