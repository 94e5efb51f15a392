package identity

import (
	"encoding/json"
	"fmt"

	"github.com/kwarc/cheatsheets/internal/cryptox"
)

// SigningInfo scopes the key derived from the configured QR secret.
const SigningInfo = "cheatsheet-qr-v1"

// Sheet carries the identity fields of a server-issued sheet.
type Sheet struct {
	GenerationID string `json:"generationId"`
	UniversityID string `json:"universityId"`
	InstanceID   string `json:"instanceId"`
	CourseID     string `json:"courseId"`
	CourseName   string `json:"-"`
	StudentID    string `json:"studentId"`
	StudentName  string `json:"studentName"`
	WeekID       string `json:"weekId"`
	DownloadDate string `json:"downloadDate"`
	// Nonce distinguishes renders of the same slot.
	Nonce string `json:"nonce,omitempty"`
}

// Envelope wraps a serialized payload with its hex HMAC signature.
type Envelope struct {
	Payload   string `json:"payload"`
	Signature string `json:"signature"`
}

// Signer seals and opens envelopes with a key derived from a secret.
type Signer struct {
	key []byte
}

// NewSigner derives the envelope key from secret.
func NewSigner(secret string) (*Signer, error) {
	if secret == "" {
		return nil, fmt.Errorf("empty signing secret")
	}
	key, err := cryptox.DeriveKey([]byte(secret), SigningInfo)
	if err != nil {
		return nil, err
	}
	return &Signer{key: key}, nil
}

// Seal serializes s and returns the JSON envelope text.
func (sg *Signer) Seal(s Sheet) ([]byte, error) {
	inner, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal sheet: %w", err)
	}
	return json.Marshal(Envelope{
		Payload:   string(inner),
		Signature: cryptox.Sign(sg.key, inner),
	})
}

// Verify reports whether env carries a valid signature.
func (sg *Signer) Verify(env Envelope) bool {
	return cryptox.Verify(sg.key, []byte(env.Payload), env.Signature)
}
