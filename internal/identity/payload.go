// Package identity defines what gets embedded into an issued cheat sheet:
// the compact client payload, the per-render nonce, and the signed sheet
// payload the server issues.
package identity

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"io"
	"math/big"
	"strconv"
	"time"
)

// Payload is the client-rendered QR content. It is immutable once rendered.
type Payload struct {
	UserID   string `json:"uid"`
	Email    string `json:"email"`
	CourseID string `json:"course"`
	Nonce    string `json:"nonce"`
	IssuedAt string `json:"ts"`
}

const nonceRandLen = 6

// NewNonce returns base36(unix millis) + "-" + 6 random base36 characters.
// Uniqueness is best effort; the ledger keys on the identity slot instead.
func NewNonce(now time.Time, r io.Reader) (string, error) {
	if r == nil {
		r = rand.Reader
	}
	buf := make([]byte, 0, nonceRandLen)
	max := big.NewInt(36)
	for range nonceRandLen {
		n, err := rand.Int(r, max)
		if err != nil {
			return "", fmt.Errorf("nonce: %w", err)
		}
		buf = strconv.AppendInt(buf, n.Int64(), 36)
	}
	return strconv.FormatInt(now.UnixMilli(), 36) + "-" + string(buf), nil
}

// BuildPayload assembles and serializes the client payload for one render.
func BuildPayload(userID, email, courseID, nonce string, now time.Time) ([]byte, error) {
	p := Payload{
		UserID:   userID,
		Email:    email,
		CourseID: courseID,
		Nonce:    nonce,
		IssuedAt: now.UTC().Format(time.RFC3339Nano),
	}
	return json.Marshal(p)
}
