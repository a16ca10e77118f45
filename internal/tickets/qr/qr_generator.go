package qr

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/skip2/go-qrcode"

	"ms-events/internal/models"
)

// Reference is the payload sealed into a ticket's QR code.
type Reference struct {
	TicketID string `json:"t"`
	EventID  int64  `json:"e"`
}

type QRGenerator struct {
	aead     cipher.AEAD
	nonceKey []byte
}

func NewQRGenerator(secret string) (*QRGenerator, error) {
	if secret == "" {
		return nil, errors.New("qr secret is empty")
	}
	key := sha256.Sum256([]byte(secret)) // normalize to 32 bytes
	block, err := aes.NewCipher(key[:])
	if err != nil {
		return nil, fmt.Errorf("init cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("init gcm: %w", err)
	}
	nonceKey := sha256.Sum256([]byte("nonce:" + secret))
	return &QRGenerator{aead: aead, nonceKey: nonceKey[:]}, nil
}

// Seal encrypts ref into a URL-safe string. The nonce is derived from the
// payload, so a ticket always maps to the same value.
func (q *QRGenerator) Seal(ref Reference) (string, error) {
	plain, err := json.Marshal(ref)
	if err != nil {
		return "", err
	}
	mac := hmac.New(sha256.New, q.nonceKey)
	mac.Write(plain)
	nonce := mac.Sum(nil)[:q.aead.NonceSize()]

	sealed := q.aead.Seal(nonce, nonce, plain, nil)
	return base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Open decrypts a value produced by Seal. Tampered or foreign values fail
// with an INVALID_QR_CODE validation error.
func (q *QRGenerator) Open(value string) (*Reference, error) {
	raw, err := base64.RawURLEncoding.DecodeString(value)
	if err != nil || len(raw) < q.aead.NonceSize()+q.aead.Overhead() {
		return nil, models.NewValidation("INVALID_QR_CODE", "malformed QR code value")
	}
	nonce, sealed := raw[:q.aead.NonceSize()], raw[q.aead.NonceSize():]
	plain, err := q.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, models.NewValidation("INVALID_QR_CODE", "QR code was not issued by this service")
	}

	var ref Reference
	if err := json.Unmarshal(plain, &ref); err != nil || ref.TicketID == "" {
		return nil, models.NewValidation("INVALID_QR_CODE", "QR code payload is invalid")
	}
	return &ref, nil
}

// PNG renders value as a 256px QR code.
func (q *QRGenerator) PNG(value string) ([]byte, error) {
	return qrcode.Encode(value, qrcode.Medium, 256)
}
