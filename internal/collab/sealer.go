package collab

import (
	"context"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/roach88/bequest/internal/ir"
	"github.com/roach88/bequest/internal/plan"
)

// Ciphertext layout:
//
//	version (1) | n (1) | n × recipient digest (8) | nonce (12) | GCM sealed descriptor
//
// The header is authenticated as additional data.
const (
	sealVersion = 1
	digestSize  = 8
	headerFixed = 2
)

// hkdfInfo separates the allocation key from anything else derived from the
// same secret.
const hkdfInfo = "bequest/allocation-key/v1"

var (
	errTruncated  = errors.New("ciphertext truncated")
	errBadVersion = errors.New("unknown ciphertext version")
)

// Sealer encrypts allocation descriptors with AES-256-GCM.
//
// Thread-safety: stateless after construction; safe for concurrent use.
type Sealer struct {
	aead cipher.AEAD
	rand io.Reader
}

// NewSealer derives a 32-byte AES key from secret with HKDF-SHA256.
func NewSealer(secret []byte) (*Sealer, error) {
	if len(secret) == 0 {
		return nil, errors.New("sealer: secret must not be empty")
	}
	key := make([]byte, 32)
	if _, err := io.ReadFull(hkdf.New(sha256.New, secret, nil, []byte(hkdfInfo)), key); err != nil {
		return nil, fmt.Errorf("sealer: derive key: %w", err)
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("sealer: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("sealer: %w", err)
	}
	return &Sealer{aead: gcm, rand: rand.Reader}, nil
}

// Encrypt seals descriptor for recipients.
func (s *Sealer) Encrypt(_ context.Context, descriptor []byte, recipients []plan.Identity) ([]byte, error) {
	if len(recipients) == 0 {
		return nil, errors.New("sealer: no recipients")
	}
	if len(recipients) > 255 {
		return nil, fmt.Errorf("sealer: %d recipients exceed the header limit", len(recipients))
	}

	header := make([]byte, 0, headerFixed+digestSize*len(recipients))
	header = append(header, sealVersion, byte(len(recipients)))
	for _, r := range recipients {
		d := ir.RecipientDigest(string(r))
		header = append(header, d[:]...)
	}

	nonce := make([]byte, s.aead.NonceSize())
	if _, err := io.ReadFull(s.rand, nonce); err != nil {
		return nil, fmt.Errorf("sealer: nonce: %w", err)
	}

	out := append(header, nonce...)
	return s.aead.Seal(out, nonce, descriptor, header), nil
}

// VerifyDecryption reports whether who is a recipient of an authentic
// ciphertext. A tampered or foreign ciphertext is an error.
func (s *Sealer) VerifyDecryption(_ context.Context, who plan.Identity, ciphertext []byte) (bool, error) {
	digests, _, err := s.open(ciphertext)
	if err != nil {
		return false, err
	}
	want := ir.RecipientDigest(string(who))
	for _, d := range digests {
		if d == want {
			return true, nil
		}
	}
	return false, nil
}

// Open authenticates ciphertext and returns the descriptor.
func (s *Sealer) Open(ciphertext []byte) ([]byte, error) {
	_, descriptor, err := s.open(ciphertext)
	return descriptor, err
}

func (s *Sealer) open(ciphertext []byte) ([][digestSize]byte, []byte, error) {
	if len(ciphertext) < headerFixed {
		return nil, nil, errTruncated
	}
	if ciphertext[0] != sealVersion {
		return nil, nil, errBadVersion
	}
	n := int(ciphertext[1])
	headerLen := headerFixed + n*digestSize
	if len(ciphertext) < headerLen+s.aead.NonceSize()+s.aead.Overhead() {
		return nil, nil, errTruncated
	}

	header := ciphertext[:headerLen]
	nonce := ciphertext[headerLen : headerLen+s.aead.NonceSize()]
	sealed := ciphertext[headerLen+s.aead.NonceSize():]

	descriptor, err := s.aead.Open(nil, nonce, sealed, header)
	if err != nil {
		return nil, nil, fmt.Errorf("sealer: ciphertext failed authentication")
	}

	digests := make([][digestSize]byte, n)
	for i := range digests {
		copy(digests[i][:], header[headerFixed+i*digestSize:])
	}
	return digests, descriptor, nil
}
