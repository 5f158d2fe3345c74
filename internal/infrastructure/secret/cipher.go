// Package secret chiffre les jetons e-MECeF au repos.
package secret

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"

	appemecef "github.com/cavebenin/emecef-pos/internal/application/emecef"
)

var _ appemecef.TokenCipher = (*Cipher)(nil)

const (
	prefix  = "v1:"
	hkdfCtx = "emecef-pos/pos-token/v1"
)

// ErrNotEncrypted valeur stockée sans le préfixe de version.
var ErrNotEncrypted = errors.New("secret: valeur non chiffrée")

// Cipher XChaCha20-Poly1305, clé dérivée du secret par HKDF-SHA256.
// Format : "v1:" + base64(nonce || ciphertext).
type Cipher struct {
	aead cipher.AEAD
}

// New retourne nil, nil si secret est vide : pas de chiffrement disponible,
// les jetons sont alors stockés en clair.
func New(secret string) (*Cipher, error) {
	if strings.TrimSpace(secret) == "" {
		return nil, nil
	}
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, []byte(secret), nil, []byte(hkdfCtx)), key); err != nil {
		return nil, fmt.Errorf("secret: dérivation de clé: %w", err)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("secret: init AEAD: %w", err)
	}
	return &Cipher{aead: aead}, nil
}

// Encrypt chiffre plain avec un nonce aléatoire.
func (c *Cipher) Encrypt(plain string) (string, error) {
	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(plain)+c.aead.Overhead())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("secret: nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(plain), nil)
	return prefix + base64.StdEncoding.EncodeToString(sealed), nil
}

// Decrypt déchiffre une valeur produite par Encrypt.
func (c *Cipher) Decrypt(stored string) (string, error) {
	if !IsEncrypted(stored) {
		return "", ErrNotEncrypted
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(stored, prefix))
	if err != nil {
		return "", fmt.Errorf("secret: base64: %w", err)
	}
	ns := c.aead.NonceSize()
	if len(raw) < ns+c.aead.Overhead() {
		return "", errors.New("secret: valeur tronquée")
	}
	plain, err := c.aead.Open(nil, raw[:ns], raw[ns:], nil)
	if err != nil {
		return "", fmt.Errorf("secret: authentification: %w", err)
	}
	return string(plain), nil
}

// IsEncrypted indique si stored porte le préfixe de version.
func IsEncrypted(stored string) bool {
	return strings.HasPrefix(stored, prefix)
}
